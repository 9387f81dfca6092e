package pager

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestDB(t *testing.T, pageSize int, pageCount uint32) string {
	t.Helper()
	buf := make([]byte, pageSize*int(pageCount))
	copy(buf, magic)
	if pageSize == 65536 {
		buf[16], buf[17] = 0, 1
	} else {
		buf[16] = byte(pageSize >> 8)
		buf[17] = byte(pageSize)
	}
	buf[28] = byte(pageCount >> 24)
	buf[29] = byte(pageCount >> 16)
	buf[30] = byte(pageCount >> 8)
	buf[31] = byte(pageCount)
	buf[56+3] = 1 // UTF-8

	f, err := os.CreateTemp(t.TempDir(), "test*.db")
	require.NoError(t, err)
	_, err = f.Write(buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestOpenParsesHeader(t *testing.T) {
	path := writeTestDB(t, 4096, 3)
	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	require.Equal(t, 4096, p.PageSize)
	require.Equal(t, uint32(3), p.PageCount)
	require.Equal(t, uint32(1), p.TextEncoding)
}

func TestOpenPageSize65536(t *testing.T) {
	path := writeTestDB(t, 65536, 1)
	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, 65536, p.PageSize)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bad*.db")
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 200))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(f.Name())
	require.Error(t, err)
}

func TestReadPage(t *testing.T) {
	path := writeTestDB(t, 512, 2)
	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	page1, err := p.ReadPage(1)
	require.NoError(t, err)
	require.Len(t, page1, 512)

	page2, err := p.ReadPage(2)
	require.NoError(t, err)
	require.Len(t, page2, 512)
}

func TestHeaderOffset(t *testing.T) {
	require.Equal(t, HeaderSize, HeaderOffset(1))
	require.Equal(t, 0, HeaderOffset(2))
}
