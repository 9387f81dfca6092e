package varint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeSingleByte(t *testing.T) {
	v, n, err := Decode([]byte{0x05})
	require.NoError(t, err)
	require.Equal(t, uint64(5), v)
	require.Equal(t, 1, n)
}

func TestDecodeTwoBytes(t *testing.T) {
	// 0x81 0x00 -> continuation bit set then 0 -> value (1<<7)|0 = 128
	v, n, err := Decode([]byte{0x81, 0x00})
	require.NoError(t, err)
	require.Equal(t, uint64(128), v)
	require.Equal(t, 2, n)
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := Decode([]byte{0x81})
	require.Error(t, err)
}

func TestDecodeNineBytes(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	v, n, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, 9, n)
	require.Equal(t, uint64(math.MaxUint64), v)
}

func TestRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 28, 1 << 35,
		1 << 49, 1 << 55, 1 << 56, 1<<56 + 1, math.MaxUint64, math.MaxInt64}
	for _, want := range values {
		enc := Encode(want)
		require.True(t, len(enc) >= 1 && len(enc) <= 9)
		got, n, err := Decode(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, want, got)
	}
}

func TestDecodeAt(t *testing.T) {
	buf := append([]byte{0xAA, 0xBB}, Encode(300)...)
	v, next, err := DecodeAt(buf, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(300), v)
	require.Equal(t, len(buf), next)
}
