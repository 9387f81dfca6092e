package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/anvilcode/sqliteq/internal/btree"
	"github.com/anvilcode/sqliteq/internal/record"
	"github.com/anvilcode/sqliteq/internal/varint"
)

type fakePages struct {
	pages map[int][]byte
}

func (f *fakePages) ReadPage(n int) ([]byte, error) { return f.pages[n], nil }

const pageSize = 1024
const page1HeaderOffset = 100

func schemaRecord(kind, name, tblName string, rootPage int64, sql string) []byte {
	values := []record.Value{
		record.TextValue(kind),
		record.TextValue(name),
		record.TextValue(tblName),
		record.IntValue(rootPage),
		record.TextValue(sql),
	}
	var header []byte
	var body []byte
	for _, v := range values {
		switch v.Kind {
		case record.Text:
			header = append(header, varint.Encode(uint64(13+2*len(v.Text)))...)
			body = append(body, []byte(v.Text)...)
		case record.Int:
			header = append(header, varint.Encode(6)...)
			b := make([]byte, 8)
			u := uint64(v.Int)
			for i := 0; i < 8; i++ {
				b[i] = byte(u >> (56 - 8*i))
			}
			body = append(body, b...)
		}
	}
	headerLen := len(header) + 1
	lv := varint.Encode(uint64(headerLen))
	for len(lv)+len(header) != headerLen {
		headerLen = len(lv) + len(header)
		lv = varint.Encode(uint64(headerLen))
	}
	return append(append(lv, header...), body...)
}

func buildPage1(rows [][]byte) []byte {
	page := make([]byte, pageSize)
	headerStart := page1HeaderOffset
	cellAreaStart := headerStart + 8 + len(rows)*2
	offsets := make([]int, len(rows))
	pos := cellAreaStart
	for i, payload := range rows {
		var cell []byte
		cell = append(cell, varint.Encode(uint64(len(payload)))...)
		cell = append(cell, varint.Encode(uint64(i+1))...) // rowid
		cell = append(cell, payload...)
		copy(page[pos:], cell)
		offsets[i] = pos
		pos += len(cell)
	}
	page[headerStart] = 0x0D // leaf table page
	page[headerStart+3] = byte(len(rows) >> 8)
	page[headerStart+4] = byte(len(rows))
	for i, off := range offsets {
		p := headerStart + 8 + i*2
		page[p] = byte(off >> 8)
		page[p+1] = byte(off)
	}
	return page
}

func TestCatalogBuild(t *testing.T) {
	rows := [][]byte{
		schemaRecord("table", "superheroes", "superheroes", 2,
			"CREATE TABLE superheroes (id integer primary key, name text, eye_color text)"),
		schemaRecord("table", "companies", "companies", 3,
			"CREATE TABLE companies (id integer primary key, name text, country text)"),
		schemaRecord("index", "idx_companies_country", "companies", 4,
			"CREATE INDEX idx_companies_country ON companies (country)"),
	}
	page1 := buildPage1(rows)
	src := &fakePages{pages: map[int][]byte{1: page1}}
	tree := btree.New(src, pageSize)

	cat, err := Build(tree)
	require.NoError(t, err)

	ts, ok := cat.Table("superheroes")
	require.True(t, ok)
	require.Equal(t, []string{"id", "name", "eye_color"}, ts.Columns)
	require.Equal(t, 0, ts.RowIDAliasIdx)

	root, ok := cat.TableRoot("companies")
	require.True(t, ok)
	require.Equal(t, 3, root)

	idxs := cat.IndexesOn("companies", "country")
	require.Len(t, idxs, 1)
	require.Equal(t, 4, idxs[0].RootPage)

	names := cat.TableNames()
	require.ElementsMatch(t, []string{"superheroes", "companies"}, names)
}

func TestCatalogUnknownTable(t *testing.T) {
	page1 := buildPage1(nil)
	src := &fakePages{pages: map[int][]byte{1: page1}}
	tree := btree.New(src, pageSize)
	cat, err := Build(tree)
	require.NoError(t, err)

	_, ok := cat.Table("nonesuch")
	require.False(t, ok)
}
