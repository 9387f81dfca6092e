// Package pager opens a SQLite database file, reads its 100-byte header
// once, and serves fixed-size pages on demand.
//
// Grounded on the teacher's app/db.go (New, OpenReader, dbHeader in
// app/models.go) generalized from fixed-width binary.Read struct fields
// to the header offsets spec.md §6 names explicitly, and with the
// page-size 1-means-65536 rule the teacher's dbHeader does not handle.
package pager

import (
	"bytes"
	"os"

	"github.com/anvilcode/sqliteq/internal/errs"
)

const (
	// HeaderSize is the fixed size of the SQLite database header.
	HeaderSize = 100

	magicOffset    = 0
	pageSizeOffset = 16
	textEncOffset  = 56
	pageCountOffset = 28
)

var magic = []byte("SQLite format 3\x00")

// Pager owns the open file handle and the parsed header fields needed to
// translate page numbers into byte offsets.
type Pager struct {
	file         *os.File
	PageSize     int
	PageCount    uint32
	TextEncoding uint32
}

// Open reads the database file's header and returns a ready Pager. The
// file is kept open for the lifetime of the Pager; callers must Close it.
func Open(path string) (*Pager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "open database file %q", path)
	}

	header := make([]byte, HeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return nil, errs.Wrap(errs.Io, err, "read %d-byte database header", HeaderSize)
	}

	if !bytes.Equal(header[magicOffset:magicOffset+16], magic) {
		f.Close()
		return nil, errs.New(errs.BadHeader, "missing SQLite magic string")
	}

	rawPageSize := int(header[pageSizeOffset])<<8 | int(header[pageSizeOffset+1])
	pageSize := rawPageSize
	if rawPageSize == 1 {
		pageSize = 65536
	}
	if pageSize < 512 || (pageSize&(pageSize-1)) != 0 {
		f.Close()
		return nil, errs.New(errs.BadHeader, "invalid page size %d", pageSize)
	}

	pageCount := be32(header[pageCountOffset:])
	textEncoding := be32(header[textEncOffset:])

	return &Pager{
		file:         f,
		PageSize:     pageSize,
		PageCount:    pageCount,
		TextEncoding: textEncoding,
	}, nil
}

// Close releases the underlying file handle.
func (p *Pager) Close() error {
	return p.file.Close()
}

// ReadPage returns the raw bytes of page n (1-indexed), always PageSize
// bytes long. Callers interpreting page 1 must remember that the first
// HeaderSize bytes of that buffer are the database header, not B-tree
// page content, per spec.md §3.
func (p *Pager) ReadPage(n int) ([]byte, error) {
	if n < 1 {
		return nil, errs.New(errs.Io, "page number %d out of range", n)
	}

	buf := make([]byte, p.PageSize)
	offset := int64(n-1) * int64(p.PageSize)
	if _, err := p.file.ReadAt(buf, offset); err != nil {
		return nil, errs.Wrap(errs.Io, err, "read page %d", n)
	}
	return buf, nil
}

// HeaderOffset returns the number of bytes of page 1 that are occupied by
// the database header rather than B-tree content: HeaderSize for page 1,
// zero for every other page. Traversal code uses this to locate the
// B-tree page header and cell pointer array correctly on page 1.
func HeaderOffset(pageNumber int) int {
	if pageNumber == 1 {
		return HeaderSize
	}
	return 0
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
