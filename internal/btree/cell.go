// Package btree decodes B-tree pages and cells and drives lazy traversal
// over the four page kinds SQLite's on-disk format defines.
//
// Grounded on the teacher's app/models.go (dbPageHeader, page-type
// constants) and app/db.go's manual cell-pointer walk for
// sqlite_schema, generalized from "page 1, table leaf only" to all four
// page kinds and to interior-page recursion, following
// original_source/src/database.rs's collect_all_table_cells /
// traverse_index_for_value as the reference for traversal shape.
package btree

import (
	"github.com/anvilcode/sqliteq/internal/errs"
	"github.com/anvilcode/sqliteq/internal/varint"
)

// Kind is the one-byte page type tag at offset 0 of every B-tree page.
type Kind uint8

const (
	InteriorIndex Kind = 0x02
	InteriorTable Kind = 0x05
	LeafIndex     Kind = 0x0A
	LeafTable     Kind = 0x0D
)

func (k Kind) IsInterior() bool { return k == InteriorIndex || k == InteriorTable }
func (k Kind) IsIndex() bool    { return k == InteriorIndex || k == LeafIndex }

func (k Kind) headerLen() int {
	if k.IsInterior() {
		return 12
	}
	return 8
}

func parseKind(b byte) (Kind, error) {
	switch Kind(b) {
	case InteriorIndex, InteriorTable, LeafIndex, LeafTable:
		return Kind(b), nil
	default:
		return 0, errs.New(errs.UnsupportedPageKind, "page kind byte 0x%02x", b)
	}
}

// Cell is one entry on a page. Which fields are populated depends on the
// owning page's Kind: see spec.md §3.
type Cell struct {
	Kind      Kind
	RowID     int64  // table leaf payload key, table interior separator key
	Payload   []byte // table leaf record bytes, index leaf/interior record bytes
	LeftChild int    // table interior, index interior
}

// pageHeader is the decoded 8- or 12-byte B-tree page header.
type pageHeader struct {
	kind             Kind
	cellCount        int
	rightMostPointer int // only set for interior pages
}

func decodePageHeader(page []byte, headerOffset int) (pageHeader, error) {
	if headerOffset+8 > len(page) {
		return pageHeader{}, errs.New(errs.MalformedTree, "page too small for B-tree header")
	}
	kind, err := parseKind(page[headerOffset])
	if err != nil {
		return pageHeader{}, err
	}

	cellCount := int(page[headerOffset+3])<<8 | int(page[headerOffset+4])

	h := pageHeader{kind: kind, cellCount: cellCount}
	if kind.IsInterior() {
		if headerOffset+12 > len(page) {
			return pageHeader{}, errs.New(errs.MalformedTree, "interior page too small for right-most pointer")
		}
		h.rightMostPointer = int(be32(page[headerOffset+8:]))
	}
	return h, nil
}

// cellPointers returns the cell offsets (into page, absolute within the
// buffer) listed by the cell pointer array, in stored (key) order.
func cellPointers(page []byte, headerOffset int, h pageHeader) ([]int, error) {
	start := headerOffset + h.kind.headerLen()
	end := start + h.cellCount*2
	if end > len(page) {
		return nil, errs.New(errs.MalformedTree, "cell pointer array out of range")
	}
	ptrs := make([]int, h.cellCount)
	for i := 0; i < h.cellCount; i++ {
		off := start + i*2
		ptrs[i] = int(page[off])<<8 | int(page[off+1])
	}
	for _, p := range ptrs {
		if p < 0 || p > len(page) {
			return nil, errs.New(errs.MalformedTree, "cell offset %d out of range", p)
		}
	}
	return ptrs, nil
}

// decodeCell decodes one cell at the given absolute offset within page,
// dispatching on kind per spec.md §3. usableSize is the page's usable
// payload area (page size, since this engine does not track reserved
// per-page bytes beyond what the header reports as zero in practice).
func decodeCell(page []byte, offset int, kind Kind, usableSize int) (Cell, error) {
	switch kind {
	case LeafTable:
		return decodeLeafTableCell(page, offset, usableSize)
	case InteriorTable:
		return decodeInteriorTableCell(page, offset)
	case LeafIndex:
		return decodeLeafIndexCell(page, offset, usableSize)
	case InteriorIndex:
		return decodeInteriorIndexCell(page, offset, usableSize)
	default:
		return Cell{}, errs.New(errs.UnsupportedPageKind, "kind 0x%02x", kind)
	}
}

func decodeLeafTableCell(page []byte, offset, usableSize int) (Cell, error) {
	payloadSize, pos, err := varint.DecodeAt(page, offset)
	if err != nil {
		return Cell{}, errs.Wrap(errs.TruncatedRecord, err, "table leaf cell payload size")
	}
	rowID, pos, err := varint.DecodeAt(page, pos)
	if err != nil {
		return Cell{}, errs.Wrap(errs.TruncatedRecord, err, "table leaf cell row id")
	}

	if err := rejectOverflow(payloadSize, maxLocalTable(usableSize)); err != nil {
		return Cell{}, err
	}
	payload, err := readLocal(page, pos, payloadSize)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Kind: LeafTable, RowID: int64(rowID), Payload: payload}, nil
}

func decodeInteriorTableCell(page []byte, offset int) (Cell, error) {
	if offset+4 > len(page) {
		return Cell{}, errs.New(errs.MalformedTree, "table interior cell truncated left-child pointer")
	}
	leftChild := int(be32(page[offset:]))
	rowID, _, err := varint.DecodeAt(page, offset+4)
	if err != nil {
		return Cell{}, errs.Wrap(errs.TruncatedRecord, err, "table interior cell key")
	}
	return Cell{Kind: InteriorTable, LeftChild: leftChild, RowID: int64(rowID)}, nil
}

func decodeLeafIndexCell(page []byte, offset, usableSize int) (Cell, error) {
	payloadSize, pos, err := varint.DecodeAt(page, offset)
	if err != nil {
		return Cell{}, errs.Wrap(errs.TruncatedRecord, err, "index leaf cell payload size")
	}
	if err := rejectOverflow(payloadSize, maxLocalIndex(usableSize)); err != nil {
		return Cell{}, err
	}
	payload, err := readLocal(page, pos, payloadSize)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Kind: LeafIndex, Payload: payload}, nil
}

func decodeInteriorIndexCell(page []byte, offset, usableSize int) (Cell, error) {
	if offset+4 > len(page) {
		return Cell{}, errs.New(errs.MalformedTree, "index interior cell truncated left-child pointer")
	}
	leftChild := int(be32(page[offset:]))
	payloadSize, pos, err := varint.DecodeAt(page, offset+4)
	if err != nil {
		return Cell{}, errs.Wrap(errs.TruncatedRecord, err, "index interior cell payload size")
	}
	if err := rejectOverflow(payloadSize, maxLocalIndex(usableSize)); err != nil {
		return Cell{}, err
	}
	payload, err := readLocal(page, pos, payloadSize)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Kind: InteriorIndex, LeftChild: leftChild, Payload: payload}, nil
}

func readLocal(page []byte, pos int, size uint64) ([]byte, error) {
	end := pos + int(size)
	if end > len(page) || end < pos {
		return nil, errs.New(errs.TruncatedRecord, "cell payload of %d bytes extends past page", size)
	}
	out := make([]byte, size)
	copy(out, page[pos:end])
	return out, nil
}

// rejectOverflow implements the explicit-rejection half of spec.md §4.4's
// open question: payloads exceeding the page's local-storage threshold
// are never read past the page boundary or silently truncated; they fail
// loudly with OverflowUnsupported.
func rejectOverflow(payloadSize uint64, maxLocal int) error {
	if maxLocal >= 0 && payloadSize > uint64(maxLocal) {
		return errs.New(errs.OverflowUnsupported, "payload of %d bytes exceeds local max %d; overflow chains are not supported", payloadSize, maxLocal)
	}
	return nil
}

// maxLocalTable and maxLocalIndex follow SQLite's official overflow
// thresholds (fileformat2.html §"Overflow pages"), with U the usable
// page size (reserved-space byte is assumed zero, as spec.md §4.2 does
// not surface it).
func maxLocalTable(usableSize int) int {
	return usableSize - 35
}

func maxLocalIndex(usableSize int) int {
	return (usableSize-12)*64/255 - 23
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
