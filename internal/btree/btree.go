package btree

import (
	"github.com/anvilcode/sqliteq/internal/errs"
	"github.com/anvilcode/sqliteq/internal/pager"
)

// maxDepth bounds recursion on corrupt/cyclic files per spec.md §4.5.
const maxDepth = 64

// PageSource is the minimal page-reading capability traversal needs; the
// pager.Pager satisfies it, and tests can fake it without a real file.
type PageSource interface {
	ReadPage(n int) ([]byte, error)
}

// Tree drives recursive navigation over a single B-tree rooted at a page
// number handed to Collect/Seek; the same Tree can be reused across many
// roots (table trees and index trees alike) since it carries no root
// state itself.
type Tree struct {
	pages PageSource
	usable int
}

// New builds a Tree over the given page source. usableSize is normally
// pager.PageSize; it is accepted explicitly so tests can exercise small
// synthetic pages without a real Pager.
func New(pages PageSource, usableSize int) *Tree {
	return &Tree{pages: pages, usable: usableSize}
}

func (t *Tree) readHeaderAndCells(pageNum int) ([]byte, pageHeader, []int, error) {
	page, err := t.pages.ReadPage(pageNum)
	if err != nil {
		return nil, pageHeader{}, nil, err
	}
	offset := pager.HeaderOffset(pageNum)
	h, err := decodePageHeader(page, offset)
	if err != nil {
		return nil, pageHeader{}, nil, err
	}
	ptrs, err := cellPointers(page, offset, h)
	if err != nil {
		return nil, pageHeader{}, nil, err
	}
	return page, h, ptrs, nil
}

// Collect returns every leaf cell reachable from root, in key-ascending
// order, per spec.md §4.5.
func (t *Tree) Collect(root int) ([]Cell, error) {
	return t.collect(root, 0)
}

func (t *Tree) collect(pageNum, depth int) ([]Cell, error) {
	if depth > maxDepth {
		return nil, errs.New(errs.MalformedTree, "recursion depth exceeded %d at page %d", maxDepth, pageNum)
	}

	page, h, ptrs, err := t.readHeaderAndCells(pageNum)
	if err != nil {
		return nil, err
	}

	if !h.kind.IsInterior() {
		cells := make([]Cell, 0, len(ptrs))
		for _, off := range ptrs {
			c, err := decodeCell(page, off, h.kind, t.usable)
			if err != nil {
				return nil, err
			}
			cells = append(cells, c)
		}
		return cells, nil
	}

	var out []Cell
	for _, off := range ptrs {
		c, err := decodeCell(page, off, h.kind, t.usable)
		if err != nil {
			return nil, err
		}
		children, err := t.collect(c.LeftChild, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	rightChildren, err := t.collect(h.rightMostPointer, depth+1)
	if err != nil {
		return nil, err
	}
	return append(out, rightChildren...), nil
}

// SeekTableEq returns the single table-leaf cell with the given row id,
// or nil if absent, visiting only the path dictated by binary search at
// each interior level per spec.md §4.5.
func (t *Tree) SeekTableEq(root int, rowID int64) (*Cell, error) {
	return t.seekTableEq(root, rowID, 0)
}

func (t *Tree) seekTableEq(pageNum int, rowID int64, depth int) (*Cell, error) {
	if depth > maxDepth {
		return nil, errs.New(errs.MalformedTree, "recursion depth exceeded %d at page %d", maxDepth, pageNum)
	}

	page, h, ptrs, err := t.readHeaderAndCells(pageNum)
	if err != nil {
		return nil, err
	}

	if h.kind == LeafTable {
		lo, hi := 0, len(ptrs)
		for lo < hi {
			mid := (lo + hi) / 2
			c, err := decodeCell(page, ptrs[mid], h.kind, t.usable)
			if err != nil {
				return nil, err
			}
			switch {
			case c.RowID == rowID:
				return &c, nil
			case c.RowID < rowID:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		return nil, nil
	}

	if h.kind != InteriorTable {
		return nil, errs.New(errs.UnsupportedPageKind, "kind 0x%02x in table tree", h.kind)
	}

	// Smallest separator key >= rowID; its left child's subtree may hold
	// rowID (all keys there are <= that separator). If every separator is
	// smaller, the row (if present) lives under the right-most child.
	lo, hi := 0, len(ptrs)
	for lo < hi {
		mid := (lo + hi) / 2
		c, err := decodeCell(page, ptrs[mid], h.kind, t.usable)
		if err != nil {
			return nil, err
		}
		if c.RowID >= rowID {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	child := h.rightMostPointer
	if lo < len(ptrs) {
		c, err := decodeCell(page, ptrs[lo], h.kind, t.usable)
		if err != nil {
			return nil, err
		}
		child = c.LeftChild
	}
	return t.seekTableEq(child, rowID, depth+1)
}

// IndexKeyCompare compares a search target against the first key column
// of a decoded index record. It returns <0 if target sorts before key,
// 0 if equal, >0 if target sorts after key. payload is the raw bytes
// of the index cell's payload; callers decode it with record.Decode to
// extract the first column before comparing.
type IndexKeyCompare func(payload []byte) (int, error)

// SeekIndexPrefix returns every index-leaf cell whose first key column
// compares equal (per cmp) to the search target, in (key, row id) order,
// visiting only interior children whose separator range can contain a
// match, per spec.md §4.5.
func (t *Tree) SeekIndexPrefix(root int, cmp IndexKeyCompare) ([]Cell, error) {
	return t.seekIndexPrefix(root, cmp, 0)
}

func (t *Tree) seekIndexPrefix(pageNum int, cmp IndexKeyCompare, depth int) ([]Cell, error) {
	if depth > maxDepth {
		return nil, errs.New(errs.MalformedTree, "recursion depth exceeded %d at page %d", maxDepth, pageNum)
	}

	page, h, ptrs, err := t.readHeaderAndCells(pageNum)
	if err != nil {
		return nil, err
	}

	switch h.kind {
	case LeafIndex:
		var out []Cell
		for _, off := range ptrs {
			c, err := decodeCell(page, off, h.kind, t.usable)
			if err != nil {
				return nil, err
			}
			cmpResult, err := cmp(c.Payload)
			if err != nil {
				return nil, err
			}
			if cmpResult == 0 {
				out = append(out, c)
			}
		}
		return out, nil

	case InteriorIndex:
		// Descend into the left child of the first separator >= target
		// (SQLite's index convention: a subtree's keys are <= its
		// separator). Keep descending right siblings while their
		// separator still equals target, since duplicate keys can span
		// more than one separator. Stop as soon as a separator sorts
		// strictly after target; otherwise fall through to the
		// right-most child once every separator has been exhausted.
		var out []Cell
		for _, off := range ptrs {
			c, err := decodeCell(page, off, h.kind, t.usable)
			if err != nil {
				return nil, err
			}
			cmpResult, err := cmp(c.Payload)
			if err != nil {
				return nil, err
			}
			if cmpResult > 0 {
				continue // target > separator: left subtree is all smaller
			}
			children, err := t.seekIndexPrefix(c.LeftChild, cmp, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
			if cmpResult < 0 {
				return out, nil // target < separator: nothing further can match
			}
		}
		rightChildren, err := t.seekIndexPrefix(h.rightMostPointer, cmp, depth+1)
		if err != nil {
			return nil, err
		}
		return append(out, rightChildren...), nil

	default:
		return nil, errs.New(errs.UnsupportedPageKind, "kind 0x%02x in index tree", h.kind)
	}
}
