// Package engine binds a parsed SELECT to the schema catalog, picks an
// access path, drives B-tree traversal, and projects/filters/formats
// rows.
//
// Grounded on the teacher's app/main.go dispatch (the .dbinfo/.tables
// branches, and CountRecordOfTable/SelectColumn for SELECT), generalized
// from a single inline switch over one *sqlparser.SelectExpr to the full
// plan/execute split spec.md §4.9 describes: TableEq, IndexLookup, and
// Scan as three explicit access paths instead of the teacher's
// count-or-single-column special cases. WHERE evaluation follows
// original_source/src/commands.rs's WhereCondition.matches in shape
// (column lookup, then per-operator comparison) but corrects its NULL
// handling and widens its operator set from {=, !=} to all six spec.md
// §4.8 allows.
package engine

import (
	"strconv"
	"strings"

	"github.com/anvilcode/sqliteq/internal/applog"
	"github.com/anvilcode/sqliteq/internal/btree"
	"github.com/anvilcode/sqliteq/internal/errs"
	"github.com/anvilcode/sqliteq/internal/pager"
	"github.com/anvilcode/sqliteq/internal/record"
	"github.com/anvilcode/sqliteq/internal/schema"
	"github.com/anvilcode/sqliteq/internal/sqlparse"

	"go.uber.org/zap"
)

// DB is an open database ready to answer queries. It owns the pager and
// is built once per engine invocation, per spec.md §4.4.
type DB struct {
	pager   *pager.Pager
	tree    *btree.Tree
	catalog *schema.Catalog
	log     *applog.Logger
}

// Open opens path, reads its header, and builds the schema catalog.
// logger may be nil (a no-op logger is used instead).
func Open(path string, logger *applog.Logger) (*DB, error) {
	p, err := pager.Open(path)
	if err != nil {
		return nil, err
	}
	tree := btree.New(p, p.PageSize)
	cat, err := schema.Build(tree)
	if err != nil {
		p.Close()
		return nil, err
	}
	if logger == nil {
		logger = applog.Noop()
	}
	return &DB{pager: p, tree: tree, catalog: cat, log: logger}, nil
}

// Close releases the underlying file handle.
func (db *DB) Close() error { return db.pager.Close() }

// Info is the data the .dbinfo meta-command reports.
type Info struct {
	PageSize       int
	NumberOfTables int
}

func (db *DB) Info() Info {
	return Info{PageSize: db.pager.PageSize, NumberOfTables: len(db.catalog.TableNames())}
}

// TableNames lists non-system table names for .tables.
func (db *DB) TableNames() []string { return db.catalog.TableNames() }

// SchemaSQL returns the stored CREATE statement of every schema object
// (tables, indexes, views, triggers) for .schema, in catalog order.
// Supplementing the teacher, which only ever read tables out of
// sqlite_schema.
func (db *DB) SchemaSQL() []string {
	var out []string
	for _, obj := range db.catalog.Objects {
		if obj.SQL != "" {
			out = append(out, obj.SQL)
		}
	}
	return out
}

// Result is the formatted output of a SELECT: one []string per row, in
// output-column order, already converted to display text per spec.md
// §4.9's output rules.
type Result struct {
	Rows [][]string
}

// accessPath is the plan chosen for a query, per spec.md §4.9 step 3.
type accessPath int

const (
	scanAccess accessPath = iota
	tableEqAccess
	indexLookupAccess
)

// Execute binds, plans, and runs a parsed SELECT statement.
func (db *DB) Execute(sel *sqlparse.Select) (*Result, error) {
	ts, ok := db.catalog.Table(sel.Table)
	if !ok {
		return nil, errs.New(errs.UnknownTable, "no such table: %s", sel.Table)
	}

	access, idx := db.planAccess(ts, sel.Where)
	db.log.Debug("plan",
		zap.String("table", ts.Name),
		zap.Int("access", int(access)),
	)

	if sel.CountStar {
		count, err := db.executeCount(ts, access, idx, sel.Where)
		if err != nil {
			return nil, err
		}
		return &Result{Rows: [][]string{{strconv.FormatInt(count, 10)}}}, nil
	}

	projection, err := resolveProjection(ts, sel)
	if err != nil {
		return nil, err
	}

	rows, err := db.collectRows(ts, access, idx, sel.Where)
	if err != nil {
		return nil, err
	}

	out := make([][]string, len(rows))
	for i, vals := range rows {
		formatted := make([]string, len(projection))
		for j, colIdx := range projection {
			formatted[j] = formatValue(columnAt(vals, colIdx))
		}
		out[i] = formatted
	}
	return &Result{Rows: out}, nil
}

// planAccess implements spec.md §4.9 step 3.
func (db *DB) planAccess(ts *schema.TableSchema, where *sqlparse.Where) (accessPath, *schema.IndexSchema) {
	if where == nil || where.Op != sqlparse.Eq {
		return scanAccess, nil
	}
	if ts.RowIDAliasIdx >= 0 && where.Value.IsInt && columnNameEq(ts.Columns[ts.RowIDAliasIdx], where.Column) {
		return tableEqAccess, nil
	}
	if idxs := db.catalog.IndexesOn(ts.Name, where.Column); len(idxs) > 0 {
		return indexLookupAccess, idxs[0]
	}
	return scanAccess, nil
}

// collectRows executes the chosen access path and returns every matching
// row's decoded, row-id-substituted values.
func (db *DB) collectRows(ts *schema.TableSchema, access accessPath, idx *schema.IndexSchema, where *sqlparse.Where) ([][]record.Value, error) {
	switch access {
	case tableEqAccess:
		cell, err := db.tree.SeekTableEq(ts.RootPage, where.Value.Int)
		if err != nil {
			return nil, err
		}
		if cell == nil {
			return nil, nil
		}
		vals, err := decodeRow(ts, *cell)
		if err != nil {
			return nil, err
		}
		return [][]record.Value{vals}, nil

	case indexLookupAccess:
		cmp := indexKeyCompare(where.Value)
		cells, err := db.tree.SeekIndexPrefix(idx.RootPage, cmp)
		if err != nil {
			return nil, err
		}
		rows := make([][]record.Value, 0, len(cells))
		for _, ic := range cells {
			rowID, err := indexRowID(ic.Payload)
			if err != nil {
				return nil, err
			}
			cell, err := db.tree.SeekTableEq(ts.RootPage, rowID)
			if err != nil {
				return nil, err
			}
			if cell == nil {
				continue
			}
			vals, err := decodeRow(ts, *cell)
			if err != nil {
				return nil, err
			}
			rows = append(rows, vals)
		}
		return rows, nil

	default:
		cells, err := db.tree.Collect(ts.RootPage)
		if err != nil {
			return nil, err
		}
		rows := make([][]record.Value, 0, len(cells))
		for _, c := range cells {
			vals, err := decodeRow(ts, c)
			if err != nil {
				return nil, err
			}
			ok, err := matchesWhere(vals, ts, where)
			if err != nil {
				return nil, err
			}
			if ok {
				rows = append(rows, vals)
			}
		}
		return rows, nil
	}
}

// executeCount implements spec.md §4.9 step 5: count matches without
// decoding full rows whenever the access path makes that possible.
func (db *DB) executeCount(ts *schema.TableSchema, access accessPath, idx *schema.IndexSchema, where *sqlparse.Where) (int64, error) {
	switch access {
	case tableEqAccess:
		cell, err := db.tree.SeekTableEq(ts.RootPage, where.Value.Int)
		if err != nil {
			return 0, err
		}
		if cell == nil {
			return 0, nil
		}
		return 1, nil

	case indexLookupAccess:
		cmp := indexKeyCompare(where.Value)
		cells, err := db.tree.SeekIndexPrefix(idx.RootPage, cmp)
		if err != nil {
			return 0, err
		}
		return int64(len(cells)), nil

	default:
		cells, err := db.tree.Collect(ts.RootPage)
		if err != nil {
			return 0, err
		}
		if where == nil {
			return int64(len(cells)), nil
		}
		var n int64
		for _, c := range cells {
			vals, err := decodeRow(ts, c)
			if err != nil {
				return 0, err
			}
			ok, err := matchesWhere(vals, ts, where)
			if err != nil {
				return 0, err
			}
			if ok {
				n++
			}
		}
		return n, nil
	}
}

func decodeRow(ts *schema.TableSchema, c btree.Cell) ([]record.Value, error) {
	vals, err := record.Decode(c.Payload)
	if err != nil {
		return nil, err
	}
	return record.SubstituteRowID(vals, ts.RowIDAliasIdx, c.RowID), nil
}

// indexRowID extracts the row id appended as the last column of an
// index record, per spec.md §4.9 step 4's IndexLookup description.
func indexRowID(payload []byte) (int64, error) {
	vals, err := record.Decode(payload)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, errs.New(errs.TruncatedRecord, "index record has no columns")
	}
	last := vals[len(vals)-1]
	if last.Kind != record.Int {
		return 0, errs.New(errs.TruncatedRecord, "index record's trailing row id is not an integer")
	}
	return last.Int, nil
}

// indexKeyCompare builds a btree.IndexKeyCompare that orders an index
// record's first key column against a search literal, following
// spec.md §4.9's value comparison rules.
func indexKeyCompare(lit sqlparse.Literal) btree.IndexKeyCompare {
	return func(payload []byte) (int, error) {
		vals, err := record.Decode(payload)
		if err != nil {
			return 0, err
		}
		if len(vals) == 0 {
			return 0, errs.New(errs.TruncatedRecord, "index record has no key columns")
		}
		// btree.IndexKeyCompare wants target-relative-to-key; compareValue
		// returns key-relative-to-target, hence the negation.
		return -compareValue(vals[0], lit), nil
	}
}

func resolveProjection(ts *schema.TableSchema, sel *sqlparse.Select) ([]int, error) {
	if sel.Star {
		idx := make([]int, len(ts.Columns))
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	idx := make([]int, len(sel.Columns))
	for i, name := range sel.Columns {
		ci, ok := columnIndex(ts, name)
		if !ok {
			return nil, errs.New(errs.UnknownColumn, "no such column: %s", name)
		}
		idx[i] = ci
	}
	return idx, nil
}

func columnIndex(ts *schema.TableSchema, name string) (int, bool) {
	for i, c := range ts.Columns {
		if columnNameEq(c, name) {
			return i, true
		}
	}
	return 0, false
}

func columnNameEq(a, b string) bool { return strings.EqualFold(a, b) }

// columnAt returns NULL for a short-record column past the end of vals,
// per SQLite's short-record optimization (see record.Decode).
func columnAt(vals []record.Value, i int) record.Value {
	if i < 0 || i >= len(vals) {
		return record.NullValue()
	}
	return vals[i]
}

func matchesWhere(vals []record.Value, ts *schema.TableSchema, where *sqlparse.Where) (bool, error) {
	if where == nil {
		return true, nil
	}
	ci, ok := columnIndex(ts, where.Column)
	if !ok {
		return false, errs.New(errs.UnknownColumn, "no such column: %s", where.Column)
	}
	v := columnAt(vals, ci)
	return matchesValue(v, where.Op, where.Value), nil
}

// matchesValue implements spec.md §4.9's value comparison rules. NULL
// compares unequal to everything, including under "!=", correcting
// original_source/src/commands.rs's WhereCondition::matches, which
// string-compares a value's display form and would let a text column
// literally containing "NULL" match a NULL-valued row.
func matchesValue(v record.Value, op sqlparse.Operator, lit sqlparse.Literal) bool {
	if v.Kind == record.Null {
		return false
	}
	cmp := compareValue(v, lit)
	switch op {
	case sqlparse.Eq:
		return cmp == 0
	case sqlparse.Ne:
		return cmp != 0
	case sqlparse.Lt:
		return cmp < 0
	case sqlparse.Gt:
		return cmp > 0
	case sqlparse.Le:
		return cmp <= 0
	case sqlparse.Ge:
		return cmp >= 0
	default:
		return false
	}
}

// compareValue returns v's order relative to lit: negative if v sorts
// before lit, zero if equal, positive if after. Numeric comparison
// applies only when the literal is an integer and the stored value is
// numeric; every other combination compares as byte sequences.
func compareValue(v record.Value, lit sqlparse.Literal) int {
	if lit.IsInt && (v.Kind == record.Int || v.Kind == record.Float) {
		var vf float64
		if v.Kind == record.Int {
			vf = float64(v.Int)
		} else {
			vf = v.Float
		}
		lf := float64(lit.Int)
		switch {
		case vf < lf:
			return -1
		case vf > lf:
			return 1
		default:
			return 0
		}
	}

	vs := stringify(v)
	ls := lit.Text
	if lit.IsInt {
		ls = strconv.FormatInt(lit.Int, 10)
	}
	return strings.Compare(vs, ls)
}

func stringify(v record.Value) string {
	switch v.Kind {
	case record.Int:
		return strconv.FormatInt(v.Int, 10)
	case record.Float:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case record.Text:
		return v.Text
	case record.Blob:
		return string(v.Blob)
	default:
		return ""
	}
}

// formatValue implements spec.md §4.9's output rules.
func formatValue(v record.Value) string {
	switch v.Kind {
	case record.Null:
		return ""
	case record.Int:
		return strconv.FormatInt(v.Int, 10)
	case record.Float:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case record.Text:
		return v.Text
	case record.Blob:
		return string(v.Blob)
	default:
		return ""
	}
}
