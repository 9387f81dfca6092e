// Catalog construction: collect() over the sqlite_schema table on page 1
// and decode each row into a schema Object, then resolve column order
// and index key columns via the DDL parser in ddl.go.
//
// Grounded on the teacher's app/db.go (GetTblSqlMaster) and app/helper.go
// (parseSQLMasterRecord), generalized from "decode five fixed columns
// from page 1's cell-pointer array by hand" to reusing the general
// record decoder and btree traversal, and extended to also catalog
// indexes (the teacher only reads tables).
package schema

import (
	"strings"

	"github.com/anvilcode/sqliteq/internal/btree"
	"github.com/anvilcode/sqliteq/internal/errs"
	"github.com/anvilcode/sqliteq/internal/record"
)

// SchemaRootPage is the fixed root page of sqlite_schema.
const SchemaRootPage = 1

// ObjectKind mirrors the `type` column of sqlite_schema.
type ObjectKind string

const (
	KindTable   ObjectKind = "table"
	KindIndex   ObjectKind = "index"
	KindView    ObjectKind = "view"
	KindTrigger ObjectKind = "trigger"
)

// Object is one row of sqlite_schema, decoded.
type Object struct {
	Kind     ObjectKind
	Name     string
	TblName  string
	RootPage int
	SQL      string
}

// TableSchema is a resolved table: its column order and, if present, the
// index of the column that aliases the row id.
type TableSchema struct {
	Name           string
	RootPage       int
	Columns        []string
	RowIDAliasIdx  int // -1 if the table has no INTEGER PRIMARY KEY alias
}

// IndexSchema is a resolved index: the table it covers and its ordered
// key columns.
type IndexSchema struct {
	Name       string
	TableName  string
	RootPage   int
	KeyColumns []string
}

// Catalog exposes the decoded schema objects, keyed case-insensitively.
type Catalog struct {
	Objects []Object
	tables  map[string]*TableSchema
	indexes map[string]*IndexSchema
	// byTableColumn maps "table.column" (both lowercased) to indexes
	// whose first key column is that column.
	byTableColumn map[string][]*IndexSchema
}

// Build reads page 1 as a table B-tree, decodes every sqlite_schema row,
// and resolves tables and indexes against their CREATE statements.
func Build(tree *btree.Tree) (*Catalog, error) {
	cells, err := tree.Collect(SchemaRootPage)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		tables:        map[string]*TableSchema{},
		indexes:       map[string]*IndexSchema{},
		byTableColumn: map[string][]*IndexSchema{},
	}

	for _, cell := range cells {
		obj, err := decodeSchemaObject(cell.Payload)
		if err != nil {
			return nil, err
		}
		cat.Objects = append(cat.Objects, obj)

		switch obj.Kind {
		case KindTable:
			ts, err := buildTableSchema(obj)
			if err != nil {
				return nil, err
			}
			cat.tables[strings.ToLower(obj.Name)] = ts
		case KindIndex:
			is, err := buildIndexSchema(obj)
			if err != nil {
				// Some sqlite_schema index rows (auto-indexes for
				// UNIQUE constraints) have no SQL text; skip those
				// rather than failing the whole catalog.
				if obj.SQL == "" {
					continue
				}
				return nil, err
			}
			cat.indexes[strings.ToLower(obj.Name)] = is
			if len(is.KeyColumns) > 0 {
				key := strings.ToLower(is.TableName) + "." + strings.ToLower(is.KeyColumns[0])
				cat.byTableColumn[key] = append(cat.byTableColumn[key], is)
			}
		}
	}

	return cat, nil
}

func decodeSchemaObject(payload []byte) (Object, error) {
	vals, err := record.Decode(payload)
	if err != nil {
		return Object{}, err
	}
	if len(vals) < 5 {
		return Object{}, errs.New(errs.TruncatedRecord, "sqlite_schema row has %d columns, want 5", len(vals))
	}

	var rootPage int64
	if vals[3].Kind == record.Int {
		rootPage = vals[3].Int
	}

	return Object{
		Kind:     ObjectKind(strings.ToLower(vals[0].Text)),
		Name:     vals[1].Text,
		TblName:  vals[2].Text,
		RootPage: int(rootPage),
		SQL:      vals[4].Text,
	}, nil
}

func buildTableSchema(obj Object) (*TableSchema, error) {
	cols, err := ParseCreateTable(obj.SQL)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cols))
	aliasIdx := -1
	for i, c := range cols {
		names[i] = c.Name
		if c.IsRowIDAlias {
			aliasIdx = i
		}
	}

	return &TableSchema{
		Name:          obj.Name,
		RootPage:      obj.RootPage,
		Columns:       names,
		RowIDAliasIdx: aliasIdx,
	}, nil
}

func buildIndexSchema(obj Object) (*IndexSchema, error) {
	def, err := ParseCreateIndex(obj.SQL)
	if err != nil {
		return nil, err
	}
	return &IndexSchema{
		Name:       obj.Name,
		TableName:  def.TableName,
		RootPage:   obj.RootPage,
		KeyColumns: def.KeyColumns,
	}, nil
}

// Table looks up a table by name, case-insensitively.
func (c *Catalog) Table(name string) (*TableSchema, bool) {
	ts, ok := c.tables[strings.ToLower(name)]
	return ts, ok
}

// TableRoot is a convenience accessor for the root page of a table.
func (c *Catalog) TableRoot(name string) (int, bool) {
	ts, ok := c.Table(name)
	if !ok {
		return 0, false
	}
	return ts.RootPage, true
}

// IndexesOn returns every index on table whose first key column is
// column, case-insensitively.
func (c *Catalog) IndexesOn(table, column string) []*IndexSchema {
	return c.byTableColumn[strings.ToLower(table)+"."+strings.ToLower(column)]
}

// TableNames returns the names of every non-system table (names not
// beginning with "sqlite_"), in catalog order, for the .tables command.
func (c *Catalog) TableNames() []string {
	var out []string
	for _, obj := range c.Objects {
		if obj.Kind == KindTable && !strings.HasPrefix(obj.Name, "sqlite_") {
			out = append(out, obj.Name)
		}
	}
	return out
}
