// Package sqlparse recognizes the supported SQL dialect (spec.md §4.8):
// meta-commands and a single-table SELECT with an optional single-column
// WHERE comparison.
//
// Grounded on the teacher's app/main.go, which already calls
// github.com/xwb1989/sqlparser and type-switches on *sqlparser.Select,
// *sqlparser.FuncExpr, *sqlparser.ColName, *sqlparser.ComparisonExpr and
// *sqlparser.SQLVal. This package generalizes that single inline
// dispatch into a reusable parser that rejects, with the spec's own
// typed errors, every shape sqlparser's fuller MySQL-dialect grammar
// accepts but spec.md §4.8 does not: joins, multiple tables, GROUP BY,
// ORDER BY, LIMIT, HAVING, DISTINCT, table/column aliases, and functions
// other than COUNT(*).
package sqlparse

import (
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/anvilcode/sqliteq/internal/errs"
)

// MetaKind identifies one of the three dot-commands spec.md §6 lists.
type MetaKind int

const (
	NotMeta MetaKind = iota
	MetaDBInfo
	MetaTables
	MetaSchema
)

// Operator enumerates the six comparison operators spec.md §4.8 allows.
type Operator string

const (
	Eq Operator = "="
	Ne Operator = "!="
	Lt Operator = "<"
	Gt Operator = ">"
	Le Operator = "<="
	Ge Operator = ">="
)

// Literal is a parsed WHERE-clause value: exactly one of IsInt or the
// text form is meaningful, matching spec.md §4.8's two literal forms.
type Literal struct {
	IsInt bool
	Int   int64
	Text  string
}

// Where is the single `<col> <op> <literal>` condition spec.md §4.8
// supports; there is no AND/OR combination in this dialect.
type Where struct {
	Column string
	Op     Operator
	Value  Literal
}

// Select is the parsed shape of a SELECT statement.
type Select struct {
	Star        bool
	CountStar   bool
	Columns     []string // nil when Star or CountStar is set
	Table       string
	Where       *Where
}

// Statement is the result of Parse: either a meta-command or a Select.
type Statement struct {
	Meta   MetaKind
	Select *Select
}

// Parse tokenizes and parses a single command line per spec.md §4.8.
func Parse(input string) (*Statement, error) {
	trimmed := strings.TrimSpace(input)

	switch trimmed {
	case ".dbinfo":
		return &Statement{Meta: MetaDBInfo}, nil
	case ".tables":
		return &Statement{Meta: MetaTables}, nil
	case ".schema":
		return &Statement{Meta: MetaSchema}, nil
	}

	cleaned, err := stripSingleTrailingSemicolon(trimmed)
	if err != nil {
		return nil, err
	}

	stmt, err := sqlparser.Parse(cleaned)
	if err != nil {
		return nil, errs.Wrap(errs.SqlSyntax, err, "parse %q", cleaned)
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, errs.New(errs.UnsupportedFeature, "only SELECT is supported: %q", cleaned)
	}

	parsed, err := parseSelect(sel)
	if err != nil {
		return nil, err
	}
	return &Statement{Select: parsed}, nil
}

// stripSingleTrailingSemicolon accepts an optional single trailing ';'
// but rejects multi-statement scripts (spec.md Non-goals) and anything
// after the terminator with TrailingGarbage.
func stripSingleTrailingSemicolon(s string) (string, error) {
	idx := strings.Index(s, ";")
	if idx < 0 {
		return s, nil
	}
	rest := strings.TrimSpace(s[idx+1:])
	if rest != "" {
		return "", errs.New(errs.TrailingGarbage, "tokens after statement end: %q", rest)
	}
	return strings.TrimSpace(s[:idx]), nil
}

func parseSelect(sel *sqlparser.Select) (*Select, error) {
	if sel.Distinct != "" {
		return nil, errs.New(errs.UnsupportedFeature, "DISTINCT is not supported")
	}
	if len(sel.GroupBy) > 0 {
		return nil, errs.New(errs.UnsupportedFeature, "GROUP BY is not supported")
	}
	if sel.Having != nil {
		return nil, errs.New(errs.UnsupportedFeature, "HAVING is not supported")
	}
	if len(sel.OrderBy) > 0 {
		return nil, errs.New(errs.UnsupportedFeature, "ORDER BY is not supported")
	}
	if sel.Limit != nil {
		return nil, errs.New(errs.UnsupportedFeature, "LIMIT is not supported")
	}
	if len(sel.From) != 1 {
		return nil, errs.New(errs.UnsupportedFeature, "joins/multiple tables are not supported")
	}

	table, err := parseSingleTable(sel.From[0])
	if err != nil {
		return nil, err
	}

	out := &Select{Table: table}
	if err := parseProjection(sel.SelectExprs, out); err != nil {
		return nil, err
	}

	if sel.Where != nil {
		if sel.Where.Type != sqlparser.WhereStr {
			return nil, errs.New(errs.UnsupportedFeature, "HAVING is not supported")
		}
		w, err := parseWhere(sel.Where.Expr)
		if err != nil {
			return nil, err
		}
		out.Where = w
	}

	return out, nil
}

func parseSingleTable(expr sqlparser.TableExpr) (string, error) {
	aliased, ok := expr.(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", errs.New(errs.UnsupportedFeature, "unsupported FROM clause shape")
	}
	if !aliased.As.IsEmpty() {
		return "", errs.New(errs.UnsupportedFeature, "table aliases are not supported")
	}
	tableName, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", errs.New(errs.UnsupportedFeature, "subqueries are not supported in FROM")
	}
	if !tableName.Qualifier.IsEmpty() {
		return "", errs.New(errs.UnsupportedFeature, "schema-qualified table names are not supported")
	}
	return tableName.Name.String(), nil
}

func parseProjection(exprs sqlparser.SelectExprs, out *Select) error {
	if len(exprs) == 1 {
		if _, ok := exprs[0].(*sqlparser.StarExpr); ok {
			out.Star = true
			return nil
		}
	}

	if len(exprs) == 1 {
		aliased, ok := exprs[0].(*sqlparser.AliasedExpr)
		if ok {
			if fn, ok := aliased.Expr.(*sqlparser.FuncExpr); ok {
				if fn.Name.Lowered() != "count" {
					return errs.New(errs.UnsupportedFeature, "only COUNT(*) is supported among functions")
				}
				if len(fn.Exprs) != 1 {
					return errs.New(errs.UnsupportedFeature, "COUNT(*) must take a single *")
				}
				if _, ok := fn.Exprs[0].(*sqlparser.StarExpr); !ok {
					return errs.New(errs.UnsupportedFeature, "only COUNT(*) is supported, not COUNT(column)")
				}
				out.CountStar = true
				return nil
			}
		}
	}

	cols := make([]string, 0, len(exprs))
	for _, e := range exprs {
		aliased, ok := e.(*sqlparser.AliasedExpr)
		if !ok {
			return errs.New(errs.UnsupportedFeature, "unsupported projection expression")
		}
		if !aliased.As.IsEmpty() {
			return errs.New(errs.UnsupportedFeature, "column aliases are not supported")
		}
		col, ok := aliased.Expr.(*sqlparser.ColName)
		if !ok {
			return errs.New(errs.UnsupportedFeature, "only plain column names are supported in the projection")
		}
		if !col.Qualifier.IsEmpty() {
			return errs.New(errs.UnsupportedFeature, "qualified column names are not supported")
		}
		cols = append(cols, col.Name.String())
	}
	out.Columns = cols
	return nil
}

func parseWhere(expr sqlparser.Expr) (*Where, error) {
	cmp, ok := expr.(*sqlparser.ComparisonExpr)
	if !ok {
		return nil, errs.New(errs.UnsupportedFeature, "only a single comparison is supported in WHERE")
	}

	op, err := parseOperator(cmp.Operator)
	if err != nil {
		return nil, err
	}

	col, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return nil, errs.New(errs.UnsupportedFeature, "WHERE left-hand side must be a column name")
	}

	lit, err := parseLiteral(cmp.Right)
	if err != nil {
		return nil, err
	}

	return &Where{Column: col.Name.String(), Op: op, Value: lit}, nil
}

func parseOperator(op string) (Operator, error) {
	switch op {
	case sqlparser.EqualStr:
		return Eq, nil
	case sqlparser.NotEqualStr:
		return Ne, nil
	case sqlparser.LessThanStr:
		return Lt, nil
	case sqlparser.GreaterThanStr:
		return Gt, nil
	case sqlparser.LessEqualStr:
		return Le, nil
	case sqlparser.GreaterEqualStr:
		return Ge, nil
	default:
		return "", errs.New(errs.UnsupportedFeature, "operator %q is not supported", op)
	}
}

// parseLiteral implements the "string literals MUST be quoted" rule: a
// bare identifier on the right of a comparison parses as *sqlparser.ColName
// rather than *sqlparser.SQLVal, which is exactly the signal spec.md
// §4.8 calls UnquotedStringLiteral.
func parseLiteral(expr sqlparser.Expr) (Literal, error) {
	switch v := expr.(type) {
	case *sqlparser.SQLVal:
		return sqlValToLiteral(v)
	case *sqlparser.ColName:
		return Literal{}, errs.New(errs.UnquotedStringLiteral, "unquoted value %q in WHERE; string literals must be quoted", v.Name.String())
	case *sqlparser.UnaryExpr:
		inner, ok := v.Expr.(*sqlparser.SQLVal)
		if !ok || v.Operator != "-" {
			return Literal{}, errs.New(errs.UnsupportedFeature, "unsupported WHERE literal")
		}
		lit, err := sqlValToLiteral(inner)
		if err != nil {
			return Literal{}, err
		}
		if !lit.IsInt {
			return Literal{}, errs.New(errs.UnsupportedFeature, "unary minus on a non-integer literal")
		}
		lit.Int = -lit.Int
		return lit, nil
	default:
		return Literal{}, errs.New(errs.UnsupportedFeature, "unsupported WHERE literal")
	}
}

func sqlValToLiteral(v *sqlparser.SQLVal) (Literal, error) {
	switch v.Type {
	case sqlparser.StrVal:
		return Literal{Text: string(v.Val)}, nil
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(v.Val), 10, 64)
		if err != nil {
			return Literal{}, errs.Wrap(errs.SqlSyntax, err, "invalid integer literal %q", string(v.Val))
		}
		return Literal{IsInt: true, Int: n}, nil
	default:
		return Literal{}, errs.New(errs.UnsupportedFeature, "unsupported literal type")
	}
}
