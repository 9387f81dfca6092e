// Package schema reconstructs the database catalog from sqlite_schema
// and parses the CREATE TABLE / CREATE INDEX statements stored there.
//
// Grounded on original_source/src/schema.rs's TableSchema::from_create_sql
// (parenthesized column list, first identifier as name, "primary key"
// substring detection), generalized to spec.md §4.7's fuller rules:
// quoted identifiers, whitespace-flexible "INTEGER PRIMARY KEY"
// detection, and trailing table-constraint skipping, none of which the
// original's naive split(',') + contains("primary key") handles.
package schema

import (
	"regexp"
	"strings"

	"github.com/anvilcode/sqliteq/internal/errs"
)

var integerPrimaryKeyRE = regexp.MustCompile(`(?i)\bINTEGER\s+PRIMARY\s+KEY\b`)

var tableConstraintPrefixes = []string{"primary key", "unique", "foreign key", "check", "constraint"}

// Column describes one column of a parsed CREATE TABLE, in declaration
// order.
type Column struct {
	Name         string
	IsRowIDAlias bool
}

// ParseCreateTable extracts column names, in declaration order, and
// which one (if any) is the INTEGER PRIMARY KEY row-id alias, from a
// stored CREATE TABLE statement.
func ParseCreateTable(sql string) ([]Column, error) {
	body, err := parenBody(sql)
	if err != nil {
		return nil, err
	}

	var cols []Column
	for _, part := range splitTopLevel(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if isTableConstraint(part) {
			continue
		}

		name, rest := leadingIdentifier(part)
		if name == "" {
			continue
		}
		cols = append(cols, Column{
			Name:         name,
			IsRowIDAlias: integerPrimaryKeyRE.MatchString(rest),
		})
	}
	return cols, nil
}

// IndexDef is the result of parsing a CREATE INDEX statement: the table
// it indexes and the ordered list of key column names.
type IndexDef struct {
	TableName  string
	KeyColumns []string
}

var createIndexRE = regexp.MustCompile(`(?is)create\s+(?:unique\s+)?index\s+(?:if\s+not\s+exists\s+)?\S+\s+on\s+([^\s(]+)\s*\(`)

// ParseCreateIndex extracts the indexed table name and ordered key
// column list from a stored CREATE INDEX statement.
func ParseCreateIndex(sql string) (IndexDef, error) {
	m := createIndexRE.FindStringSubmatch(sql)
	if m == nil {
		return IndexDef{}, errs.New(errs.SqlSyntax, "cannot parse CREATE INDEX statement: %q", sql)
	}
	tableName := stripQuotes(m[1])

	body, err := parenBody(sql)
	if err != nil {
		return IndexDef{}, err
	}

	var cols []string
	for _, part := range splitTopLevel(body) {
		name, _ := leadingIdentifier(strings.TrimSpace(part))
		if name != "" {
			cols = append(cols, name)
		}
	}
	return IndexDef{TableName: tableName, KeyColumns: cols}, nil
}

// parenBody returns the text strictly between the first '(' and its
// matching ')'.
func parenBody(sql string) (string, error) {
	start := strings.Index(sql, "(")
	if start < 0 {
		return "", errs.New(errs.SqlSyntax, "no opening parenthesis in: %q", sql)
	}
	depth := 0
	for i := start; i < len(sql); i++ {
		switch sql[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return sql[start+1 : i], nil
			}
		}
	}
	return "", errs.New(errs.SqlSyntax, "unbalanced parentheses in: %q", sql)
}

// splitTopLevel splits on commas that are not nested inside parentheses
// or quotes, so a column tail like `CHECK(x > 0, y > 0)` is not split.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func isTableConstraint(part string) bool {
	lower := strings.ToLower(strings.TrimSpace(part))
	for _, prefix := range tableConstraintPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// leadingIdentifier reads the first identifier of a column/index-key
// definition, stripping backtick or double quotes, and returns it along
// with the remainder of the string (the type/constraint tail).
func leadingIdentifier(s string) (name string, rest string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}

	if s[0] == '`' || s[0] == '"' {
		quote := s[0]
		end := strings.IndexByte(s[1:], quote)
		if end < 0 {
			return "", s
		}
		return s[1 : 1+end], s[2+end:]
	}

	if s[0] == '[' {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return "", s
		}
		return s[1:end], s[end+1:]
	}

	i := 0
	for i < len(s) && !isSpaceOrPunct(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isSpaceOrPunct(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', ',', '(', ')':
		return true
	default:
		return false
	}
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '`' && last == '`') || (first == '"' && last == '"') ||
			(first == '[' && last == ']') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
