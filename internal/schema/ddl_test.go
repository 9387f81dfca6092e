package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCreateTableBasic(t *testing.T) {
	cols, err := ParseCreateTable(`CREATE TABLE superheroes (id integer primary key, name text, eye_color text)`)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	require.Equal(t, "id", cols[0].Name)
	require.True(t, cols[0].IsRowIDAlias)
	require.False(t, cols[1].IsRowIDAlias)
}

func TestParseCreateTableQuotedIdentifiers(t *testing.T) {
	cols, err := ParseCreateTable("CREATE TABLE t (`a` INTEGER, \"b\" TEXT)")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, []string{cols[0].Name, cols[1].Name})
}

func TestParseCreateTableIgnoresTrailingConstraint(t *testing.T) {
	cols, err := ParseCreateTable(`CREATE TABLE t (a INTEGER, b TEXT, PRIMARY KEY (a))`)
	require.NoError(t, err)
	require.Len(t, cols, 2)
}

func TestParseCreateTableRowIDAliasWhitespaceFlexible(t *testing.T) {
	cols, err := ParseCreateTable("CREATE TABLE t (id   INTEGER   PRIMARY   KEY, name TEXT)")
	require.NoError(t, err)
	require.True(t, cols[0].IsRowIDAlias)
}

func TestParseCreateIndex(t *testing.T) {
	def, err := ParseCreateIndex(`CREATE INDEX idx_companies_country ON companies (country)`)
	require.NoError(t, err)
	require.Equal(t, "companies", def.TableName)
	require.Equal(t, []string{"country"}, def.KeyColumns)
}

func TestParseCreateIndexMultiColumn(t *testing.T) {
	def, err := ParseCreateIndex("CREATE INDEX idx ON t (a, b)")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, def.KeyColumns)
}
