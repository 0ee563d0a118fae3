// Package ddl models the relational side of the movie catalog: the fixed
// source table set, the secondary indexes the benchmark toggles, and helpers
// that render them as CREATE statements.
//
// Rendering stays generic on purpose. It does not quote identifiers and it
// emits no dialect-specific clauses; callers that need IF NOT EXISTS
// semantics check the live catalog first (see internal/bench).
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// A column is rendered as
//
//	<Name> <SQLType> [NOT NULL]
//
// and columns flagged PrimaryKey are collected into a trailing
// PRIMARY KEY (...) clause.
func BuildCreateTableSQL(t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		col := strings.TrimSpace(c.Name)
		if col == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", col)
		}

		def := col + " " + typ
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)

		if c.PrimaryKey {
			pks = append(pks, col)
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", name, strings.Join(cols, ",\n  ")), nil
}

// BuildCreateIndexSQL renders CREATE INDEX <name> ON <table> (<cols>).
func BuildCreateIndexSQL(ix IndexDef) (string, error) {
	if strings.TrimSpace(ix.Name) == "" || strings.TrimSpace(ix.Table) == "" {
		return "", fmt.Errorf("ddl: index name and table must not be empty")
	}
	if len(ix.Columns) == 0 {
		return "", fmt.Errorf("ddl: index %s has no columns", ix.Name)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", ix.Name, ix.Table, strings.Join(ix.Columns, ", ")), nil
}
