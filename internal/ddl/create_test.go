package ddl

import (
	"strings"
	"testing"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty name returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table name must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{Name: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty type returns error",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "column id missing SQLType",
		},
		{
			name: "composite primary key",
			def: TableDef{Name: "genres", Columns: []ColumnDef{
				{Name: "movie_id", SQLType: "TEXT", PrimaryKey: true},
				{Name: "genre", SQLType: "TEXT", PrimaryKey: true},
				{Name: "note", SQLType: "TEXT", Nullable: true},
			}},
			wantSQL: "CREATE TABLE genres (\n  movie_id TEXT NOT NULL,\n  genre TEXT NOT NULL,\n  note TEXT,\n  PRIMARY KEY (movie_id, genre)\n);",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tc.def)
			if tc.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tc.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.wantSQL {
				t.Fatalf("sql mismatch\n got: %q\nwant: %q", got, tc.wantSQL)
			}
		})
	}
}

func TestBuildCreateIndexSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateIndexSQL(IndexDef{Name: "idx_a", Table: "t", Columns: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "CREATE INDEX idx_a ON t (a, b)"; got != want {
		t.Fatalf("sql = %q, want %q", got, want)
	}
	if _, err := BuildCreateIndexSQL(IndexDef{Name: "idx_a", Table: "t"}); err == nil {
		t.Fatalf("expected error for index without columns")
	}
}

func TestSourceTablesRender(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, td := range SourceTables() {
		if _, err := BuildCreateTableSQL(td); err != nil {
			t.Fatalf("table %s: %v", td.Name, err)
		}
		seen[td.Name] = true
	}
	if len(seen) != 11 {
		t.Fatalf("tables = %d, want 11", len(seen))
	}
	for _, ix := range BenchmarkIndexes() {
		if !seen[ix.Table] {
			t.Fatalf("index %s references unknown table %s", ix.Name, ix.Table)
		}
	}
}
