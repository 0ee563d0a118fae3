// Package reltest builds in-memory SQLite catalogs for tests.
package reltest

import (
	"context"
	"testing"

	"github.com/qlemen7/cineexplorer/internal/ddl"
	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/relational/sqlite"
)

// Empty opens an in-memory SQLite database with no tables. It is closed
// when the test ends.
func Empty(t testing.TB) *relational.Source {
	t.Helper()
	src, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

// Catalog opens an in-memory database holding the canonical source tables.
func Catalog(t testing.TB) *relational.Source {
	t.Helper()
	src := Empty(t)
	for _, td := range ddl.SourceTables() {
		stmt, err := ddl.BuildCreateTableSQL(td)
		if err != nil {
			t.Fatalf("render %s: %v", td.Name, err)
		}
		Exec(t, src, stmt)
	}
	return src
}

// Exec runs each statement and fails the test on the first error.
func Exec(t testing.TB, src *relational.Source, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := src.DB.ExecContext(context.Background(), s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
}

// Movie inserts a movie with an optional rating. votes < 0 means no rating row.
func Movie(t testing.TB, src *relational.Source, id, title string, year int, rating float64, votes int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := src.DB.ExecContext(ctx,
		`INSERT INTO movies (movie_id, title_type, primary_title, original_title, is_adult, start_year, runtime_minutes)
		 VALUES (?, 'movie', ?, ?, 0, ?, 100)`, id, title, title, year); err != nil {
		t.Fatalf("insert movie %s: %v", id, err)
	}
	if votes < 0 {
		return
	}
	if _, err := src.DB.ExecContext(ctx,
		`INSERT INTO ratings (movie_id, average_rating, num_votes) VALUES (?, ?, ?)`, id, rating, votes); err != nil {
		t.Fatalf("insert rating %s: %v", id, err)
	}
}

// Person inserts a person.
func Person(t testing.TB, src *relational.Source, id, name string) {
	t.Helper()
	if _, err := src.DB.ExecContext(context.Background(),
		`INSERT INTO persons (person_id, primary_name) VALUES (?, ?)`, id, name); err != nil {
		t.Fatalf("insert person %s: %v", id, err)
	}
}

// Credit inserts a principals row.
func Credit(t testing.TB, src *relational.Source, movieID, personID string, ordering int, category string) {
	t.Helper()
	if _, err := src.DB.ExecContext(context.Background(),
		`INSERT INTO principals (movie_id, person_id, ordering, category) VALUES (?, ?, ?, ?)`,
		movieID, personID, ordering, category); err != nil {
		t.Fatalf("insert principal: %v", err)
	}
}
