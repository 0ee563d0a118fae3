package integrity

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/relational/reltest"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

func orphanCatalog(t *testing.T) *relational.Source {
	src := reltest.Catalog(t)
	reltest.Person(t, src, "p1", "Kept")
	reltest.Movie(t, src, "m1", "Kept", 2000, 7, 10)
	reltest.Exec(t, src,
		`PRAGMA foreign_keys = OFF`,
		`INSERT INTO characters (movie_id, person_id, character_name) VALUES
			('m1', 'p1', 'ok'), ('m1', 'ghost', 'no person'), ('gone', 'p1', 'no movie')`,
		`INSERT INTO writers (movie_id, person_id) VALUES ('m1', 'p1'), ('gone', 'ghost')`,
	)
	return src
}

func find(t *testing.T, got []Orphans, table, parent string) Orphans {
	t.Helper()
	for _, o := range got {
		if o.Table == table && o.Parent == parent {
			return o
		}
	}
	t.Fatalf("no entry for %s/%s", table, parent)
	return Orphans{}
}

func TestRunCountsWithoutDeleting(t *testing.T) {
	t.Parallel()
	log, _ := logtest.NewNullLogger()
	src := orphanCatalog(t)
	c := &Checker{Source: src, Schema: schema.Canonical(), Log: log}

	got, err := c.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, got, 2*len(LinkTables))
	assert.Equal(t, int64(1), find(t, got, "characters", "persons").Found)
	assert.Equal(t, int64(1), find(t, got, "characters", "movies").Found)
	assert.Equal(t, int64(1), find(t, got, "writers", "persons").Found)
	assert.Equal(t, int64(0), find(t, got, "directors", "movies").Found)

	var n int
	require.NoError(t, src.DB.QueryRow(`SELECT COUNT(*) FROM characters`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestRunFixDeletesOrphans(t *testing.T) {
	t.Parallel()
	log, hook := logtest.NewNullLogger()
	src := orphanCatalog(t)
	c := &Checker{Source: src, Schema: schema.Canonical(), Log: log}

	got, err := c.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), find(t, got, "characters", "persons").Deleted)
	// The writers row lacking both parents is removed by the persons pass.
	assert.Equal(t, int64(1), find(t, got, "writers", "persons").Deleted)
	assert.Equal(t, int64(0), find(t, got, "writers", "movies").Deleted)
	assert.NotEmpty(t, hook.Entries)

	again, err := c.Run(context.Background(), false)
	require.NoError(t, err)
	for _, o := range again {
		assert.Zero(t, o.Found, "%s/%s", o.Table, o.Parent)
	}
}

func TestRunSkipsAbsentTables(t *testing.T) {
	t.Parallel()
	log, _ := logtest.NewNullLogger()
	src := reltest.Empty(t)
	reltest.Exec(t, src,
		`CREATE TABLE movies (movie_id TEXT PRIMARY KEY)`,
		`CREATE TABLE persons (person_id TEXT PRIMARY KEY)`,
		`CREATE TABLE directors (movie_id TEXT, person_id TEXT)`,
	)
	c := &Checker{Source: src, Schema: schema.Canonical(), Log: log}

	got, err := c.Run(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "directors", got[0].Table)
}
