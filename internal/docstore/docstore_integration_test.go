//go:build integration

package docstore_test

import (
	"context"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/qlemen7/cineexplorer/internal/docstore"
	"github.com/qlemen7/cineexplorer/internal/docstore/doctest"
	"github.com/qlemen7/cineexplorer/internal/relational/reltest"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

func TestRunLockExcludesSecondRun(t *testing.T) {
	db := doctest.Database(t)
	ctx := context.Background()
	coll := db.Collection("run_locks")

	first := docstore.NewRunLock(coll, time.Minute)
	release, err := first.Acquire(ctx, "movies_complete")
	require.NoError(t, err)

	second := docstore.NewRunLock(coll, time.Minute)
	_, err = second.Acquire(ctx, "movies_complete")
	require.ErrorIs(t, err, docstore.ErrLocked)

	_, err = second.Acquire(ctx, "other_target")
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	_, err = second.Acquire(ctx, "movies_complete")
	require.NoError(t, err)
}

func TestRunLockTakesOverExpiredLock(t *testing.T) {
	db := doctest.Database(t)
	ctx := context.Background()
	coll := db.Collection("run_locks")

	_, err := docstore.NewRunLock(coll, -time.Second).Acquire(ctx, "movies_complete")
	require.NoError(t, err)

	next := docstore.NewRunLock(coll, time.Minute)
	_, err = next.Acquire(ctx, "movies_complete")
	require.NoError(t, err)

	var held struct {
		Owner string `bson:"owner"`
	}
	require.NoError(t, coll.FindOne(ctx, bson.D{{Key: "_id", Value: "movies_complete"}}).Decode(&held))
	assert.Equal(t, next.Owner(), held.Owner)
}

func TestEnsureIndexesIsIdempotent(t *testing.T) {
	db := doctest.Database(t)
	ctx := context.Background()
	coll := db.Collection("movies_complete")
	specs := docstore.MaterializedIndexes()

	require.NoError(t, docstore.EnsureIndexes(ctx, coll, specs))
	require.NoError(t, docstore.EnsureIndexes(ctx, coll, specs))
	names, err := docstore.IndexNames(ctx, coll)
	require.NoError(t, err)
	for _, s := range specs {
		assert.True(t, names[s.Name], s.Name)
	}

	require.NoError(t, docstore.DropIndexes(ctx, coll, specs))
	require.NoError(t, docstore.DropIndexes(ctx, coll, specs))
	names, err = docstore.IndexNames(ctx, coll)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"_id_": true}, names)
}

func TestMirrorCopiesTablesAndRenamesKeys(t *testing.T) {
	db := doctest.Database(t)
	ctx := context.Background()
	log, _ := logtest.NewNullLogger()

	src := reltest.Empty(t)
	reltest.Exec(t, src,
		`CREATE TABLE movies (tconst TEXT PRIMARY KEY, title_type TEXT, primary_title TEXT, original_title TEXT,
			is_adult INTEGER, start_year INTEGER, end_year INTEGER, runtime_minutes INTEGER)`,
		`CREATE TABLE persons (nconst TEXT PRIMARY KEY, primary_name TEXT, birth_year INTEGER, death_year INTEGER)`,
		`CREATE TABLE ratings (tconst TEXT, average_rating REAL, num_votes INTEGER)`,
		`CREATE TABLE genres (tconst TEXT, genre TEXT)`,
		`CREATE TABLE principals (tconst TEXT, nconst TEXT, ordering INTEGER, category TEXT, job TEXT)`,
		`CREATE TABLE directors (tconst TEXT, nconst TEXT)`,
		`CREATE TABLE writers (tconst TEXT, nconst TEXT)`,
		`INSERT INTO movies VALUES ('tt1', 'movie', 'Big', 'Big', 0, 1988, NULL, 104)`,
		`INSERT INTO persons VALUES ('nm1', 'Tom Hanks', 1956, NULL)`,
		`INSERT INTO genres VALUES ('tt1', 'Comedy'), ('tt1', 'Drama')`,
	)
	rs, err := schema.Inspect(ctx, src, log)
	require.NoError(t, err)

	m := &docstore.Mirror{Source: src, DB: db, Schema: rs, BatchSize: 1, Log: log}
	res, err := m.Run(ctx)
	require.NoError(t, err)
	require.Len(t, res, 7)

	var genre bson.M
	require.NoError(t, db.Collection("genres").FindOne(ctx, bson.D{{Key: "genre", Value: "Drama"}}).Decode(&genre))
	assert.Equal(t, "tt1", genre["movie_id"])
	assert.NotContains(t, genre, "tconst")

	n, err := db.Collection("genres").CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	names, err := docstore.IndexNames(ctx, db.Collection("persons"))
	require.NoError(t, err)
	assert.True(t, names["primary_name_1"])
}

func TestMirrorRefusesWhileLockHeld(t *testing.T) {
	db := doctest.Database(t)
	ctx := context.Background()
	log, _ := logtest.NewNullLogger()
	locks := docstore.NewRunLock(db.Collection("run_locks"), time.Minute)

	release, err := locks.Acquire(ctx, docstore.MirrorLockKey)
	require.NoError(t, err)

	src := reltest.Catalog(t)
	m := &docstore.Mirror{Source: src, DB: db, Schema: schema.Canonical(), Lock: locks, BatchSize: 10, Log: log}
	_, err = m.Run(ctx)
	require.ErrorIs(t, err, docstore.ErrLocked)

	require.NoError(t, release(ctx))
	_, err = m.Run(ctx)
	require.NoError(t, err)
}
