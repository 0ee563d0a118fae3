package materialize

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlemen7/cineexplorer/internal/movie"
	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/relational/reltest"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

func seedExpansion(t *testing.T) *relational.Source {
	t.Helper()
	src := reltest.Catalog(t)
	reltest.Movie(t, src, "m1", "Big Cast", 1999, 7.5, 1200)
	reltest.Movie(t, src, "m0", "No Votes", 2001, 0, 0)
	for i := 1; i <= 8; i++ {
		pid := fmt.Sprintf("p%d", i)
		reltest.Person(t, src, pid, fmt.Sprintf("Actor %d", i))
		reltest.Credit(t, src, "m1", pid, i, "actor")
		reltest.Credit(t, src, "m0", pid, i, "actor")
	}
	reltest.Person(t, src, "d1", "Director One")
	reltest.Credit(t, src, "m1", "d1", 9, "director")
	reltest.Exec(t, src,
		"INSERT INTO directors (movie_id, person_id) VALUES ('m1', 'd1'), ('m0', 'd1')",
		"INSERT INTO writers (movie_id, person_id) VALUES ('m1', 'p2'), ('m1', 'd1')",
		"INSERT INTO genres (movie_id, genre) VALUES ('m1', 'Drama'), ('m1', 'Comedy'), ('m0', 'Horror')",
		"INSERT INTO characters (movie_id, person_id, character_name) VALUES ('m1', 'p1', 'Twin A'), ('m1', 'p1', 'Twin B'), ('m1', 'p3', 'Sheriff')",
		"INSERT INTO titles (movie_id, title, region, language) VALUES ('m1', 'Gros Casting', 'FR', 'fr'), ('m1', 'Big Cast', NULL, NULL), ('m0', 'Aucun Vote', 'FR', 'fr')",
	)
	return src
}

func TestExpandCapsCastAndAttachesCharacters(t *testing.T) {
	t.Parallel()
	src := seedExpansion(t)
	log, _ := logtest.NewNullLogger()
	e := NewExpander(src, schema.Canonical(), log)

	x := e.Expand(context.Background(), "m1", 1200)

	require.Equal(t, StatusOK, x.Cast.Status)
	require.Len(t, x.Cast.Items, CastLimit)
	assert.Equal(t, "p1", x.Cast.Items[0].PersonID)
	assert.Equal(t, "p6", x.Cast.Items[5].PersonID)

	assert.Equal(t, []movie.Credit{{PersonID: "d1", Name: "Director One"}}, x.Directors.Items)
	assert.Equal(t, []movie.Credit{{PersonID: "d1", Name: "Director One"}, {PersonID: "p2", Name: "Actor 2"}}, x.Writers.Items)
	assert.Equal(t, []string{"Comedy", "Drama"}, x.Genres.Items)
	require.Len(t, x.Titles.Items, 2)
	assert.Empty(t, x.Failed())
	assert.True(t, x.Expanded())

	var doc movie.Document
	x.Apply(&doc)
	assert.Equal(t, []string{"Twin A", "Twin B"}, doc.Cast[0].Characters)
	assert.Equal(t, []string{}, doc.Cast[1].Characters)
	assert.Equal(t, []string{"Sheriff"}, doc.Cast[2].Characters)
}

func TestExpandZeroVotesOnlyGenres(t *testing.T) {
	t.Parallel()
	src := seedExpansion(t)
	log, _ := logtest.NewNullLogger()
	e := NewExpander(src, schema.Canonical(), log)

	for _, votes := range []int64{0, -1} {
		x := e.Expand(context.Background(), "m0", votes)
		assert.Equal(t, StatusSkipped, x.Cast.Status)
		assert.Equal(t, StatusSkipped, x.Directors.Status)
		assert.Equal(t, StatusSkipped, x.Writers.Status)
		assert.Equal(t, StatusSkipped, x.Titles.Status)
		assert.Empty(t, x.Cast.Items)
		assert.Empty(t, x.Directors.Items)
		assert.Empty(t, x.Writers.Items)
		assert.Empty(t, x.Titles.Items)
		assert.Equal(t, []string{"Horror"}, x.Genres.Items)
		assert.False(t, x.Expanded())
	}
}

// With zero votes the expander must not issue any query except genres.
func TestExpandZeroVotesIssuesNoRelationshipQueries(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	log, _ := logtest.NewNullLogger()

	mock.ExpectQuery("SELECT genre FROM genres").WithArgs("m0").
		WillReturnRows(sqlmock.NewRows([]string{"genre"}).AddRow("Horror"))

	e := NewExpander(relational.NewSource(db, relational.SQLite), schema.Canonical(), log)
	x := e.Expand(context.Background(), "m0", 0)

	assert.Equal(t, []string{"Horror"}, x.Genres.Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A failing lookup degrades only its own relationship.
func TestExpandLookupFailureIsLocal(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	log, hook := logtest.NewNullLogger()

	mock.ExpectQuery("SELECT genre FROM genres").WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"genre"}).AddRow("Drama"))
	mock.ExpectQuery("FROM principals").WithArgs("m1").
		WillReturnError(errors.New("principals: disk I/O error"))
	mock.ExpectQuery("FROM directors").WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"person_id", "primary_name"}).AddRow("d1", "Director One"))
	mock.ExpectQuery("FROM writers").WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"person_id", "primary_name"}))

	rs, err := schema.NewResolved("movie_id", "person_id", "primary_name", nil)
	require.NoError(t, err)
	e := NewExpander(relational.NewSource(db, relational.SQLite), rs, log)
	x := e.Expand(context.Background(), "m1", 50)

	assert.Equal(t, StatusFailed, x.Cast.Status)
	assert.Error(t, x.Cast.Err)
	assert.Empty(t, x.Cast.Items)
	assert.Equal(t, StatusSkipped, x.Characters.Status, "characters are not looked up without a cast")
	assert.Equal(t, StatusOK, x.Directors.Status)
	assert.Equal(t, StatusEmpty, x.Writers.Status, "empty is distinct from failed")
	assert.Equal(t, StatusSkipped, x.Titles.Status, "alternate titles disabled")
	assert.Equal(t, []string{RelCast}, x.Failed())
	require.NoError(t, mock.ExpectationsWereMet())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, RelCast, hook.LastEntry().Data["relationship"])
}

func TestExpandTitlesWithoutRegionColumn(t *testing.T) {
	t.Parallel()
	src := reltest.Catalog(t)
	reltest.Exec(t, src,
		"CREATE TABLE title_akas (titleId TEXT, titleName TEXT)",
		"INSERT INTO title_akas VALUES ('m1', 'Zeta'), ('m1', 'Alpha'), ('m2', 'Other')",
	)
	log, _ := logtest.NewNullLogger()
	aka := schema.DetectAkaConfig(context.Background(), src, log)
	require.NotNil(t, aka)
	rs, err := schema.NewResolved("movie_id", "person_id", "primary_name", aka)
	require.NoError(t, err)

	x := NewExpander(src, rs, log).Expand(context.Background(), "m1", 10)
	require.Equal(t, StatusOK, x.Titles.Status)
	require.Len(t, x.Titles.Items, 2)
	assert.Equal(t, "Alpha", x.Titles.Items[0].Title)
	assert.Nil(t, x.Titles.Items[0].Region)
	assert.Nil(t, x.Titles.Items[0].Language)
}

func TestExpandTitlesBreakTiesOnRegionAndLanguage(t *testing.T) {
	t.Parallel()
	src := reltest.Catalog(t)
	reltest.Movie(t, src, "m1", "Heat", 1995, 8.3, 700000)
	reltest.Exec(t, src,
		"INSERT INTO titles (movie_id, title, region, language) VALUES ('m1', 'Heat', 'US', 'en'), ('m1', 'Heat', 'GB', 'en'), ('m1', 'Heat', 'GB', 'cy')",
	)
	log, _ := logtest.NewNullLogger()
	e := NewExpander(src, schema.Canonical(), log)
	assert.Contains(t, e.titlesSQL, "ORDER BY title, region, language")

	x := e.Expand(context.Background(), "m1", 10)
	require.Equal(t, StatusOK, x.Titles.Status)
	require.Len(t, x.Titles.Items, 3)
	var got []string
	for _, it := range x.Titles.Items {
		got = append(got, *it.Region+"/"+*it.Language)
	}
	assert.Equal(t, []string{"GB/cy", "GB/en", "US/en"}, got)
}

func TestStatusString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(99).String())
}
