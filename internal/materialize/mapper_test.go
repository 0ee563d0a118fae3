package materialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlemen7/cineexplorer/internal/movie"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

func TestMapMovieRow(t *testing.T) {
	t.Parallel()

	rs := schema.Canonical()
	doc := MapMovieRow(movie.Row{
		"movie_id":        "tt1",
		"title_type":      "movie",
		"primary_title":   "Amélie",
		"original_title":  "Le Fabuleux Destin d'Amélie Poulain",
		"is_adult":        int64(0),
		"start_year":      int64(2001),
		"end_year":        nil,
		"runtime_minutes": "122",
		"rating_key":      "tt1",
		"average_rating":  8.3,
		"num_votes":       int64(780000),
	}, rs)

	assert.Equal(t, "tt1", doc.ID)
	assert.Equal(t, "Amélie", doc.Title)
	assert.Equal(t, "amelie", doc.SortTitle)
	require.NotNil(t, doc.Year)
	assert.Equal(t, 2001, *doc.Year)
	assert.Nil(t, doc.EndYear)
	require.NotNil(t, doc.Runtime)
	assert.Equal(t, 122, *doc.Runtime)
	assert.False(t, doc.IsAdult)
	require.NotNil(t, doc.Rating)
	require.NotNil(t, doc.Rating.Votes)
	assert.Equal(t, int64(780000), *doc.Rating.Votes)
	assert.InDelta(t, 8.3, *doc.Rating.Average, 1e-9)

	assert.NotNil(t, doc.Cast)
	assert.NotNil(t, doc.Genres)
	assert.NotNil(t, doc.Titles)
}

func TestMapMovieRowWithoutRating(t *testing.T) {
	t.Parallel()

	doc := MapMovieRow(movie.Row{
		"movie_id":       "tt2",
		"primary_title":  "Obscure",
		"rating_key":     nil,
		"average_rating": nil,
		"num_votes":      nil,
	}, schema.Canonical())

	assert.Nil(t, doc.Rating, "missing rating must stay null, not zero")
	assert.Equal(t, int64(0), doc.Rating.VoteCount())
}

func TestMapMovieRowZeroRatingIsNotNull(t *testing.T) {
	t.Parallel()

	doc := MapMovieRow(movie.Row{
		"movie_id":       "tt3",
		"rating_key":     "tt3",
		"average_rating": 0.0,
		"num_votes":      int64(0),
	}, schema.Canonical())

	require.NotNil(t, doc.Rating)
	require.NotNil(t, doc.Rating.Votes)
	assert.Equal(t, int64(0), *doc.Rating.Votes)
}

func TestMapMovieRowDriftedKey(t *testing.T) {
	t.Parallel()

	rs, err := schema.NewResolved("tconst", "nconst", "primaryName", nil)
	require.NoError(t, err)
	doc := MapMovieRow(movie.Row{"tconst": []byte("tt9"), "primary_title": "X"}, rs)
	assert.Equal(t, "tt9", doc.ID)
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{int64(1), true},
		{int64(0), false},
		{1.0, true},
		{"1", true},
		{"0", false},
		{"TRUE", true},
		{" yes ", true},
		{"no", false},
		{[]byte("t"), true},
		{struct{}{}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, truthy(c.in), "truthy(%#v)", c.in)
	}
}

func TestSortKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lesmiserables", SortKey("Les Misérables"))
	assert.Equal(t, "alive", SortKey("#Alive"))
	assert.Equal(t, "the500movie", SortKey("The $5.00 Movie"))
	assert.Equal(t, "cafe", SortKey("CAFÉ"))
	assert.Equal(t, "", SortKey(""))
}

func TestNumericConversions(t *testing.T) {
	t.Parallel()

	assert.Nil(t, asInt64Ptr("n/a"))
	assert.Equal(t, int64(7), *asInt64Ptr("7.9"))
	assert.Equal(t, int64(5), *asInt64Ptr(int32(5)))
	assert.Nil(t, asFloatPtr("x"))
	assert.InDelta(t, 6.5, *asFloatPtr([]byte("6.5")), 1e-9)
	assert.Equal(t, "12", asString(int64(12)))
}
