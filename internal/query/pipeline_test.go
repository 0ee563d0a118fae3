package query

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func extJSON(t *testing.T, p Pipeline) string {
	t.Helper()
	b, err := bson.MarshalExtJSON(bson.D{{Key: "stages", Value: p.Stages}}, false, false)
	require.NoError(t, err)
	return string(b)
}

func TestPipelinesRenderForEveryQuestion(t *testing.T) {
	t.Parallel()
	for _, q := range All {
		n, err := NormalizedPipeline(q, DefaultParams())
		require.NoError(t, err, q.String())
		assert.NotEqual(t, FlattenedCollection, n.Collection, q.String())
		assert.NotContains(t, extJSON(t, n), `"movies_complete"`)

		f, err := FlattenedPipeline(q, DefaultParams())
		require.NoError(t, err, q.String())
		assert.Equal(t, FlattenedCollection, f.Collection)
		assert.NotContains(t, extJSON(t, f), "$lookup", q.String())

		// Both end in the shared Row projection.
		for _, p := range []Pipeline{n, f} {
			last := p.Stages[len(p.Stages)-1]
			if last[0].Key == "$sort" {
				last = p.Stages[len(p.Stages)-2]
			}
			assert.Equal(t, "$project", last[0].Key, q.String())
		}
	}
}

func TestPersonNameIsQuoted(t *testing.T) {
	t.Parallel()
	p := Params{Person: "J. (Jr.)"}

	f, err := FlattenedPipeline(Filmography, p)
	require.NoError(t, err)
	assert.Contains(t, extJSON(t, f), `J\\. \\(Jr\\.\\)`)

	n, err := NormalizedPipeline(Collaborations, p)
	require.NoError(t, err)
	assert.Equal(t, "persons", n.Collection)
	assert.Contains(t, extJSON(t, n), `"$options":"i"`)
}

func TestRankUsesWindowStage(t *testing.T) {
	t.Parallel()
	for _, build := range []func(Question, Params) (Pipeline, error){NormalizedPipeline, FlattenedPipeline} {
		p, err := build(RankByGenre, Params{})
		require.NoError(t, err)
		s := extJSON(t, p)
		assert.Contains(t, s, "$setWindowFields")
		assert.Contains(t, s, `"$rank":{}`)
	}
}

func TestMongoRunnerCollectionOverride(t *testing.T) {
	t.Parallel()
	r := &MongoRunner{Shape: Flattened, Collection: "movies_v2"}
	p, err := r.Pipeline(Breakout, Params{})
	require.NoError(t, err)
	assert.Equal(t, "movies_v2", p.Collection)
	assert.Equal(t, "flattened", r.Target())

	r = &MongoRunner{Shape: Normalized, Collection: "movies_v2"}
	p, err = r.Pipeline(Breakout, Params{})
	require.NoError(t, err)
	assert.Equal(t, "ratings", p.Collection)
}

func TestIsUnsupported(t *testing.T) {
	t.Parallel()
	assert.False(t, IsUnsupported(nil))
	assert.True(t, IsUnsupported(fmt.Errorf("wrap: %w", ErrUnsupported)))
	assert.True(t, IsUnsupported(mongo.CommandError{Code: 40324, Message: "Unrecognized pipeline stage name: '$setWindowFields'"}))
	assert.True(t, IsUnsupported(errors.New("(Location40324) Unrecognized pipeline stage name")))
	assert.False(t, IsUnsupported(mongo.CommandError{Code: 11600, Message: "interrupted"}))
}

func TestParse(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Question{"q1": Filmography, "7": RankByGenre, "Breakout": Breakout, " Q9 ": FrenchLongHits} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := Parse("q10")
	assert.Error(t, err)
	assert.Equal(t, "Q3 multi_role", MultiRole.String())
}
