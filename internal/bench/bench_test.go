package bench

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlemen7/cineexplorer/internal/query"
	"github.com/qlemen7/cineexplorer/internal/relational/reltest"
)

type fakeRunner struct {
	calls   int
	fail    query.Question
	lacking query.Question
}

func (f *fakeRunner) Target() string { return "fake" }

func (f *fakeRunner) Run(_ context.Context, q query.Question, _ query.Params) (query.Result, error) {
	f.calls++
	if q == f.fail {
		return query.Result{}, errors.New("boom")
	}
	return query.Result{Question: q, Rows: make([]query.Row, int(q)), Unsupported: q == f.lacking}, nil
}

type fakeIndexes struct{ log []string }

func (f *fakeIndexes) Name() string                 { return "fake" }
func (f *fakeIndexes) Create(context.Context) error { f.log = append(f.log, "create"); return nil }
func (f *fakeIndexes) Drop(context.Context) error   { f.log = append(f.log, "drop"); return nil }

func TestHarnessRun(t *testing.T) {
	t.Parallel()
	log, _ := logtest.NewNullLogger()
	r := &fakeRunner{lacking: query.RankByGenre}
	idx := &fakeIndexes{}

	rep, err := (&Harness{Repeat: 2, Log: log}).Run(context.Background(), r, idx)
	require.NoError(t, err)

	assert.Equal(t, []string{"drop", "create"}, idx.log)
	assert.Equal(t, 2*2*len(query.All), r.calls)
	require.Len(t, rep.Measurements, len(query.All))
	assert.Equal(t, 4, rep.Measurements[3].Rows)
	assert.True(t, rep.Measurements[6].Unsupported)
	assert.True(t, math.IsNaN(rep.Measurements[6].Gain()))
	assert.Equal(t, "fake", rep.Target)
}

func TestHarnessStopsOnQueryError(t *testing.T) {
	t.Parallel()
	log, _ := logtest.NewNullLogger()
	idx := &fakeIndexes{}

	_, err := (&Harness{Log: log}).Run(context.Background(), &fakeRunner{fail: query.Career}, idx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Q6 career")
	assert.Equal(t, []string{"drop"}, idx.log)
}

func TestMeasurementGain(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 75.0, Measurement{Without: 400 * time.Millisecond, With: 100 * time.Millisecond}.Gain(), 1e-9)
	assert.InDelta(t, -100.0, Measurement{Without: 100 * time.Millisecond, With: 200 * time.Millisecond}.Gain(), 1e-9)
	assert.True(t, math.IsNaN(Measurement{}.Gain()))
}

func TestReportWriteTable(t *testing.T) {
	t.Parallel()
	rep := Report{
		Target: "sql", Indexes: "sql:sqlite", Started: time.Now(),
		Measurements: []Measurement{
			{Question: query.Filmography, Without: 40 * time.Millisecond, With: 10 * time.Millisecond, Rows: 1234},
			{Question: query.RankByGenre, Unsupported: true},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, rep.WriteTable(&buf))
	out := buf.String()

	assert.Contains(t, out, "target=sql indexes=sql:sqlite")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "75%")
	assert.Contains(t, out, "unsupported")
	assert.Equal(t, 5, strings.Count(out, "\n"))
}

func TestSQLIndexesAreIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log, hook := logtest.NewNullLogger()
	src := reltest.Catalog(t)
	idx := NewSQLIndexes(src, log)

	require.NoError(t, idx.Drop(ctx))
	require.NoError(t, idx.Create(ctx))
	require.NoError(t, idx.Create(ctx))

	names, err := src.Indexes(ctx)
	require.NoError(t, err)
	assert.Len(t, names, len(idx.Defs))
	assert.Empty(t, hook.Entries)

	require.NoError(t, idx.Drop(ctx))
	require.NoError(t, idx.Drop(ctx))
	names, err = src.Indexes(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSQLIndexesSkipMissingColumns(t *testing.T) {
	t.Parallel()
	log, hook := logtest.NewNullLogger()
	src := reltest.Empty(t)
	reltest.Exec(t, src, `CREATE TABLE persons (nconst TEXT PRIMARY KEY, name TEXT)`)
	idx := &SQLIndexes{Source: src, Defs: NewSQLIndexes(src, log).Defs[:1], Log: log}

	require.NoError(t, idx.Create(context.Background()))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "idx_persons_name", hook.LastEntry().Data["index"])
}
