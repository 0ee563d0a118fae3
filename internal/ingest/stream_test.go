package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string, width int) ([][]any, []int) {
	t.Helper()
	out := make(chan []any, 64)
	var bad []int
	err := StreamRecords(context.Background(), strings.NewReader(input), width, out, func(line int, _ error) {
		bad = append(bad, line)
	})
	require.NoError(t, err)
	close(out)
	var rows [][]any
	for r := range out {
		rows = append(rows, r)
	}
	return rows, bad
}

func TestDetectComma(t *testing.T) {
	t.Parallel()
	assert.Equal(t, '\t', DetectComma("mid\tgenre"))
	assert.Equal(t, ',', DetectComma("mid,name,('Forrest',)"))
}

func TestStreamRecordsTSV(t *testing.T) {
	t.Parallel()
	input := "mid\tname\tbirth\n" +
		"nm1\tTom Hanks\t1956\n" +
		"nm2\t\\N\tNaN\n" +
		"nm3\tshort\n" +
		"nm4\tExtra\t1970\tignored\n"
	rows, bad := collect(t, input, 3)

	require.Len(t, rows, 3)
	assert.Equal(t, []any{"nm1", "Tom Hanks", "1956"}, rows[0])
	assert.Equal(t, []any{"nm2", nil, nil}, rows[1])
	assert.Equal(t, []any{"nm4", "Extra", "1970"}, rows[2])
	assert.Equal(t, []int{4}, bad)
}

func TestStreamRecordsHeaderOnlyAndEmpty(t *testing.T) {
	t.Parallel()
	rows, bad := collect(t, "mid\tgenre\n", 2)
	assert.Empty(t, rows)
	assert.Empty(t, bad)

	rows, _ = collect(t, "", 2)
	assert.Empty(t, rows)
}

func TestStreamRecordsStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan []any)
	err := StreamRecords(ctx, strings.NewReader("a\tb\n1\t2\n"), 2, out, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
