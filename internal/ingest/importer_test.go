package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlemen7/cineexplorer/internal/relational/reltest"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestImporterLoadsPresentFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "movies.csv",
		"mid\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\n"+
			"tt1\tmovie\tBig\tBig\t0\t1988\t\\N\t104\n"+
			"tt2\tmovie\tSplash\tSplash\t0\t1984\t\\N\t111\n")
	writeFile(t, dir, "persons.csv", "pid\tprimaryName\tbirthYear\tdeathYear\nnm1\tTom Hanks\t1956\t\\N\n")
	writeFile(t, dir, "principals.csv",
		"mid\tordering\tpid\tcategory\tjob\n"+
			"tt1\t1\tnm1\tactor\t\\N\n"+
			"tt2\t2\n")

	log, hook := logtest.NewNullLogger()
	src := reltest.Empty(t)
	im := &Importer{Job: "test", Source: src, Dir: dir, BatchSize: 1, CreateTables: true, Log: log}
	got, err := im.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "movies", got[0].Table)
	assert.Equal(t, int64(2), got[0].Inserted)
	assert.Equal(t, int64(1), got[2].Inserted)
	assert.Equal(t, int64(1), got[2].Rejected)

	var person string
	var ordering int
	require.NoError(t, src.DB.QueryRow(`SELECT person_id, ordering FROM principals WHERE movie_id = 'tt1'`).Scan(&person, &ordering))
	assert.Equal(t, "nm1", person)
	assert.Equal(t, 1, ordering)

	var endYear *int
	require.NoError(t, src.DB.QueryRow(`SELECT end_year FROM movies WHERE movie_id = 'tt1'`).Scan(&endYear))
	assert.Nil(t, endYear)

	missing := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "ingest: file missing; skipped" {
			missing++
		}
	}
	assert.Equal(t, len(DefaultFiles)-3, missing)
}

func TestImporterFailsOnDuplicateKeys(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "genres.csv", "mid\tgenre\ntt1\tDrama\ntt1\tDrama\n")

	log, _ := logtest.NewNullLogger()
	im := &Importer{Source: reltest.Catalog(t), Dir: dir, Log: log}
	_, err := im.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genres.csv")
}

func TestImporterWithoutTablesFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "genres.csv", "mid\tgenre\ntt1\tDrama\n")

	log, _ := logtest.NewNullLogger()
	im := &Importer{Source: reltest.Empty(t), Dir: dir, Files: DefaultFiles[3:4], Log: log}
	_, err := im.Run(context.Background())
	assert.Error(t, err)
}
