package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qlemen7/cineexplorer/internal/ddl"
	"github.com/qlemen7/cineexplorer/internal/metrics"
	"github.com/qlemen7/cineexplorer/internal/relational"
)

// DefaultBatchSize is the number of rows per insert transaction.
const DefaultBatchSize = 50000

// maxReportedErrors bounds how many soft row errors are logged per file.
const maxReportedErrors = 3

// FileSpec maps one export file onto a source table. Columns are listed in
// file order; trailing file fields beyond them are ignored.
type FileSpec struct {
	File    string
	Table   string
	Columns []string
}

// DefaultFiles is the export layout of the catalog, parents first.
var DefaultFiles = []FileSpec{
	{"movies.csv", ddl.TableMovies, []string{"movie_id", "title_type", "primary_title", "original_title", "is_adult", "start_year", "end_year", "runtime_minutes"}},
	{"persons.csv", ddl.TablePersons, []string{"person_id", "primary_name", "birth_year", "death_year"}},
	{"ratings.csv", ddl.TableRatings, []string{"movie_id", "average_rating", "num_votes"}},
	{"genres.csv", ddl.TableGenres, []string{"movie_id", "genre"}},
	{"principals.csv", ddl.TablePrincipals, []string{"movie_id", "ordering", "person_id", "category", "job"}},
	{"directors.csv", ddl.TableDirectors, []string{"movie_id", "person_id"}},
	{"writers.csv", ddl.TableWriters, []string{"movie_id", "person_id"}},
	{"titles.csv", ddl.TableTitles, []string{"movie_id", "ordering", "title", "region", "language", "types", "attributes", "is_original_title"}},
	{"characters.csv", ddl.TableCharacters, []string{"movie_id", "person_id", "character_name"}},
	{"professions.csv", ddl.TableProfessions, []string{"person_id", "job_name"}},
	{"knownformovies.csv", ddl.TableKnownFor, []string{"person_id", "movie_id"}},
}

// Imported reports one loaded file.
type Imported struct {
	File     string        `json:"file"`
	Table    string        `json:"table"`
	Inserted int64         `json:"inserted"`
	Rejected int64         `json:"rejected"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Importer loads a directory of export files into the source.
type Importer struct {
	Job    string
	Source *relational.Source
	Dir    string
	// Files defaults to DefaultFiles.
	Files     []FileSpec
	BatchSize int
	// CreateTables creates missing canonical tables before loading.
	CreateTables bool
	Log          logrus.FieldLogger
}

// Run loads every file present in Dir. Missing files are skipped with a
// warning; the first load error stops the run.
func (im *Importer) Run(ctx context.Context) (out []Imported, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(im.Job, "import", err, time.Since(start)) }()

	if im.CreateTables {
		if err := im.createTables(ctx); err != nil {
			return nil, err
		}
	}
	files := im.Files
	if len(files) == 0 {
		files = DefaultFiles
	}
	for _, spec := range files {
		path := filepath.Join(im.Dir, spec.File)
		res, err := im.load(ctx, path, spec)
		if errors.Is(err, fs.ErrNotExist) {
			im.Log.WithField("file", path).Warn("ingest: file missing; skipped")
			continue
		}
		if err != nil {
			return out, err
		}
		im.Log.WithFields(logrus.Fields{
			"table": spec.Table, "inserted": res.Inserted, "rejected": res.Rejected, "elapsed": res.Elapsed,
		}).Info("ingest: file loaded")
		metrics.RecordRow(im.Job, "imported", res.Inserted)
		out = append(out, res)
	}
	return out, nil
}

func (im *Importer) createTables(ctx context.Context) error {
	have, err := im.Source.Tables(ctx)
	if err != nil {
		return fmt.Errorf("ingest: list tables: %w", err)
	}
	for _, td := range ddl.SourceTables() {
		if slices.Contains(have, td.Name) {
			continue
		}
		stmt, err := ddl.BuildCreateTableSQL(td)
		if err != nil {
			return err
		}
		if _, err := im.Source.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ingest: create %s: %w", td.Name, err)
		}
		im.Log.WithField("table", td.Name).Info("ingest: table created")
	}
	return nil
}

func (im *Importer) load(ctx context.Context, path string, spec FileSpec) (Imported, error) {
	res := Imported{File: spec.File, Table: spec.Table}
	f, err := os.Open(path)
	if err != nil {
		return res, err
	}
	defer f.Close()

	batch := im.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	log := im.Log.WithField("table", spec.Table)
	t0 := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, min(batch, 4096))
	g.Go(func() error {
		defer close(rows)
		return StreamRecords(gctx, f, len(spec.Columns), rows, func(line int, err error) {
			res.Rejected++
			if res.Rejected <= maxReportedErrors {
				log.WithError(err).WithField("line", line).Warn("ingest: record skipped")
			}
		})
	})
	g.Go(func() error {
		n, err := LoadBatches(gctx, spec.Columns, rows, batch, InsertCopier(im.Source, spec.Table), log)
		res.Inserted = n
		return err
	})
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("ingest: %s: %w", spec.File, err)
	}
	res.Elapsed = time.Since(t0)
	return res, nil
}
