package docstore

import (
	"context"
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

// MirrorTables are copied 1:1 into same-named collections. The alternate
// title table is handled separately and always lands in "titles".
var MirrorTables = []string{
	"movies", "persons", "ratings", "genres", "principals",
	"directors", "writers", "characters", "professions", "known_for",
}

// TitlesCollection receives the alternate-title table whatever its source name.
const TitlesCollection = "titles"

// MirrorLockKey is the run lock key held while the mirror collections are rebuilt.
const MirrorLockKey = "mirror"

// MirrorResult reports one copied table.
type MirrorResult struct {
	Table      string
	Collection string
	Inserted   int64
}

// Mirror copies relational tables into flat collections, renaming drifted
// key columns to their canonical names so the normalized query plans see a
// single naming scheme.
type Mirror struct {
	Source    *relational.Source
	DB        *mongo.Database
	Schema    *schema.Resolved
	Lock      Locker
	BatchSize int
	Log       logrus.FieldLogger
}

// Run copies every mirror table present in the source and creates the
// mirror index set. Tables missing from the source are skipped with a log line.
func (m *Mirror) Run(ctx context.Context) ([]MirrorResult, error) {
	if m.Lock != nil {
		release, err := m.Lock.Acquire(ctx, MirrorLockKey)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				m.Log.WithError(err).Warn("mirror: release run lock")
			}
		}()
	}
	tables, err := m.Source.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("docstore: mirror: list tables: %w", err)
	}
	present := map[string]bool{}
	for _, t := range tables {
		present[t] = true
	}

	type job struct{ table, coll string }
	var jobs []job
	for _, t := range MirrorTables {
		if !present[t] {
			m.Log.WithField("table", t).Warn("mirror: table not in source; skipped")
			continue
		}
		jobs = append(jobs, job{t, t})
	}
	if aka, ok := m.Schema.Aka(); ok {
		jobs = append(jobs, job{aka.Table, TitlesCollection})
	}

	indexes := MirrorIndexes()
	var out []MirrorResult
	for _, j := range jobs {
		coll := m.DB.Collection(j.coll)
		n, err := LoadDocuments(ctx, NewCollectionSink(coll), m.tableDocs(ctx, j.table), LoadOptions{
			BatchSize: m.BatchSize,
			Log:       m.Log.WithField("table", j.table),
		})
		if err != nil {
			return out, fmt.Errorf("docstore: mirror %s: %w", j.table, err)
		}
		if err := EnsureIndexes(ctx, coll, indexes[j.coll]); err != nil {
			return out, err
		}
		m.Log.WithFields(logrus.Fields{"table": j.table, "collection": j.coll, "inserted": n}).Info("mirror: table copied")
		out = append(out, MirrorResult{Table: j.table, Collection: j.coll, Inserted: n})
	}
	return out, nil
}

// tableDocs streams every row of table as a bson.D in column order.
func (m *Mirror) tableDocs(ctx context.Context, table string) iter.Seq2[any, error] {
	renames := m.Schema.Renames(table)
	return func(yield func(any, error) bool) {
		rows, err := m.Source.QueryContext(ctx, "SELECT * FROM "+table)
		if err != nil {
			yield(nil, fmt.Errorf("read %s: %w", table, err))
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			yield(nil, err)
			return
		}
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c
			if to, ok := renames[c]; ok {
				names[i] = to
			}
		}

		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, fmt.Errorf("scan %s: %w", table, err))
				return
			}
			doc := make(bson.D, len(cols))
			for i := range cols {
				v := vals[i]
				if b, ok := v.([]byte); ok {
					v = string(b)
				}
				doc[i] = bson.E{Key: names[i], Value: v}
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}
