package bench

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qlemen7/cineexplorer/internal/ddl"
	"github.com/qlemen7/cineexplorer/internal/docstore"
	"github.com/qlemen7/cineexplorer/internal/relational"
)

// IndexSet is a documented group of secondary indexes that can be brought
// into or out of existence. Both operations are idempotent.
type IndexSet interface {
	Name() string
	Create(ctx context.Context) error
	Drop(ctx context.Context) error
}

// SQLIndexes manages relational indexes. Existing names are read from the
// catalog first so repeated calls are no-ops.
type SQLIndexes struct {
	Source *relational.Source
	Defs   []ddl.IndexDef
	Log    logrus.FieldLogger
}

// NewSQLIndexes returns the benchmark index set for src.
func NewSQLIndexes(src *relational.Source, log logrus.FieldLogger) *SQLIndexes {
	return &SQLIndexes{Source: src, Defs: ddl.BenchmarkIndexes(), Log: log}
}

func (s *SQLIndexes) Name() string { return "sql:" + s.Source.Dialect.Name }

func (s *SQLIndexes) existing(ctx context.Context) (map[string]bool, error) {
	names, err := s.Source.Indexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("bench: list indexes: %w", err)
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	return have, nil
}

func (s *SQLIndexes) Create(ctx context.Context) error {
	have, err := s.existing(ctx)
	if err != nil {
		return err
	}
	cols := map[string][]string{}
	for _, d := range s.Defs {
		if have[d.Name] {
			continue
		}
		if _, ok := cols[d.Table]; !ok {
			if cols[d.Table], err = s.Source.Columns(ctx, d.Table); err != nil {
				return fmt.Errorf("bench: columns of %s: %w", d.Table, err)
			}
		}
		if !containsAll(cols[d.Table], d.Columns) {
			s.Log.WithFields(logrus.Fields{"index": d.Name, "table": d.Table}).Warn("bench: indexed column missing; skipped")
			continue
		}
		stmt, err := ddl.BuildCreateIndexSQL(d)
		if err != nil {
			return err
		}
		if _, err := s.Source.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bench: create %s: %w", d.Name, err)
		}
	}
	return nil
}

func (s *SQLIndexes) Drop(ctx context.Context) error {
	have, err := s.existing(ctx)
	if err != nil {
		return err
	}
	for _, d := range s.Defs {
		if !have[d.Name] {
			continue
		}
		if _, err := s.Source.ExecContext(ctx, s.Source.Dialect.DropIndex(d.Name, d.Table)); err != nil {
			return fmt.Errorf("bench: drop %s: %w", d.Name, err)
		}
	}
	return nil
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

// MongoIndexes manages named indexes across collections of one database.
type MongoIndexes struct {
	Label string
	DB    *mongo.Database
	Specs map[string][]docstore.IndexSpec
}

// NewMirrorIndexes is the index set of the flat mirror collections.
func NewMirrorIndexes(db *mongo.Database) *MongoIndexes {
	return &MongoIndexes{Label: "mongo:mirror", DB: db, Specs: docstore.MirrorIndexes()}
}

// NewMaterializedIndexes is the index set of the materialized collection.
func NewMaterializedIndexes(db *mongo.Database, collection string) *MongoIndexes {
	return &MongoIndexes{
		Label: "mongo:" + collection,
		DB:    db,
		Specs: map[string][]docstore.IndexSpec{collection: docstore.MaterializedIndexes()},
	}
}

func (m *MongoIndexes) Name() string { return m.Label }

func (m *MongoIndexes) collections() []string {
	names := make([]string, 0, len(m.Specs))
	for c := range m.Specs {
		names = append(names, c)
	}
	slices.Sort(names)
	return names
}

func (m *MongoIndexes) Create(ctx context.Context) error {
	for _, c := range m.collections() {
		if err := docstore.EnsureIndexes(ctx, m.DB.Collection(c), m.Specs[c]); err != nil {
			return fmt.Errorf("bench: %w", err)
		}
	}
	return nil
}

func (m *MongoIndexes) Drop(ctx context.Context) error {
	for _, c := range m.collections() {
		if err := docstore.DropIndexes(ctx, m.DB.Collection(c), m.Specs[c]); err != nil {
			return fmt.Errorf("bench: %w", err)
		}
	}
	return nil
}
