// Package sqlite registers the SQLite source backend (modernc.org/sqlite,
// pure Go, no cgo).
package sqlite

import (
	"context"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/qlemen7/cineexplorer/internal/relational"
)

// openDB is a test hook.
var openDB = relational.OpenDB

// Open opens a SQLite database. In-memory databases are pinned to a single
// connection so every query sees the same data.
func Open(ctx context.Context, dsn string) (*relational.Source, error) {
	src, err := openDB(ctx, "sqlite", dsn, relational.SQLite)
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		src.DB.SetMaxOpenConns(1)
	}
	_, _ = src.DB.ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	return src, nil
}

func init() {
	relational.Register("sqlite", func(ctx context.Context, cfg relational.Config) (*relational.Source, error) {
		return Open(ctx, cfg.DSN)
	})
}
