// Package postgres registers the PostgreSQL source backend via the pgx
// database/sql driver.
package postgres

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/qlemen7/cineexplorer/internal/relational"
)

func init() {
	relational.Register("postgres", func(ctx context.Context, cfg relational.Config) (*relational.Source, error) {
		return relational.OpenDB(ctx, "pgx", cfg.DSN, relational.Postgres)
	})
}
