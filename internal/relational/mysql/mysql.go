// Package mysql registers the MySQL source backend.
package mysql

import (
	"context"

	_ "github.com/go-sql-driver/mysql"

	"github.com/qlemen7/cineexplorer/internal/relational"
)

func init() {
	relational.Register("mysql", func(ctx context.Context, cfg relational.Config) (*relational.Source, error) {
		return relational.OpenDB(ctx, "mysql", cfg.DSN, relational.MySQL)
	})
}
