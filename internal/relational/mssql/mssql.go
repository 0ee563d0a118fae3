// Package mssql registers the SQL Server source backend.
package mssql

import (
	"context"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/qlemen7/cineexplorer/internal/relational"
)

func init() {
	relational.Register("mssql", func(ctx context.Context, cfg relational.Config) (*relational.Source, error) {
		return relational.OpenDB(ctx, "sqlserver", cfg.DSN, relational.MSSQL)
	})
}
