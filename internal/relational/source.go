package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Source is an open relational catalog plus the dialect used to talk to it.
// It satisfies schema.Catalog.
type Source struct {
	DB      *sql.DB
	Dialect Dialect
}

// NewSource wraps an already opened *sql.DB.
func NewSource(db *sql.DB, d Dialect) *Source {
	return &Source{DB: db, Dialect: d}
}

// OpenDB opens driverName with dsn and pings it with a short timeout so
// invalid DSNs fail fast.
func OpenDB(ctx context.Context, driverName, dsn string, d Dialect) (*Source, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", d.Name)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name, err)
	}
	return &Source{DB: db, Dialect: d}, nil
}

// QueryContext rebinds placeholders and runs the query.
func (s *Source) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.DB.QueryContext(ctx, s.Dialect.Rebind(query), args...)
}

// QueryRowContext rebinds placeholders and runs a single-row query.
func (s *Source) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.DB.QueryRowContext(ctx, s.Dialect.Rebind(query), args...)
}

// ExecContext rebinds placeholders and executes the statement.
func (s *Source) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.DB.ExecContext(ctx, s.Dialect.Rebind(query), args...)
}

// Tables lists the base tables visible to the connection.
func (s *Source) Tables(ctx context.Context) ([]string, error) {
	return s.strings(ctx, s.Dialect.tablesQuery)
}

// Columns lists the columns of table in declaration order. An unknown table
// yields an empty list.
func (s *Source) Columns(ctx context.Context, table string) ([]string, error) {
	return s.strings(ctx, s.Dialect.columnsQuery, table)
}

// Indexes lists the names of user-defined indexes.
func (s *Source) Indexes(ctx context.Context) ([]string, error) {
	return s.strings(ctx, s.Dialect.indexesQuery)
}

// Close releases the underlying connection pool.
func (s *Source) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *Source) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
