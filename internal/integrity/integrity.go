// Package integrity finds and optionally removes link rows that point at
// movies or persons missing from the source.
package integrity

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

// LinkTables reference both a movie and a person.
var LinkTables = []string{"characters", "principals", "writers", "directors"}

// Orphans counts rows of Table whose key has no row in Parent.
type Orphans struct {
	Table   string `json:"table"`
	Parent  string `json:"parent"`
	Found   int64  `json:"found"`
	Deleted int64  `json:"deleted"`
}

// Checker scans the link tables.
type Checker struct {
	Source *relational.Source
	Schema *schema.Resolved
	Log    logrus.FieldLogger
}

type check struct {
	table, parent, key string
}

func (c *Checker) checks(ctx context.Context) ([]check, error) {
	tables, err := c.Source.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity: list tables: %w", err)
	}
	var out []check
	for _, t := range LinkTables {
		if !slices.Contains(tables, t) {
			c.Log.WithField("table", t).Debug("integrity: table absent; skipped")
			continue
		}
		out = append(out,
			check{t, "persons", c.Schema.PersonKey()},
			check{t, "movies", c.Schema.MovieKey()},
		)
	}
	return out, nil
}

func (k check) where() string {
	return fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %[2]s p WHERE p.%[3]s = %[1]s.%[3]s)", k.table, k.parent, k.key)
}

// Run counts orphans per (table, parent). With fix set the orphans are
// deleted in one transaction; any failure rolls every delete back.
func (c *Checker) Run(ctx context.Context, fix bool) ([]Orphans, error) {
	checks, err := c.checks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Orphans, 0, len(checks))
	for _, k := range checks {
		o := Orphans{Table: k.table, Parent: k.parent}
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", k.table, k.where())
		if err := c.Source.QueryRowContext(ctx, q).Scan(&o.Found); err != nil {
			return nil, fmt.Errorf("integrity: count %s: %w", k.table, err)
		}
		out = append(out, o)
	}
	if !fix {
		return out, nil
	}

	tx, err := c.Source.DB.BeginTx(ctx, nil)
	if err != nil {
		return out, fmt.Errorf("integrity: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for i, k := range checks {
		if out[i].Found == 0 {
			continue
		}
		res, err := tx.ExecContext(ctx, c.Source.Dialect.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s", k.table, k.where())))
		if err != nil {
			return out, fmt.Errorf("integrity: delete from %s: %w", k.table, err)
		}
		n, _ := res.RowsAffected()
		out[i].Deleted = n
		c.Log.WithFields(logrus.Fields{"table": k.table, "parent": k.parent, "deleted": n}).Info("integrity: orphans removed")
	}
	if err := tx.Commit(); err != nil {
		return out, fmt.Errorf("integrity: commit: %w", err)
	}
	return out, nil
}
