package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qlemen7/cineexplorer/internal/relational"
)

// CopyFn inserts rows aligned to columns and returns how many were inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the number of rows
// reported by copyFn and the first error encountered. Every flush logs a
// progress line with running totals and rows per second.
func LoadBatches(ctx context.Context, columns []string, in <-chan []any, batchSize int, copyFn CopyFn, log logrus.FieldLogger) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("ingest: batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("ingest: copyFn must not be nil")
	}

	var (
		total     int64
		batches   int64
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
		lastTotal int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.WithError(err).WithField("total", total).Error("ingest: batch insert failed")
			return err
		}

		batches++
		now := time.Now()
		rps := float64(0)
		if since := now.Sub(lastFlush); since > 0 {
			rps = float64(total-lastTotal) / since.Seconds()
		}
		log.WithFields(logrus.Fields{
			"batch":    batches,
			"inserted": n,
			"total":    total,
			"rps":      int64(rps),
			"elapsed":  now.Sub(start).Truncate(time.Millisecond),
		}).Debug("ingest: batch flushed")
		lastFlush, lastTotal = now, total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return total, flush()
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// InsertCopier returns a CopyFn that inserts each batch into table inside a
// single transaction with a prepared statement.
func InsertCopier(src *relational.Source, table string) CopyFn {
	return func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		if len(columns) == 0 {
			return 0, fmt.Errorf("ingest: %s: columns must not be empty", table)
		}
		if len(rows) == 0 {
			return 0, nil
		}
		stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table,
			strings.Join(columns, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))

		tx, err := src.DB.BeginTx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("ingest: %s: begin: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, src.Dialect.Rebind(stmtSQL))
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("ingest: %s: prepare: %w", table, err)
		}
		defer stmt.Close()

		var inserted int64
		for _, row := range rows {
			if len(row) != len(columns) {
				_ = tx.Rollback()
				return 0, fmt.Errorf("ingest: %s: row length %d != columns length %d", table, len(row), len(columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				_ = tx.Rollback()
				return 0, fmt.Errorf("ingest: %s: insert: %w", table, err)
			}
			inserted++
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("ingest: %s: commit: %w", table, err)
		}
		return inserted, nil
	}
}
