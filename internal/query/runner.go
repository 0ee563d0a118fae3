package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/schema"
)

// Runner executes questions against one target.
type Runner interface {
	Target() string
	Run(ctx context.Context, q Question, p Params) (Result, error)
}

// SQLRunner runs the relational plans.
type SQLRunner struct {
	Source *relational.Source
	Schema *schema.Resolved
}

func (r *SQLRunner) Target() string { return "sql" }

func (r *SQLRunner) Run(ctx context.Context, q Question, p Params) (Result, error) {
	res := Result{Question: q, Target: r.Target(), Rows: []Row{}}
	plan, err := SQLPlan(q, p, r.Schema, r.Source.Dialect)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			res.Unsupported = true
			return res, nil
		}
		return res, err
	}

	start := time.Now()
	rows, err := r.Source.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		if windowUnsupported(q, err) {
			res.Unsupported = true
			return res, nil
		}
		return res, fmt.Errorf("query: %s: %w", q, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key, group, label sql.NullString
			year, count, rank sql.NullInt64
			value             sql.NullFloat64
		)
		if err := rows.Scan(&key, &group, &label, &year, &count, &value, &rank); err != nil {
			return res, fmt.Errorf("query: %s: scan: %w", q, err)
		}
		row := Row{Key: key.String, Group: group.String, Label: label.String, Count: count.Int64, Rank: rank.Int64}
		if year.Valid {
			y := int(year.Int64)
			row.Year = &y
		}
		if value.Valid {
			v := value.Float64
			row.Value = &v
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("query: %s: %w", q, err)
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// windowQuestions are planned with window functions, which older servers
// (MySQL before 8.0, SQLite before 3.25) reject as a syntax error.
var windowQuestions = map[Question]bool{RankByGenre: true, Breakout: true}

func windowUnsupported(q Question, err error) bool {
	if !windowQuestions[q] {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "syntax") {
		return false
	}
	return strings.Contains(msg, "partition") || strings.Contains(msg, "over") || strings.Contains(msg, `near "("`)
}

// Shape selects which collections a MongoRunner queries.
type Shape int

const (
	Normalized Shape = iota
	Flattened
)

func (s Shape) String() string {
	if s == Flattened {
		return "flattened"
	}
	return "normalized"
}

// MongoRunner runs the aggregation renditions.
type MongoRunner struct {
	DB    *mongo.Database
	Shape Shape
	// Collection overrides the flattened collection name.
	Collection string
}

func (r *MongoRunner) Target() string { return r.Shape.String() }

// Pipeline returns the aggregation r would run for q.
func (r *MongoRunner) Pipeline(q Question, p Params) (Pipeline, error) {
	if r.Shape == Flattened {
		pl, err := FlattenedPipeline(q, p)
		if err == nil && r.Collection != "" {
			pl.Collection = r.Collection
		}
		return pl, err
	}
	return NormalizedPipeline(q, p)
}

func (r *MongoRunner) Run(ctx context.Context, q Question, p Params) (Result, error) {
	res := Result{Question: q, Target: r.Target(), Rows: []Row{}}
	pl, err := r.Pipeline(q, p)
	if err != nil {
		return res, err
	}

	start := time.Now()
	cur, err := r.DB.Collection(pl.Collection).Aggregate(ctx, pl.Stages, options.Aggregate().SetAllowDiskUse(true))
	if err == nil {
		err = cur.All(ctx, &res.Rows)
	}
	if err != nil {
		if IsUnsupported(err) {
			res.Unsupported = true
			return res, nil
		}
		return res, fmt.Errorf("query: %s on %s: %w", q, pl.Collection, err)
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// RunAll runs every question in order. A failing question is logged and
// skipped; the returned error joins all failures.
func RunAll(ctx context.Context, r Runner, p Params, log logrus.FieldLogger) ([]Result, error) {
	var (
		out  []Result
		errs []error
	)
	for _, q := range All {
		res, err := r.Run(ctx, q, p)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"question": q.String(), "target": r.Target()}).Warn("query failed")
			errs = append(errs, err)
			continue
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}
