// Package main wires the cinemigrate commands. Each command builds only the
// connections it needs from the loaded configuration; the command layer
// never imports a database driver directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qlemen7/cineexplorer/internal/bench"
	"github.com/qlemen7/cineexplorer/internal/catalog"
	"github.com/qlemen7/cineexplorer/internal/config"
	"github.com/qlemen7/cineexplorer/internal/docstore"
	"github.com/qlemen7/cineexplorer/internal/ingest"
	"github.com/qlemen7/cineexplorer/internal/integrity"
	"github.com/qlemen7/cineexplorer/internal/logging"
	"github.com/qlemen7/cineexplorer/internal/materialize"
	"github.com/qlemen7/cineexplorer/internal/metrics"
	"github.com/qlemen7/cineexplorer/internal/metrics/datadog"
	"github.com/qlemen7/cineexplorer/internal/metrics/prompush"
	"github.com/qlemen7/cineexplorer/internal/query"
	"github.com/qlemen7/cineexplorer/internal/relational"
	"github.com/qlemen7/cineexplorer/internal/schema"
	"github.com/qlemen7/cineexplorer/internal/web"
)

// Function variables used as test seams. Production values open real
// connections; tests swap in in-memory fixtures.
var (
	loadConfigFn = config.Load
	newLoggerFn  = logging.New
	openSourceFn = relational.Open

	connectMongoFn = func(ctx context.Context, cfg config.Mongo) (*mongo.Client, error) {
		return docstore.Connect(ctx, docstore.Config{
			URI:         cfg.URI,
			Database:    cfg.Database,
			Timeout:     cfg.Timeout.Duration,
			ReplicaSet:  cfg.ReplicaSet,
			MaxPoolSize: cfg.MaxPoolSize,
		})
	}
)

// app holds the resolved configuration and lazily opened connections of
// one command invocation.
type app struct {
	cfg config.Config
	log *logrus.Entry
	out io.Writer

	src     *relational.Source
	client  *mongo.Client
	closers []func() error
}

// newApp loads and validates configuration, then sets up logging and the
// metrics backend. Validation errors abort; warnings are logged.
func newApp(opts globalOptions, out io.Writer) (*app, error) {
	cfg, err := loadConfigFn(opts.configPath, opts.envFile)
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	issues := config.Validate(cfg)
	if config.HasErrors(issues) {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(issueErrors(issues)...))
	}

	log, closer, err := newLoggerFn(cfg.Log, cfg.Job)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, out: out}
	a.closers = append(a.closers, closer.Close)
	for _, iss := range issues {
		log.WithField("path", iss.Path).Warn(iss.Message)
	}

	if err := a.setupMetrics(); err != nil {
		log.WithError(err).Warn("metrics: backend unavailable; metrics disabled")
	}
	return a, nil
}

func issueErrors(issues []config.Issue) []error {
	var out []error
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			out = append(out, iss)
		}
	}
	return out
}

func (a *app) setupMetrics() error {
	var (
		b   metrics.Backend
		err error
	)
	switch a.cfg.Metrics.Backend {
	case "", "none":
		a.log.Debug("metrics: disabled")
		return nil
	case "prometheus":
		b, err = prompush.NewBackend(a.cfg.Job, a.cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       a.cfg.Metrics.DatadogAddr,
			Namespace:  "cineexplorer.",
			GlobalTags: []string{"job:" + a.cfg.Job},
		})
	default:
		return fmt.Errorf("unknown backend %q", a.cfg.Metrics.Backend)
	}
	if err != nil {
		return err
	}
	metrics.SetBackend(b)
	a.log.WithField("backend", a.cfg.Metrics.Backend).Info("metrics: enabled")
	a.closers = append(a.closers, metrics.Flush)
	return nil
}

// Close flushes metrics, disconnects and closes the log file, in reverse
// order of setup.
func (a *app) Close() {
	if a.src != nil {
		if err := a.src.Close(); err != nil {
			a.log.WithError(err).Warn("close source")
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(context.Background()); err != nil {
			a.log.WithError(err).Warn("disconnect docstore")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close")
		}
	}
}

func (a *app) source(ctx context.Context) (*relational.Source, error) {
	if a.src != nil {
		return a.src, nil
	}
	src, err := openSourceFn(ctx, relational.Config{Kind: a.cfg.Source.Kind, DSN: a.cfg.Source.DSN})
	if err != nil {
		return nil, err
	}
	a.log.WithField("dialect", src.Dialect.Name).Debug("source opened")
	a.src = src
	return src, nil
}

func (a *app) database(ctx context.Context) (*mongo.Database, error) {
	if a.client == nil {
		c, err := connectMongoFn(ctx, a.cfg.Mongo)
		if err != nil {
			return nil, err
		}
		a.client = c
	}
	return a.client.Database(a.cfg.Mongo.Database), nil
}

func (a *app) runLock(db *mongo.Database) *docstore.RunLock {
	return docstore.NewRunLock(db.Collection(a.cfg.Collections.Locks), a.cfg.Runtime.LockTTL.Duration)
}

func (a *app) progress(p docstore.Progress) {
	a.log.WithField("inserted", p.Inserted).Info(p.String())
}

func (a *app) printSummary(what string, s materialize.Summary) {
	fmt.Fprintf(a.out, "%s: read %s, written %s, expanded %s in %s\n", what,
		humanize.Comma(s.Read), humanize.Comma(s.Written), humanize.Comma(s.Expanded),
		s.Elapsed.Round(time.Millisecond))
	for rel, n := range s.Degraded {
		fmt.Fprintf(a.out, "  degraded %s: %s\n", rel, humanize.Comma(n))
	}
	fmt.Fprintf(a.out, "  akas: %t  checksum: %016x\n", s.AkasEnabled, s.Checksum)
}

func runValidate(opts globalOptions, out io.Writer) error {
	cfg, err := loadConfigFn(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}
	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintln(out, iss.Error())
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	fmt.Fprintln(out, "configuration is valid")
	return nil
}

func (a *app) runInspect(ctx context.Context) error {
	src, err := a.source(ctx)
	if err != nil {
		return err
	}
	rs, err := schema.Inspect(ctx, src, a.log)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, rs.String())

	tables, err := src.Tables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	for _, t := range tables {
		var n int64
		if err := src.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return fmt.Errorf("count %s: %w", t, err)
		}
		fmt.Fprintf(a.out, "  %-12s %s\n", t, humanize.Comma(n))
	}
	return nil
}

func (a *app) runImport(ctx context.Context, dir string, create bool, batch int) error {
	src, err := a.source(ctx)
	if err != nil {
		return err
	}
	im := &ingest.Importer{Job: a.cfg.Job, Source: src, Dir: dir, BatchSize: batch, CreateTables: create, Log: a.log}
	res, err := im.Run(ctx)
	for _, r := range res {
		fmt.Fprintf(a.out, "  %-18s -> %-12s %s rows, %s rejected in %s\n", r.File, r.Table,
			humanize.Comma(r.Inserted), humanize.Comma(r.Rejected), r.Elapsed.Round(time.Millisecond))
	}
	return err
}

func (a *app) runMaterialize(ctx context.Context) error {
	src, err := a.source(ctx)
	if err != nil {
		return err
	}
	db, err := a.database(ctx)
	if err != nil {
		return err
	}
	m := &materialize.Materializer{
		Job:       a.cfg.Job,
		Source:    src,
		Sink:      docstore.NewCollectionSink(db.Collection(a.cfg.Collections.Movies)),
		Lock:      a.runLock(db),
		BatchSize: a.cfg.Runtime.BatchSize,
		Progress:  a.progress,
		Log:       a.log,
	}
	sum, err := m.Run(ctx)
	if err != nil {
		return err
	}
	if err := docstore.EnsureIndexes(ctx, db.Collection(a.cfg.Collections.Movies), docstore.MaterializedIndexes()); err != nil {
		return err
	}
	a.printSummary("materialize", sum)
	return nil
}

func (a *app) runMirror(ctx context.Context) error {
	src, err := a.source(ctx)
	if err != nil {
		return err
	}
	db, err := a.database(ctx)
	if err != nil {
		return err
	}
	rs, err := schema.Inspect(ctx, src, a.log)
	if err != nil {
		return err
	}
	m := &docstore.Mirror{Source: src, DB: db, Schema: rs, Lock: a.runLock(db), BatchSize: a.cfg.Runtime.BatchSize, Log: a.log}
	start := time.Now()
	res, err := m.Run(ctx)
	metrics.RecordStep(a.cfg.Job, "mirror", err, time.Since(start))
	for _, r := range res {
		fmt.Fprintf(a.out, "  %-12s -> %-12s %s\n", r.Table, r.Collection, humanize.Comma(r.Inserted))
	}
	return err
}

func (a *app) runRestructure(ctx context.Context) error {
	db, err := a.database(ctx)
	if err != nil {
		return err
	}
	coll := db.Collection(a.cfg.Collections.Movies)
	r := &materialize.Restructurer{
		Job:       a.cfg.Job,
		DB:        db,
		Sink:      docstore.NewCollectionSink(coll),
		Lock:      a.runLock(db),
		IDBatch:   a.cfg.Runtime.IDBatch,
		BatchSize: a.cfg.Runtime.BatchSize,
		Progress:  a.progress,
		Log:       a.log,
	}
	sum, err := r.Run(ctx)
	if err != nil {
		return err
	}
	if err := docstore.EnsureIndexes(ctx, coll, docstore.MaterializedIndexes()); err != nil {
		return err
	}
	a.printSummary("restructure", sum)
	return nil
}

// runner builds the query target named by target along with the index set
// the benchmark toggles for it.
func (a *app) runner(ctx context.Context, target string) (query.Runner, bench.IndexSet, error) {
	switch target {
	case "sql":
		src, err := a.source(ctx)
		if err != nil {
			return nil, nil, err
		}
		rs, err := schema.Inspect(ctx, src, a.log)
		if err != nil {
			return nil, nil, err
		}
		return &query.SQLRunner{Source: src, Schema: rs}, bench.NewSQLIndexes(src, a.log), nil
	case "normalized":
		db, err := a.database(ctx)
		if err != nil {
			return nil, nil, err
		}
		return &query.MongoRunner{DB: db, Shape: query.Normalized}, bench.NewMirrorIndexes(db), nil
	case "flattened":
		db, err := a.database(ctx)
		if err != nil {
			return nil, nil, err
		}
		coll := a.cfg.Collections.Movies
		return &query.MongoRunner{DB: db, Shape: query.Flattened, Collection: coll},
			bench.NewMaterializedIndexes(db, coll), nil
	default:
		return nil, nil, fmt.Errorf("unknown target %q (want sql, normalized or flattened)", target)
	}
}

func (a *app) runBench(ctx context.Context, targets []string, p query.Params, repeat int) error {
	for _, t := range targets {
		r, idx, err := a.runner(ctx, t)
		if err != nil {
			return err
		}
		h := &bench.Harness{Job: a.cfg.Job, Params: p, Repeat: repeat, Log: a.log}
		rep, err := h.Run(ctx, r, idx)
		if err != nil {
			return fmt.Errorf("bench %s: %w", t, err)
		}
		if err := rep.WriteTable(a.out); err != nil {
			return err
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *app) runQueries(ctx context.Context, target string, p query.Params) error {
	r, _, err := a.runner(ctx, target)
	if err != nil {
		return err
	}
	results, err := query.RunAll(ctx, r, p, a.log)
	for _, res := range results {
		if res.Unsupported {
			fmt.Fprintf(a.out, "%s: unsupported on %s\n", res.Question, res.Target)
			continue
		}
		fmt.Fprintf(a.out, "%s: %d rows in %s\n", res.Question, len(res.Rows), res.Elapsed.Round(time.Microsecond))
		for _, row := range res.Rows {
			fmt.Fprintf(a.out, "  %s\n", formatRow(row))
		}
	}
	return err
}

func formatRow(r query.Row) string {
	s := r.Label
	if s == "" {
		s = r.Key
	}
	if r.Group != "" {
		s = r.Group + " / " + s
	}
	if r.Year != nil {
		s += fmt.Sprintf(" (%d)", *r.Year)
	}
	if r.Count != 0 {
		s += " count=" + humanize.Comma(r.Count)
	}
	if r.Value != nil {
		s += " value=" + humanize.FtoaWithDigits(*r.Value, 2)
	}
	if r.Rank != 0 {
		s += fmt.Sprintf(" rank=%d", r.Rank)
	}
	return s
}

func (a *app) runIntegrity(ctx context.Context, fix bool) error {
	src, err := a.source(ctx)
	if err != nil {
		return err
	}
	rs, err := schema.Inspect(ctx, src, a.log)
	if err != nil {
		return err
	}
	c := &integrity.Checker{Source: src, Schema: rs, Log: a.log}
	found, err := c.Run(ctx, fix)
	for _, o := range found {
		fmt.Fprintf(a.out, "  %-12s missing %-8s %s found, %s deleted\n",
			o.Table, o.Parent, humanize.Comma(o.Found), humanize.Comma(o.Deleted))
	}
	return err
}

// server builds the read API. Both stores are required.
func (a *app) server(ctx context.Context) (*web.Server, error) {
	src, err := a.source(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := schema.Inspect(ctx, src, a.log)
	if err != nil {
		return nil, err
	}
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	return &web.Server{
		Stats:  &catalog.Relational{Source: src, Schema: rs, Log: a.log},
		Movies: &catalog.Movies{Coll: db.Collection(a.cfg.Collections.Movies), Log: a.log},
		Log:    a.log,
	}, nil
}

func (a *app) runServe(ctx context.Context) error {
	s, err := a.server(ctx)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.log.WithField("addr", srv.Addr).Info("serving")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// countDocuments is used by the status command to show collection sizes.
func countDocuments(ctx context.Context, db *mongo.Database, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	for _, n := range names {
		c, err := db.Collection(n).CountDocuments(ctx, bson.D{})
		if err != nil {
			return out, fmt.Errorf("count %s: %w", n, err)
		}
		out[n] = c
	}
	return out, nil
}
