package docstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qlemen7/cineexplorer/internal/metrics"
)

// ErrBulkWrite marks a failed bulk insert. It is fatal for the run; batches
// flushed before the failure stay in the target.
var ErrBulkWrite = errors.New("bulk write failed")

// DefaultBatchSize is used when LoadOptions.BatchSize is zero.
const DefaultBatchSize = 500

// Progress is a snapshot reported after every flushed batch.
type Progress struct {
	Inserted int64
	Total    int64 // 0 when unknown
	Batches  int64
	Elapsed  time.Duration
}

// Percent returns the completed share when the total is known.
func (p Progress) Percent() (float64, bool) {
	if p.Total <= 0 {
		return 0, false
	}
	return float64(p.Inserted) / float64(p.Total) * 100, true
}

func (p Progress) String() string {
	if pct, ok := p.Percent(); ok {
		return fmt.Sprintf("%.1f%% (%d/%d)", pct, p.Inserted, p.Total)
	}
	return fmt.Sprintf("%d documents", p.Inserted)
}

// LoadOptions tunes LoadDocuments.
type LoadOptions struct {
	BatchSize int
	// Total is the number of documents expected, when known up front.
	Total int64
	// Progress, when set, receives a snapshot after each flush. It runs on
	// its own goroutine; a snapshot not yet picked up is replaced by the
	// next one. The final snapshot is delivered before LoadDocuments returns.
	Progress func(Progress)
	Log      logrus.FieldLogger
	// Job labels batch metrics; empty disables them.
	Job string
}

// progressFeed hands snapshots to a slow consumer without blocking the load.
type progressFeed struct {
	ch   chan Progress
	done chan struct{}
}

func startProgress(fn func(Progress)) *progressFeed {
	f := &progressFeed{ch: make(chan Progress, 1), done: make(chan struct{})}
	go func() {
		defer close(f.done)
		for p := range f.ch {
			fn(p)
		}
	}()
	return f
}

// send never blocks: a snapshot still waiting in the slot is dropped.
func (f *progressFeed) send(p Progress) {
	for {
		select {
		case f.ch <- p:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *progressFeed) close() {
	close(f.ch)
	<-f.done
}

// LoadDocuments replaces the contents of sink with docs. The sink is cleared
// before the first batch; documents are then inserted in batches of
// BatchSize with a final partial batch at the end of the sequence. The first
// error from docs or from an insert stops the load; there is no retry.
func LoadDocuments(ctx context.Context, sink Sink, docs iter.Seq2[any, error], opts LoadOptions) (int64, error) {
	if opts.BatchSize < 0 {
		return 0, fmt.Errorf("docstore: batch size must be > 0")
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	cleared, err := sink.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("docstore: clear %s: %w", sink.Name(), err)
	}
	log.WithFields(logrus.Fields{"collection": sink.Name(), "removed": cleared}).Info("loader: target cleared")

	var feed *progressFeed
	if opts.Progress != nil {
		feed = startProgress(opts.Progress)
		defer feed.close()
	}

	var (
		total     int64
		batches   int64
		batch     = make([]any, 0, opts.BatchSize)
		start     = time.Now()
		lastFlush = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := sink.InsertBatch(ctx, batch)
		total += int64(n)
		batch = batch[:0]
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"collection": sink.Name(), "inserted": n, "total_inserted": total,
			}).Error("loader: bulk insert failed")
			return fmt.Errorf("docstore: %s batch #%d: %w: %w", sink.Name(), batches+1, ErrBulkWrite, err)
		}

		batches++
		if opts.Job != "" {
			metrics.RecordBatches(opts.Job, 1)
		}
		now := time.Now()
		sinceLast := now.Sub(lastFlush)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		log.WithFields(logrus.Fields{
			"batch":          batches,
			"rps":            fmt.Sprintf("%.0f", rps),
			"inserted":       n,
			"total_inserted": total,
			"elapsed":        now.Sub(start).Truncate(time.Millisecond),
		}).Debug("loader: batch flushed")
		lastFlush = now

		if feed != nil {
			feed.send(Progress{Inserted: total, Total: opts.Total, Batches: batches, Elapsed: now.Sub(start)})
		}
		return nil
	}

	for doc, err := range docs {
		if err != nil {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch = append(batch, doc)
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	final := len(batch)
	if err := flush(); err != nil {
		return total, err
	}
	log.WithFields(logrus.Fields{
		"collection": sink.Name(), "final_flush": final, "total_inserted": total, "batches": batches,
	}).Info("loader: input drained")
	return total, nil
}
