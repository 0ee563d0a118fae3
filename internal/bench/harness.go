// Package bench times the nine questions against a target with and without
// its secondary index set and reports the improvement.
package bench

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qlemen7/cineexplorer/internal/metrics"
	"github.com/qlemen7/cineexplorer/internal/query"
)

// Measurement is one question's timings.
type Measurement struct {
	Question    query.Question
	Without     time.Duration
	With        time.Duration
	Rows        int
	Unsupported bool
}

// Gain is the percentage improvement the index set brought. It is NaN when
// the question could not run or the unindexed time is zero.
func (m Measurement) Gain() float64 {
	if m.Unsupported || m.Without <= 0 {
		return math.NaN()
	}
	return float64(m.Without-m.With) / float64(m.Without) * 100
}

// Report is the outcome of one harness run.
type Report struct {
	Target       string
	Indexes      string
	Started      time.Time
	Measurements []Measurement
}

// Harness runs the benchmark sweep.
type Harness struct {
	Job    string
	Params query.Params
	// Repeat is how many times each question runs per phase; the mean is kept.
	Repeat int
	Log    logrus.FieldLogger
}

// Run drops idx, times every question, creates idx, times them again.
// Indexes are left in place afterwards.
func (h *Harness) Run(ctx context.Context, target query.Runner, idx IndexSet) (rep Report, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(h.Job, "bench", err, time.Since(start)) }()
	rep = Report{Target: target.Target(), Indexes: idx.Name(), Started: start}

	if err := idx.Drop(ctx); err != nil {
		return rep, err
	}
	without, err := h.sweep(ctx, target)
	if err != nil {
		return rep, err
	}
	if err := idx.Create(ctx); err != nil {
		return rep, err
	}
	with, err := h.sweep(ctx, target)
	if err != nil {
		return rep, err
	}

	for i, q := range query.All {
		m := Measurement{
			Question:    q,
			Without:     without[i].elapsed,
			With:        with[i].elapsed,
			Rows:        with[i].rows,
			Unsupported: without[i].unsupported || with[i].unsupported,
		}
		h.Log.WithFields(logrus.Fields{
			"question": q.String(), "target": rep.Target,
			"without": m.Without, "with": m.With, "gain": m.Gain(),
		}).Debug("bench: measured")
		rep.Measurements = append(rep.Measurements, m)
	}
	return rep, nil
}

type timing struct {
	elapsed     time.Duration
	rows        int
	unsupported bool
}

func (h *Harness) sweep(ctx context.Context, target query.Runner) ([]timing, error) {
	repeat := max(h.Repeat, 1)
	out := make([]timing, len(query.All))
	for i, q := range query.All {
		var total time.Duration
		for range repeat {
			t0 := time.Now()
			res, err := target.Run(ctx, q, h.Params)
			if err != nil {
				return nil, fmt.Errorf("bench: %s: %w", q, err)
			}
			total += time.Since(t0)
			out[i].rows = len(res.Rows)
			out[i].unsupported = res.Unsupported
		}
		out[i].elapsed = total / time.Duration(repeat)
	}
	return out, nil
}
