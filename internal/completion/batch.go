package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"entry-portal/internal/models"
	"entry-portal/internal/store"
)

var (
	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portal_completion_batch_duration_seconds",
		Help:    "Duration of a full completion recompute",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	batchEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_completion_batch_entries_total",
		Help: "Entries visited by completion recomputes",
	}, []string{"result"}) // updated, unchanged, failed
)

// Report summarises one batch run.
type Report struct {
	Processed int      `json:"processed"`
	Updated   int      `json:"updated"`
	Errors    []string `json:"errors"`
}

// Batch recomputes every stage status of every entry.
type Batch struct {
	tracker     *Tracker
	records     store.RecordStore
	concurrency int
	logger      *zap.Logger
}

// NewBatch builds a batch driver. concurrency bounds how many entries are
// processed at once; 1 or less processes them strictly one at a time.
func NewBatch(tracker *Tracker, records store.RecordStore, concurrency int, logger *zap.Logger) *Batch {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batch{
		tracker:     tracker,
		records:     records,
		concurrency: concurrency,
		logger:      logger.With(zap.String("component", "completion_batch")),
	}
}

// Run recomputes all entries. A failing entry is logged and reported in
// Report.Errors without stopping the run; only failing to list entries
// fails the run itself. Statuses already current are not rewritten, so a
// second run over unchanged data reports no updates.
func (b *Batch) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	entries, err := b.records.ListEntries(ctx)
	if err != nil {
		return Report{Errors: []string{}}, fmt.Errorf("%w: list entries: %v", store.ErrRead, err)
	}

	b.logger.Info("completion recompute started",
		zap.Int("entries", len(entries)), zap.Int("concurrency", b.concurrency))

	type outcome struct {
		visited bool
		changed bool
		err     error
	}
	outcomes := make([]outcome, len(entries))

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i := range entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			changed, err := b.processEntry(ctx, entries[i])
			outcomes[i] = outcome{visited: true, changed: changed, err: err}
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Errors: []string{}}
	for i, o := range outcomes {
		if !o.visited {
			continue
		}
		rep.Processed++
		switch {
		case o.err != nil:
			rep.Errors = append(rep.Errors, entries[i].ID)
			batchEntriesTotal.WithLabelValues("failed").Inc()
			b.logger.Warn("entry recompute failed", zap.String("entry_id", entries[i].ID), zap.Error(o.err))
		case o.changed:
			rep.Updated++
			batchEntriesTotal.WithLabelValues("updated").Inc()
		default:
			batchEntriesTotal.WithLabelValues("unchanged").Inc()
		}
	}

	b.logger.Info("completion recompute finished",
		zap.Int("processed", rep.Processed),
		zap.Int("updated", rep.Updated),
		zap.Int("failed", len(rep.Errors)),
		zap.Duration("took", time.Since(start)),
	)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

// processEntry assesses all stages before writing anything, then writes the
// statuses that differ from the stored ones one after another.
func (b *Batch) processEntry(ctx context.Context, e models.Entry) (bool, error) {
	stages := models.Stages()
	computed := make([]models.Status, len(stages))
	for i, st := range stages {
		a, err := b.tracker.Assess(ctx, e.ID, st)
		if err != nil {
			return false, err
		}
		computed[i] = a.Status
	}

	changedAny := false
	for i, st := range stages {
		if computed[i] == e.Statuses[st] {
			continue
		}
		changed, err := b.tracker.write(ctx, e.ID, st, computed[i])
		if err != nil {
			return changedAny, err
		}
		changedAny = changedAny || changed
	}
	return changedAny, nil
}
