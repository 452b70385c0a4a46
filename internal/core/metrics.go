package core

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

var expvarSeq uint64

// opStats accumulates everything recorded for one operation.
type opStats struct {
	ms       float64
	statuses map[string]int64
}

// ExpvarMetricsRecorder aggregates per-operation duration totals (in
// milliseconds) and success/error counts and publishes them via expvar,
// for deployments that want process-local metrics without a scraper.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*opStats
}

// ExpvarMetricsSnapshot is the read-only view rendered to expvar.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder constructs a recorder and publishes it under
// name. An empty name gets a generated one, so tests and multiple services
// in one process never collide.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("simcore_service_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]*opStats)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe records one operation outcome. Empty operation names are dropped.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.ops[operation]
	if !ok {
		stats = &opStats{statuses: make(map[string]int64, 2)}
		r.ops[operation] = stats
	}
	stats.ms += float64(duration) / float64(time.Millisecond)
	stats.statuses[status]++
}

// Snapshot returns a copy of the aggregated metrics; mutating it does not
// affect the recorder.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarMetricsSnapshot{
		DurationsMS: make(map[string]float64, len(r.ops)),
		Results:     make(map[string]map[string]int64, len(r.ops)),
		RecordedAt:  time.Now().UTC(),
	}
	for op, stats := range r.ops {
		snap.DurationsMS[op] = stats.ms
		statuses := make(map[string]int64, len(stats.statuses))
		for status, n := range stats.statuses {
			statuses[status] = n
		}
		snap.Results[op] = statuses
	}
	return snap
}

var _ MetricsRecorder = (*ExpvarMetricsRecorder)(nil)
