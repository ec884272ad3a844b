package runtime

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	jsoncodec "github.com/drblury/callguard/internal/runtime/jsoncodec"
	"github.com/drblury/callguard/internal/runtime/logstore"
	"github.com/drblury/callguard/internal/runtime/typespec"
)

const (
	latencySampleSize    = 256
	throughputWindowSize = time.Minute
)

// CallKind distinguishes fire-and-forget endpoints from request/response
// endpoints.
type CallKind uint8

const (
	// KindEvent endpoints produce no caller-visible response.
	KindEvent CallKind = iota
	// KindRequest endpoints return the callback's value to the caller.
	KindRequest
)

func (k CallKind) String() string {
	if k == KindRequest {
		return "request"
	}
	return "event"
}

// Stage names the pipeline stage a call was rejected at.
type Stage string

const (
	StageDispatch   Stage = "dispatch"
	StageMiddleware Stage = "middleware"
	StageRateLimit  Stage = "rate_limit"
	StageValidation Stage = "validation"
	StageCallback   Stage = "callback"
)

// RejectionError describes a call stopped before its callback ran. It is a
// per-call, recovered condition: callers receive it inside a CallResult,
// never as a crash.
type RejectionError struct {
	Stage  Stage
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("call rejected at %s: %s", e.Stage, e.Reason)
}

// CallResult is the failure-sentinel-or-value outcome of a dispatched call.
// Fire-and-forget endpoints discard it; request/response callers must treat
// OK=false (or an absent Value) as failure/no-data.
type CallResult struct {
	OK       bool
	Value    typespec.Value
	Stage    Stage
	Reason   string
	LogIndex logstore.Index
	CallID   string
}

// Err returns the rejection as an error, or nil for successful calls.
func (r CallResult) Err() error {
	if r.OK {
		return nil
	}
	return &RejectionError{Stage: r.Stage, Reason: r.Reason}
}

// Callback is the application function invoked once a call has passed every
// pipeline stage. It only ever sees arguments that passed validation. The
// returned Value is propagated verbatim to request/response callers; the
// absent Value means no data.
type Callback func(caller string, log logstore.Index, args []typespec.Value) (typespec.Value, error)

// RejectionBreakdown counts rejections per pipeline stage.
type RejectionBreakdown struct {
	Middleware uint64 `json:"middleware"`
	RateLimit  uint64 `json:"rate_limit"`
	Validation uint64 `json:"validation"`
}

type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

type ThroughputMetrics struct {
	CurrentRPS    float64 `json:"current_rps"`
	WindowSeconds float64 `json:"window_seconds"`
	CallsInWindow uint64  `json:"calls_in_window"`
	TotalCalls    uint64  `json:"total_calls"`
}

// EndpointStats aggregates per-endpoint dispatch outcomes.
type EndpointStats struct {
	mu sync.Mutex

	CallsTotal     uint64             `json:"calls_total"`
	Completed      uint64             `json:"completed"`
	CallbackErrors uint64             `json:"callback_errors"`
	Rejections     RejectionBreakdown `json:"rejections"`
	LastCallAt     time.Time          `json:"last_call_at"`

	Latency    LatencyMetrics    `json:"latency"`
	Throughput ThroughputMetrics `json:"throughput"`

	totalLatencyNs int64
	latencies      *latencyRing
	rate           *throughputWindow
}

// EndpointInfo is the queryable snapshot head for one registered endpoint.
type EndpointInfo struct {
	Name         string         `json:"name"`
	Kind         string         `json:"kind"`
	ForceLogging bool           `json:"force_logging"`
	Stats        *EndpointStats `json:"stats"`
}

func newEndpointStats() *EndpointStats {
	return &EndpointStats{
		latencies: newLatencyRing(latencySampleSize),
		rate:      newThroughputWindow(throughputWindowSize),
	}
}

func (s *EndpointStats) onCallFinished(now time.Time, duration time.Duration, stage Stage, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallsTotal++
	s.LastCallAt = now.UTC()

	switch {
	case completed:
		s.Completed++
	case stage == StageMiddleware:
		s.Rejections.Middleware++
	case stage == StageRateLimit:
		s.Rejections.RateLimit++
	case stage == StageValidation:
		s.Rejections.Validation++
	case stage == StageCallback:
		s.CallbackErrors++
	}

	s.totalLatencyNs += int64(duration)
	s.latencies.add(duration)
	s.Latency = s.latencies.snapshot()
	s.Latency.LastNs = int64(duration)
	if s.CallsTotal > 0 {
		s.Latency.AverageNs = s.totalLatencyNs / int64(s.CallsTotal)
	}

	rate := s.rate.addAndSnapshot(now)
	s.Throughput.CurrentRPS = rate.currentRPS
	s.Throughput.WindowSeconds = rate.windowSeconds
	s.Throughput.CallsInWindow = uint64(rate.count)
	s.Throughput.TotalCalls = s.CallsTotal
}

func (s *EndpointStats) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type Alias EndpointStats
	return jsoncodec.Marshal((*Alias)(s))
}

// latencyRing keeps the most recent latency samples for percentile
// snapshots.
type latencyRing struct {
	samples []int64
	next    int
	filled  int
}

func newLatencyRing(size int) *latencyRing {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyRing{samples: make([]int64, size)}
}

func (r *latencyRing) add(d time.Duration) {
	r.samples[r.next] = int64(d)
	r.next = (r.next + 1) % len(r.samples)
	if r.filled < len(r.samples) {
		r.filled++
	}
}

func (r *latencyRing) snapshot() LatencyMetrics {
	var m LatencyMetrics
	if r.filled == 0 {
		return m
	}

	ordered := make([]int64, r.filled)
	for i := 0; i < r.filled; i++ {
		idx := r.next - r.filled + i
		if idx < 0 {
			idx += len(r.samples)
		}
		ordered[i] = r.samples[idx]
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	m.SampleSize = r.filled
	m.P50Ns = percentile(ordered, 0.50)
	m.P95Ns = percentile(ordered, 0.95)
	m.P99Ns = percentile(ordered, 0.99)
	return m
}

func percentile(sorted []int64, quantile float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	if quantile <= 0 {
		return sorted[0]
	}
	if quantile >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := quantile * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + int64(float64(sorted[upper]-sorted[lower])*frac)
}

// throughputWindow tracks call timestamps over a sliding horizon to derive a
// current requests-per-second figure.
type throughputWindow struct {
	horizon time.Duration
	stamps  []time.Time
}

type throughputSnapshot struct {
	count         int
	windowSeconds float64
	currentRPS    float64
}

func newThroughputWindow(horizon time.Duration) *throughputWindow {
	return &throughputWindow{horizon: horizon, stamps: make([]time.Time, 0, 64)}
}

func (w *throughputWindow) addAndSnapshot(now time.Time) throughputSnapshot {
	w.stamps = append(w.stamps, now)

	cutoff := now.Add(-w.horizon)
	drop := 0
	for drop < len(w.stamps) && w.stamps[drop].Before(cutoff) {
		drop++
	}
	if drop > 0 {
		copy(w.stamps, w.stamps[drop:])
		w.stamps = w.stamps[:len(w.stamps)-drop]
	}

	if len(w.stamps) == 0 {
		return throughputSnapshot{}
	}
	span := now.Sub(w.stamps[0])
	if span <= 0 {
		span = time.Nanosecond
	}
	return throughputSnapshot{
		count:         len(w.stamps),
		windowSeconds: span.Seconds(),
		currentRPS:    float64(len(w.stamps)) / span.Seconds(),
	}
}
