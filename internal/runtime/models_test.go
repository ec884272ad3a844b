package runtime

import (
	"errors"
	"testing"
	"time"

	jsoncodec "github.com/drblury/callguard/internal/runtime/jsoncodec"
)

func TestLatencyRingPercentiles(t *testing.T) {
	t.Parallel()

	r := newLatencyRing(100)
	for i := 1; i <= 100; i++ {
		r.add(time.Duration(i) * time.Millisecond)
	}

	m := r.snapshot()
	if m.SampleSize != 100 {
		t.Fatalf("sample size %d, want 100", m.SampleSize)
	}
	if p50 := time.Duration(m.P50Ns); p50 < 49*time.Millisecond || p50 > 52*time.Millisecond {
		t.Fatalf("p50 %v out of expected band", p50)
	}
	if p99 := time.Duration(m.P99Ns); p99 < 98*time.Millisecond || p99 > 100*time.Millisecond {
		t.Fatalf("p99 %v out of expected band", p99)
	}
}

func TestLatencyRingOverwritesOldest(t *testing.T) {
	t.Parallel()

	r := newLatencyRing(4)
	for i := 0; i < 8; i++ {
		r.add(time.Duration(i+1) * time.Second)
	}

	// Only the last 4 samples (5s..8s) survive.
	m := r.snapshot()
	if m.SampleSize != 4 {
		t.Fatalf("sample size %d, want 4", m.SampleSize)
	}
	if min := time.Duration(m.P50Ns); min < 5*time.Second {
		t.Fatalf("old samples leaked into snapshot: p50=%v", min)
	}
}

func TestLatencyRingEmpty(t *testing.T) {
	t.Parallel()

	if m := newLatencyRing(8).snapshot(); m.SampleSize != 0 || m.P99Ns != 0 {
		t.Fatalf("empty ring snapshot %+v", m)
	}
}

func TestThroughputWindowPrunesStaleStamps(t *testing.T) {
	t.Parallel()

	w := newThroughputWindow(time.Minute)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		w.addAndSnapshot(base.Add(time.Duration(i) * time.Second))
	}
	snap := w.addAndSnapshot(base.Add(2 * time.Minute))
	if snap.count != 1 {
		t.Fatalf("stale stamps kept: count=%d, want 1", snap.count)
	}
}

func TestThroughputWindowRPS(t *testing.T) {
	t.Parallel()

	w := newThroughputWindow(time.Minute)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	var snap throughputSnapshot
	for i := 0; i <= 10; i++ {
		snap = w.addAndSnapshot(base.Add(time.Duration(i) * time.Second))
	}
	// 11 calls over 10 seconds.
	if snap.currentRPS < 1.0 || snap.currentRPS > 1.2 {
		t.Fatalf("rps %.2f out of expected band", snap.currentRPS)
	}
}

func TestCallResultErr(t *testing.T) {
	t.Parallel()

	ok := CallResult{OK: true}
	if ok.Err() != nil {
		t.Fatal("successful result must have nil Err")
	}

	failed := CallResult{Stage: StageRateLimit, Reason: "rate limit exceeded"}
	err := failed.Err()
	if err == nil {
		t.Fatal("failed result must surface an error")
	}
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Stage != StageRateLimit {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestEndpointStatsMarshalJSON(t *testing.T) {
	t.Parallel()

	st := newEndpointStats()
	st.onCallFinished(time.Now(), 5*time.Millisecond, "", true)
	st.onCallFinished(time.Now(), 7*time.Millisecond, StageRateLimit, false)

	data, err := jsoncodec.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := jsoncodec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["calls_total"] != float64(2) {
		t.Fatalf("calls_total = %v, want 2", decoded["calls_total"])
	}
	rej, _ := decoded["rejections"].(map[string]any)
	if rej["rate_limit"] != float64(1) {
		t.Fatalf("rejections = %v", decoded["rejections"])
	}
}
