package runtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	configpkg "github.com/drblury/callguard/internal/runtime/config"
	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/logstore"
	"github.com/drblury/callguard/internal/runtime/typespec"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() *configpkg.Config {
	return &configpkg.Config{
		MaxLogCount:          64,
		RateLimitWindow:      time.Minute,
		RateLimitMaxRequests: 100,
	}
}

func newTestService(t *testing.T, conf *configpkg.Config, deps ServiceDependencies) (*Service, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	if deps.Clock == nil {
		deps.Clock = clock.Now
	}
	svc, err := TryNewService(conf, loggingpkg.NewNopServiceLogger(), deps)
	if err != nil {
		t.Fatalf("TryNewService: %v", err)
	}
	return svc, clock
}

// okCallback returns a fixed value and counts its invocations.
func okCallback(calls *int, value typespec.Value) Callback {
	return func(caller string, log logstore.Index, args []typespec.Value) (typespec.Value, error) {
		*calls++
		return value, nil
	}
}

func TestCallEndToEnd(t *testing.T) {
	t.Parallel()

	conf := testConfig()
	conf.RateLimitMaxRequests = 2
	svc, clock := newTestService(t, conf, ServiceDependencies{})

	calls := 0
	err := RegisterEndpoint(svc, EndpointRegistration{
		Name:     "buyItem",
		Kind:     KindRequest,
		Params:   []typespec.Param{{Name: "qty", Type: "range[1,10]"}},
		Callback: okCallback(&calls, typespec.Bool(true)),
	})
	if err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}

	res := svc.Call("player-1", "buyItem", typespec.Number(5))
	if !res.OK {
		t.Fatalf("valid call rejected at %s: %s", res.Stage, res.Reason)
	}
	if calls != 1 {
		t.Fatalf("callback invoked %d times, want 1", calls)
	}
	if v, ok := res.Value.AsBool(); !ok || !v {
		t.Fatalf("unexpected result value %v", res.Value.Interface())
	}

	res = svc.Call("player-1", "buyItem", typespec.Number(20))
	if res.OK || res.Stage != StageValidation {
		t.Fatalf("out-of-range call: got OK=%v stage=%s", res.OK, res.Stage)
	}
	if calls != 1 {
		t.Fatalf("callback ran on a rejected call")
	}
	entry, ok := svc.Log().Get(res.LogIndex)
	if !ok {
		t.Fatalf("rejected call left no log entry")
	}
	if entry.ErrorCount != 1 {
		t.Fatalf("rejection logged %d error events, want 1", entry.ErrorCount)
	}

	// The validation rejection did not consume rate budget; two more valid
	// calls hit the ceiling of 2 on the second.
	res = svc.Call("player-1", "buyItem", typespec.Number(3))
	if !res.OK {
		t.Fatalf("second valid call rejected at %s: %s", res.Stage, res.Reason)
	}
	res = svc.Call("player-1", "buyItem", typespec.Number(3))
	if res.OK || res.Stage != StageRateLimit {
		t.Fatalf("ceiling call: got OK=%v stage=%s", res.OK, res.Stage)
	}
	if calls != 2 {
		t.Fatalf("callback invoked %d times, want 2", calls)
	}

	clock.Advance(time.Minute + time.Second)
	if res := svc.Call("player-1", "buyItem", typespec.Number(3)); !res.OK {
		t.Fatalf("call after window elapsed rejected at %s: %s", res.Stage, res.Reason)
	}
}

func TestCallUnknownEndpoint(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})

	res := svc.Call("player-1", "nope")
	if res.OK || res.Stage != StageDispatch {
		t.Fatalf("got OK=%v stage=%s", res.OK, res.Stage)
	}
	if res.Err() == nil {
		t.Fatal("failed call must surface an error from Err()")
	}
}

func TestCallOnEventEndpoint(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})
	calls := 0
	if err := RegisterEndpoint(svc, EndpointRegistration{
		Name:     "ping",
		Kind:     KindEvent,
		Callback: okCallback(&calls, typespec.None),
	}); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}

	res := svc.Call("player-1", "ping")
	if res.OK || res.Stage != StageDispatch {
		t.Fatalf("request dispatch on event endpoint: OK=%v stage=%s", res.OK, res.Stage)
	}
	if calls != 0 {
		t.Fatal("callback must not run for a mismatched call kind")
	}

	svc.Notify("player-1", "ping")
	if calls != 1 {
		t.Fatalf("Notify invoked callback %d times, want 1", calls)
	}
}

func TestCallbackErrorIsRecovered(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})
	boom := errors.New("inventory full")
	if err := RegisterEndpoint(svc, EndpointRegistration{
		Name: "give",
		Kind: KindRequest,
		Callback: func(string, logstore.Index, []typespec.Value) (typespec.Value, error) {
			return typespec.None, boom
		},
	}); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}

	res := svc.Call("player-1", "give")
	if res.OK || res.Stage != StageCallback {
		t.Fatalf("got OK=%v stage=%s", res.OK, res.Stage)
	}
	if res.Reason != boom.Error() {
		t.Fatalf("reason %q, want %q", res.Reason, boom.Error())
	}
	entry, ok := svc.Log().Get(res.LogIndex)
	if !ok || entry.ErrorCount != 1 {
		t.Fatalf("callback failure not logged: ok=%v entry=%+v", ok, entry)
	}
}

func TestCallbackPanicIsRecovered(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})
	if err := RegisterEndpoint(svc, EndpointRegistration{
		Name: "crashy",
		Kind: KindRequest,
		Callback: func(string, logstore.Index, []typespec.Value) (typespec.Value, error) {
			panic("callback bug")
		},
	}); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}

	res := svc.Call("player-1", "crashy")
	if res.OK || res.Stage != StageCallback {
		t.Fatalf("got OK=%v stage=%s", res.OK, res.Stage)
	}

	// A sibling call on the same service still works.
	calls := 0
	if err := RegisterEndpoint(svc, EndpointRegistration{
		Name:     "fine",
		Kind:     KindRequest,
		Callback: okCallback(&calls, typespec.String("ok")),
	}); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}
	if res := svc.Call("player-1", "fine"); !res.OK {
		t.Fatalf("sibling call rejected at %s: %s", res.Stage, res.Reason)
	}
}

func TestLogSampling(t *testing.T) {
	t.Parallel()

	conf := testConfig()
	conf.LogSampleEvery = 3
	svc, _ := newTestService(t, conf, ServiceDependencies{})

	calls := 0
	if err := RegisterEndpoint(svc, EndpointRegistration{
		Name:     "move",
		Kind:     KindRequest,
		Callback: okCallback(&calls, typespec.None),
	}); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}
	if err := RegisterEndpoint(svc, EndpointRegistration{
		Name:         "trade",
		Kind:         KindRequest,
		Callback:     okCallback(&calls, typespec.None),
		ForceLogging: true,
	}); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}

	logged := 0
	for i := 0; i < 9; i++ {
		res := svc.Call("player-1", "move")
		if !res.OK {
			t.Fatalf("call %d rejected at %s: %s", i, res.Stage, res.Reason)
		}
		if res.LogIndex != 0 {
			logged++
			if _, ok := svc.Log().Get(res.LogIndex); !ok {
				t.Fatalf("call %d has handle %d but no entry", i, res.LogIndex)
			}
		}
	}
	if logged != 3 {
		t.Fatalf("sampled %d of 9 calls, want 3", logged)
	}

	// ForceLogging bypasses sampling entirely.
	for i := 0; i < 4; i++ {
		res := svc.Call("player-1", "trade")
		if res.LogIndex == 0 {
			t.Fatalf("force-logged call %d was sampled out", i)
		}
	}
}

func TestEndpointStatsTrackOutcomes(t *testing.T) {
	t.Parallel()

	conf := testConfig()
	conf.RateLimitMaxRequests = 1
	svc, _ := newTestService(t, conf, ServiceDependencies{})

	calls := 0
	if err := RegisterEndpoint(svc, EndpointRegistration{
		Name:     "spin",
		Kind:     KindRequest,
		Params:   []typespec.Param{{Name: "speed", Type: "number"}},
		Callback: okCallback(&calls, typespec.None),
	}); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}

	svc.Call("player-1", "spin", typespec.Number(1))       // completed
	svc.Call("player-1", "spin", typespec.Number(1))       // rate limited
	svc.Call("player-2", "spin", typespec.String("wrong")) // validation

	infos := svc.EndpointInfos()
	if len(infos) != 1 {
		t.Fatalf("got %d endpoint infos, want 1", len(infos))
	}
	st := infos[0].Stats
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.CallsTotal != 3 || st.Completed != 1 {
		t.Fatalf("calls=%d completed=%d, want 3/1", st.CallsTotal, st.Completed)
	}
	if st.Rejections.RateLimit != 1 || st.Rejections.Validation != 1 {
		t.Fatalf("rejections %+v, want one rate_limit and one validation", st.Rejections)
	}
}
