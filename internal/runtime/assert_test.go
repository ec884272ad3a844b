package runtime

import (
	"testing"

	"github.com/drblury/callguard/internal/runtime/logstore"
	"github.com/drblury/callguard/internal/runtime/typespec"
)

func assertErrorCount(t *testing.T, store *logstore.Store, idx logstore.Index, want int) {
	t.Helper()
	entry, ok := store.Get(idx)
	if !ok {
		t.Fatalf("entry %d not found", idx)
	}
	if entry.ErrorCount != want {
		t.Fatalf("entry %d has %d error events, want %d", idx, entry.ErrorCount, want)
	}
}

func TestAssertInRange(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})
	idx := svc.Log().Record("player-1", "ep")

	if !svc.AssertInRange(idx, "qty", typespec.Number(5), 1, 10) {
		t.Fatal("5 in [1,10] must pass")
	}
	assertErrorCount(t, svc.Log(), idx, 0)

	if svc.AssertInRange(idx, "qty", typespec.Number(11), 1, 10) {
		t.Fatal("11 in [1,10] must fail")
	}
	if svc.AssertInRange(idx, "qty", typespec.String("5"), 1, 10) {
		t.Fatal("string must fail a numeric range assertion")
	}
	assertErrorCount(t, svc.Log(), idx, 2)
}

func TestAssertInList(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})
	idx := svc.Log().Record("player-1", "ep")

	allowed := []typespec.Value{typespec.String("red"), typespec.String("blue")}
	if !svc.AssertInList(idx, "color", typespec.String("red"), allowed...) {
		t.Fatal("member must pass")
	}
	if svc.AssertInList(idx, "color", typespec.String("green"), allowed...) {
		t.Fatal("non-member must fail")
	}
	assertErrorCount(t, svc.Log(), idx, 1)
}

func TestAssertStringPattern(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})
	idx := svc.Log().Record("player-1", "ep")

	if !svc.AssertStringPattern(idx, "tag", typespec.String("abc-123"), `^[a-z]+-\d+$`) {
		t.Fatal("matching string must pass")
	}
	if svc.AssertStringPattern(idx, "tag", typespec.String("ABC"), `^[a-z]+$`) {
		t.Fatal("non-matching string must fail")
	}
	if svc.AssertStringPattern(idx, "tag", typespec.Number(3), `^\d+$`) {
		t.Fatal("non-string must fail")
	}
	if svc.AssertStringPattern(idx, "tag", typespec.String("x"), `([`) {
		t.Fatal("invalid pattern must count as failure")
	}
	assertErrorCount(t, svc.Log(), idx, 3)
}

func TestAssertNonEmpty(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})
	idx := svc.Log().Record("player-1", "ep")

	pass := []typespec.Value{
		typespec.String("x"),
		typespec.Number(0),
		typespec.Bool(false),
		typespec.Table(map[string]typespec.Value{"k": typespec.Number(1)}),
	}
	for _, v := range pass {
		if !svc.AssertNonEmpty(idx, "v", v) {
			t.Fatalf("%v must pass", v.Interface())
		}
	}
	assertErrorCount(t, svc.Log(), idx, 0)

	fail := []typespec.Value{
		typespec.None,
		typespec.String(""),
		typespec.Table(map[string]typespec.Value{}),
	}
	for _, v := range fail {
		if svc.AssertNonEmpty(idx, "v", v) {
			t.Fatalf("%v must fail", v.Interface())
		}
	}
	assertErrorCount(t, svc.Log(), idx, len(fail))
}

func TestAssertOnEvictedHandleIsSilent(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, testConfig(), ServiceDependencies{})

	// Index 0 is the sampled-out sentinel; assertions still return their
	// verdict but append nowhere.
	if svc.AssertInRange(0, "qty", typespec.Number(99), 1, 10) {
		t.Fatal("failed assertion must still report false on index 0")
	}
	if !svc.AssertNonEmpty(0, "v", typespec.String("x")) {
		t.Fatal("passing assertion must still report true on index 0")
	}
}
