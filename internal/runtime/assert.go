package runtime

import (
	"fmt"
	"regexp"

	"github.com/drblury/callguard/internal/runtime/logstore"
	"github.com/drblury/callguard/internal/runtime/typespec"
)

// Assertion helpers for use inside endpoint callbacks. Each one evaluates a
// condition against a value and, on failure, appends an error sub-event to
// the call's log entry. They return the verdict so callbacks can bail out:
//
//	if !svc.AssertInRange(log, "quantity", args[0], 1, 64) {
//	    return typespec.None, nil
//	}
//
// On success nothing is appended.

// AssertInRange checks that v is a number within [min, max] inclusive.
func (s *Service) AssertInRange(log logstore.Index, name string, v typespec.Value, min, max float64) bool {
	n, ok := v.AsNumber()
	if ok && n >= min && n <= max {
		return true
	}
	s.store.Append(log, logstore.LevelError,
		fmt.Sprintf("assertion failed: %s must be a number in [%g,%g], got %s", name, min, max, describeValue(v)))
	return false
}

// AssertInList checks that v deep-equals one of the allowed values.
func (s *Service) AssertInList(log logstore.Index, name string, v typespec.Value, allowed ...typespec.Value) bool {
	for _, a := range allowed {
		if v.Equal(a) {
			return true
		}
	}
	s.store.Append(log, logstore.LevelError,
		fmt.Sprintf("assertion failed: %s is not in the allowed set, got %s", name, describeValue(v)))
	return false
}

// AssertStringPattern checks that v is a string matching the regular
// expression pattern. An invalid pattern counts as a failed assertion.
func (s *Service) AssertStringPattern(log logstore.Index, name string, v typespec.Value, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		s.store.Append(log, logstore.LevelError,
			fmt.Sprintf("assertion failed: %s checked against invalid pattern %q: %v", name, pattern, err))
		return false
	}
	str, ok := v.AsString()
	if ok && re.MatchString(str) {
		return true
	}
	s.store.Append(log, logstore.LevelError,
		fmt.Sprintf("assertion failed: %s must be a string matching %q, got %s", name, pattern, describeValue(v)))
	return false
}

// AssertNonEmpty checks that v carries data: a non-empty string, a table
// with at least one entry, or any number/boolean. The absent value always
// fails.
func (s *Service) AssertNonEmpty(log logstore.Index, name string, v typespec.Value) bool {
	ok := false
	switch v.Kind() {
	case typespec.KindString:
		str, _ := v.AsString()
		ok = str != ""
	case typespec.KindTable:
		t, _ := v.AsTable()
		ok = len(t) > 0
	case typespec.KindNumber, typespec.KindBool:
		ok = true
	}
	if ok {
		return true
	}
	s.store.Append(log, logstore.LevelError,
		fmt.Sprintf("assertion failed: %s must be non-empty, got %s", name, describeValue(v)))
	return false
}

func describeValue(v typespec.Value) string {
	switch v.Kind() {
	case typespec.KindAbsent:
		return "absent"
	case typespec.KindTable:
		return "table"
	}
	return fmt.Sprintf("%s %v", v.Kind(), v.Interface())
}
