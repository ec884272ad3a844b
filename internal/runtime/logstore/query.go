package logstore

import (
	"sort"
	"time"
)

// snapshot collects copies of all live entries matching keep, in insertion
// order.
func (s *Store) snapshot(keep func(*Entry) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.slots))
	for i := range s.slots {
		sl := &s.slots[i]
		sl.mu.Lock()
		if sl.used && (keep == nil || keep(&sl.e)) {
			out = append(out, copyEntry(sl.e))
		}
		sl.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// All returns a copy of every live entry in insertion order.
func (s *Store) All() []Entry {
	return s.snapshot(nil)
}

// BySender returns the live entries recorded for the given caller identity.
func (s *Store) BySender(caller string) []Entry {
	return s.snapshot(func(e *Entry) bool { return e.Caller == caller })
}

// ByTimeRange returns the live entries recorded between start and end,
// inclusive.
func (s *Store) ByTimeRange(start, end time.Time) []Entry {
	return s.snapshot(func(e *Entry) bool {
		return !e.At.Before(start) && !e.At.After(end)
	})
}

// WithMinInfoCount returns the live entries carrying at least n info-level
// sub-events.
func (s *Store) WithMinInfoCount(n int) []Entry {
	return s.snapshot(func(e *Entry) bool { return e.InfoCount >= n })
}

// Stats aggregates the live buffer. Repeated calls with no intervening
// traffic return identical counts.
func (s *Store) Stats() Statistics {
	stats := Statistics{PerEndpoint: make(map[string]int)}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.slots {
		sl := &s.slots[i]
		sl.mu.Lock()
		if sl.used {
			stats.TotalEntries++
			if sl.e.ErrorCount > 0 {
				stats.ErrorEntries++
			}
			stats.PerEndpoint[sl.e.Endpoint]++
		}
		sl.mu.Unlock()
	}
	return stats
}
