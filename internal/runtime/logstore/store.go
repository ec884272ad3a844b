// Package logstore implements the bounded, append-only call log: a
// fixed-capacity circular buffer of call entries with point queries and
// periodic retention-based compaction. Entries are addressed by a weak
// integer handle; once an entry has been evicted the handle silently stops
// resolving, which callers must treat as routine rather than exceptional.
package logstore

import (
	"sync"
	"time"

	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
)

// Index is the stable handle returned for a recorded call. The zero Index
// never resolves; it is handed out for calls that were exempt from logging.
type Index uint64

// Level classifies a sub-event attached to a call entry.
type Level uint8

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// SubEvent is one informational or error-level note attached to an entry.
type SubEvent struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Entry records one accepted call attempt. Snapshots returned by queries are
// copies; mutating them never touches buffer state.
type Entry struct {
	Index      Index      `json:"index"`
	Caller     string     `json:"caller"`
	Endpoint   string     `json:"endpoint"`
	At         time.Time  `json:"at"`
	Events     []SubEvent `json:"events"`
	InfoCount  int        `json:"info_count"`
	ErrorCount int        `json:"error_count"`
}

// Statistics aggregates the live buffer contents.
type Statistics struct {
	TotalEntries int            `json:"total_entries"`
	ErrorEntries int            `json:"error_entries"`
	PerEndpoint  map[string]int `json:"per_endpoint"`
}

type slot struct {
	mu   sync.Mutex
	used bool
	e    Entry
}

// Options configures a Store.
type Options struct {
	// Capacity is the fixed number of live entries (maxLogCount). Required.
	Capacity int
	// Debug enables a trace line for every eviction.
	Debug bool
	// Logger receives eviction traces. Optional.
	Logger loggingpkg.ServiceLogger
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Store is the circular call log. Index allocation takes a short write lock;
// appends and queries against distinct entries run in parallel under
// per-slot locks.
type Store struct {
	mu    sync.RWMutex // guards slots slice and next
	slots []slot
	next  Index

	debugMu sync.Mutex
	debug   bool
	logger  loggingpkg.ServiceLogger

	clock func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a Store with the supplied options.
func New(opts Options) *Store {
	if opts.Capacity <= 0 {
		panic("logstore: capacity must be positive")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = loggingpkg.NewNopServiceLogger()
	}
	return &Store{
		slots:  make([]slot, opts.Capacity),
		next:   1,
		debug:  opts.Debug,
		logger: logger,
		clock:  clock,
		stop:   make(chan struct{}),
	}
}

// Capacity returns the fixed buffer capacity.
func (s *Store) Capacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// SetDebug toggles eviction tracing. Safe to call while traffic is flowing.
func (s *Store) SetDebug(debug bool) {
	s.debugMu.Lock()
	s.debug = debug
	s.debugMu.Unlock()
}

func (s *Store) traceEviction(old Entry, cause string) {
	s.debugMu.Lock()
	debug := s.debug
	s.debugMu.Unlock()
	if !debug {
		return
	}
	s.logger.Trace("log entry evicted", loggingpkg.LogFields{
		"index":    uint64(old.Index),
		"caller":   old.Caller,
		"endpoint": old.Endpoint,
		"cause":    cause,
	})
}

// Record allocates the next buffer slot for a call from caller to endpoint,
// overwriting the oldest entry when the buffer is full, and returns the
// entry's handle.
func (s *Store) Record(caller, endpoint string) Index {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.next
	s.next++

	sl := &s.slots[int(uint64(idx-1)%uint64(len(s.slots)))]
	sl.mu.Lock()
	if sl.used {
		s.traceEviction(sl.e, "wraparound")
	}
	sl.used = true
	sl.e = Entry{
		Index:    idx,
		Caller:   caller,
		Endpoint: endpoint,
		At:       now,
	}
	sl.mu.Unlock()

	return idx
}

// resolve returns the slot currently holding idx, or nil when the entry has
// been evicted or never existed. The caller must hold the returned slot's
// lock only after re-checking the stored index.
func (s *Store) resolve(idx Index) *slot {
	if idx == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx >= s.next {
		return nil
	}
	return &s.slots[int(uint64(idx-1)%uint64(len(s.slots)))]
}

// Append attaches a sub-event to an existing entry. It is a silent no-op
// when the handle has been evicted by wraparound or compaction.
func (s *Store) Append(idx Index, level Level, message string) {
	sl := s.resolve(idx)
	if sl == nil {
		return
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.used || sl.e.Index != idx {
		return
	}

	sl.e.Events = append(sl.e.Events, SubEvent{Level: level, Message: message, At: s.clock()})
	if level == LevelError {
		sl.e.ErrorCount++
	} else {
		sl.e.InfoCount++
	}
}

// Get returns a snapshot of the entry behind idx, if it is still live.
func (s *Store) Get(idx Index) (Entry, bool) {
	sl := s.resolve(idx)
	if sl == nil {
		return Entry{}, false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.used || sl.e.Index != idx {
		return Entry{}, false
	}
	return copyEntry(sl.e), true
}

func copyEntry(e Entry) Entry {
	out := e
	out.Events = make([]SubEvent, len(e.Events))
	copy(out.Events, e.Events)
	return out
}

// Run drives periodic compaction until Close is called. Entries older than
// the retention horizon are evicted independently of wraparound so long
// uptimes with little traffic still reclaim memory.
func (s *Store) Run(interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.compact(s.clock(), retention)
		case <-s.stop:
			return
		}
	}
}

// Close stops the compaction loop started by Run.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) compact(now time.Time, retention time.Duration) {
	horizon := now.Add(-retention)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.slots {
		sl := &s.slots[i]
		sl.mu.Lock()
		if sl.used && sl.e.At.Before(horizon) {
			s.traceEviction(sl.e, "retention")
			sl.used = false
			sl.e = Entry{}
		}
		sl.mu.Unlock()
	}
}
