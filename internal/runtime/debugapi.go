package runtime

import (
	"net/http"
	"strconv"
	"time"

	jsoncodec "github.com/drblury/callguard/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/logstore"
)

const defaultDebugAPIPort = 8081

// startDebugAPIServer wires the debug query API onto an HTTP mux when
// enabled. The API is read-only: it exposes the call log, its aggregate
// statistics, and the endpoint registry.
func (s *Service) startDebugAPIServer() {
	conf := s.Config()
	if !conf.DebugAPIEnabled {
		return
	}

	port := conf.DebugAPIPort
	if port <= 0 {
		port = defaultDebugAPIPort
	}

	s.RegisterHTTPHandler(port, "/api/logs", http.HandlerFunc(s.handleDebugLogs))
	s.RegisterHTTPHandler(port, "/api/stats", http.HandlerFunc(s.handleDebugStats))
	s.RegisterHTTPHandler(port, "/api/endpoints", http.HandlerFunc(s.handleDebugEndpoints))

	s.Logger.Info("Debug API enabled", loggingpkg.LogFields{"port": port})
}

// handleDebugLogs serves the call log. Filters compose: sender, min_info,
// and an RFC 3339 from/to pair narrow the result progressively.
func (s *Service) handleDebugLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var entries []logstore.Entry
	switch {
	case q.Get("sender") != "":
		entries = s.store.BySender(q.Get("sender"))
	case q.Get("from") != "" && q.Get("to") != "":
		from, err := time.Parse(time.RFC3339, q.Get("from"))
		if err != nil {
			http.Error(w, "invalid from timestamp: "+err.Error(), http.StatusBadRequest)
			return
		}
		to, err := time.Parse(time.RFC3339, q.Get("to"))
		if err != nil {
			http.Error(w, "invalid to timestamp: "+err.Error(), http.StatusBadRequest)
			return
		}
		entries = s.store.ByTimeRange(from, to)
	default:
		entries = s.store.All()
	}

	if raw := q.Get("min_info"); raw != "" {
		min, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid min_info: "+err.Error(), http.StatusBadRequest)
			return
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.InfoCount >= min {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	writeDebugJSON(w, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Service) handleDebugStats(w http.ResponseWriter, r *http.Request) {
	writeDebugJSON(w, s.store.Stats())
}

func (s *Service) handleDebugEndpoints(w http.ResponseWriter, r *http.Request) {
	writeDebugJSON(w, s.EndpointInfos())
}

func writeDebugJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
