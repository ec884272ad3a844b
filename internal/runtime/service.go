package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "github.com/drblury/callguard/internal/runtime/config"
	errspkg "github.com/drblury/callguard/internal/runtime/errors"
	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/logstore"
	"github.com/drblury/callguard/internal/runtime/ratelimit"
)

// ServiceDependencies holds the optional collaborators of a Service. Leave
// fields nil/zero to use the defaults.
type ServiceDependencies struct {
	// Hooks receive call lifecycle notifications.
	Hooks CallHooks
	// Clock overrides time.Now for the log store and rate limiter, for tests.
	Clock func() time.Time
	// Registerer receives the Prometheus collectors when metrics are
	// enabled. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Service is the request-processing firewall. Every inbound remote call is
// pushed through the per-endpoint gate chain, the rate limiter, and argument
// validation before the registered callback runs.
type Service struct {
	Logger loggingpkg.ServiceLogger

	confMu sync.RWMutex
	conf   *configpkg.Config

	store   *logstore.Store
	limiter *ratelimit.Limiter

	endpointsMu sync.RWMutex
	endpoints   map[string]*endpoint

	hooks   CallHooks
	metrics *Metrics

	clock   func() time.Time
	callSeq atomic.Uint64

	httpServersMu sync.Mutex
	httpServers   map[int]*http.ServeMux
}

// NewService constructs a Service for the supplied configuration, panicking
// on malformed configuration. Malformed configuration is the one condition
// that is allowed to fail loudly and early.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) *Service {
	svc, err := TryNewService(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return svc
}

// TryNewService is NewService with an error return instead of a panic.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := configpkg.Validate(conf); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	log.Info("Creating call firewall service", loggingpkg.LogFields{
		"max_log_count":   conf.MaxLogCount,
		"rate_limit":      conf.RateLimitMaxRequests,
		"window":          conf.RateLimitWindow.String(),
		"debugging_mode":  conf.DebuggingMode,
		"metrics_enabled": conf.MetricsEnabled,
	})

	s := &Service{
		Logger: log,
		conf:   conf,
		store: logstore.New(logstore.Options{
			Capacity: conf.MaxLogCount,
			Debug:    conf.DebuggingMode,
			Logger:   log,
			Clock:    clock,
		}),
		limiter:   ratelimit.New(conf.RateLimitWindow, conf.RateLimitMaxRequests, clock),
		endpoints: make(map[string]*endpoint),
		hooks:     deps.Hooks,
		clock:     clock,
	}

	if conf.MetricsEnabled {
		s.metrics = NewMetrics(deps.Registerer)
		if err := s.metrics.Register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		if conf.MetricsPort > 0 {
			s.RegisterHTTPHandler(conf.MetricsPort, "/metrics", promhttp.Handler())
		}
	}

	return s, nil
}

// Start runs the background pieces of the Service (log compaction, debug
// API, HTTP servers) until the provided context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.confMu.RLock()
	interval := s.conf.CleanupInterval
	retention := s.conf.Retention()
	s.confMu.RUnlock()

	if interval > 0 {
		go s.store.Run(interval, retention)
	}
	if err := s.startInbound(ctx); err != nil {
		s.store.Close()
		return err
	}
	s.startDebugAPIServer()
	s.startHTTPServers()

	<-ctx.Done()
	s.store.Close()
	return ctx.Err()
}

// ApplyConfig swaps the live configuration. It is safe while calls are in
// flight: every component reads its settings under the same locks as live
// traffic. MaxLogCount and CleanupInterval changes require a restart and are
// ignored here with a warning-level log line.
func (s *Service) ApplyConfig(conf *configpkg.Config) error {
	if err := configpkg.Validate(conf); err != nil {
		return errspkg.NewConfigValidationError(err)
	}

	s.confMu.Lock()
	prev := s.conf
	s.conf = conf
	s.confMu.Unlock()

	s.limiter.SetLimits(conf.RateLimitWindow, conf.RateLimitMaxRequests)
	s.store.SetDebug(conf.DebuggingMode)

	if conf.MaxLogCount != prev.MaxLogCount {
		s.Logger.Info("maxLogCount changed; buffer capacity applies after restart", loggingpkg.LogFields{
			"current": prev.MaxLogCount,
			"wanted":  conf.MaxLogCount,
		})
	}
	if conf.CleanupInterval != prev.CleanupInterval {
		s.Logger.Info("cleanupInterval changed; compaction schedule applies after restart", loggingpkg.LogFields{
			"current": prev.CleanupInterval.String(),
			"wanted":  conf.CleanupInterval.String(),
		})
	}
	return nil
}

// Config returns the live configuration.
func (s *Service) Config() *configpkg.Config {
	s.confMu.RLock()
	defer s.confMu.RUnlock()
	return s.conf
}

// Log exposes the call log's read-only query surface.
func (s *Service) Log() *logstore.Store { return s.store }

// EndpointInfos returns a name-sorted snapshot of the registered endpoints
// and their stats.
func (s *Service) EndpointInfos() []*EndpointInfo {
	s.endpointsMu.RLock()
	defer s.endpointsMu.RUnlock()

	infos := make([]*EndpointInfo, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		infos = append(infos, &EndpointInfo{
			Name:         ep.name,
			Kind:         ep.kind.String(),
			ForceLogging: ep.forceLogging,
			Stats:        ep.stats,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Service) lookupEndpoint(name string) (*endpoint, bool) {
	s.endpointsMu.RLock()
	defer s.endpointsMu.RUnlock()
	ep, ok := s.endpoints[name]
	return ep, ok
}

// RegisterHTTPHandler attaches an HTTP handler to the mux served on port.
// Servers are started by Start.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
