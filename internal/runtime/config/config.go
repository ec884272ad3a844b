// Package config holds the flat option set consumed by the Service at
// startup and on reconfiguration.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config groups the pipeline settings. It is read once at startup and may be
// re-applied while calls are in flight via Service.ApplyConfig; the Service
// propagates changes to the components under their own locks.
type Config struct {
	// MaxLogCount is the fixed capacity of the call log's circular buffer.
	MaxLogCount int

	// CleanupInterval is how often the log compactor runs. Entries older
	// than twice this interval are evicted independently of buffer
	// wraparound. Zero disables compaction.
	CleanupInterval time.Duration

	// RateLimitWindow is the rolling window during which calls from one
	// (caller, endpoint) pair are counted.
	RateLimitWindow time.Duration

	// RateLimitMaxRequests is the per-window ceiling for each pair.
	RateLimitMaxRequests int

	// LogSampleEvery logs only every Nth accepted call when greater than 1.
	// Endpoints registered with ForceLogging bypass sampling. Zero or one
	// logs every call.
	LogSampleEvery int

	// DebuggingMode enables verbose eviction and rejection tracing.
	DebuggingMode bool

	// Transport selects the inbound transport registered with the transport
	// registry (for example "channel"). Empty means the host invokes the
	// dispatcher directly.
	Transport string
	// InboundTopic is the topic the inbound transport subscribes to.
	InboundTopic string

	// Metrics configuration.
	MetricsEnabled bool
	// MetricsPort is the port where Prometheus metrics are exposed.
	MetricsPort int

	// TracingEnabled wraps every dispatched call in an OpenTelemetry span.
	TracingEnabled bool

	// DebugAPI configuration. The debug API serves read-only JSON snapshots
	// of the call log and per-endpoint stats.
	DebugAPIEnabled bool
	// DebugAPIPort defaults to 8081.
	DebugAPIPort int
}

// Getter methods to implement the transport config interface.
func (c *Config) GetTransportName() string { return c.Transport }
func (c *Config) GetInboundTopic() string  { return c.InboundTopic }

// Retention returns the compaction horizon derived from CleanupInterval.
func (c *Config) Retention() time.Duration { return 2 * c.CleanupInterval }

// Validate checks that the configuration is usable. It returns every
// problem found, joined, so misconfiguration fails loudly and completely.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config is required")
	}

	var errs []error
	if c.MaxLogCount <= 0 {
		errs = append(errs, errors.New("maxLogCount must be a positive integer"))
	}
	if c.CleanupInterval < 0 {
		errs = append(errs, errors.New("cleanupInterval cannot be negative"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rateLimitWindow must be positive"))
	}
	if c.RateLimitMaxRequests <= 0 {
		errs = append(errs, errors.New("rateLimitMaxRequests must be a positive integer"))
	}
	if c.LogSampleEvery < 0 {
		errs = append(errs, errors.New("logSampleEvery cannot be negative"))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}
	if c.DebugAPIPort < 0 || c.DebugAPIPort > 65535 {
		errs = append(errs, fmt.Errorf("debug api: invalid port %d", c.DebugAPIPort))
	}
	return errors.Join(errs...)
}
