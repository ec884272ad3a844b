package runtime

import (
	"sync"

	errspkg "github.com/drblury/callguard/internal/runtime/errors"
	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/typespec"
)

// EndpointRegistration declares one remote call surface: its stable name,
// call kind, ordered parameter spec, initial gate chain, and logging policy.
type EndpointRegistration struct {
	Name string
	Kind CallKind
	// Params is the declarative parameter spec, compiled once here. A
	// malformed spec fails registration and the endpoint never accepts
	// traffic.
	Params   []typespec.Param
	Callback Callback
	// ForceLogging records a log entry for every call to this endpoint even
	// when sampling would otherwise skip it.
	ForceLogging bool
	// Gates are appended to the endpoint's chain in order. More can be
	// added later with UseGate.
	Gates []Gate
}

// endpoint is the dispatcher-owned registry record. Immutable after
// registration except for gate appends.
type endpoint struct {
	name         string
	kind         CallKind
	spec         *typespec.CompiledSpec
	callback     Callback
	forceLogging bool

	gatesMu sync.RWMutex
	gates   []Gate

	stats *EndpointStats
}

// RegisterEndpoint adds an endpoint to the service registry. The parameter
// spec is resolved here; validation never re-parses it.
func RegisterEndpoint(svc *Service, cfg EndpointRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	if cfg.Name == "" {
		return errspkg.ErrEndpointNameRequired
	}
	if cfg.Callback == nil {
		return errspkg.ErrCallbackRequired
	}
	for _, g := range cfg.Gates {
		if g == nil {
			return errspkg.ErrGateRequired
		}
	}

	spec, err := typespec.Compile(cfg.Params)
	if err != nil {
		return err
	}

	ep := &endpoint{
		name:         cfg.Name,
		kind:         cfg.Kind,
		spec:         spec,
		callback:     cfg.Callback,
		forceLogging: cfg.ForceLogging,
		gates:        append([]Gate(nil), cfg.Gates...),
		stats:        newEndpointStats(),
	}

	svc.endpointsMu.Lock()
	defer svc.endpointsMu.Unlock()
	if _, exists := svc.endpoints[cfg.Name]; exists {
		return errspkg.ErrEndpointExists
	}
	svc.endpoints[cfg.Name] = ep

	svc.Logger.Debug("Registered endpoint", loggingpkg.LogFields{
		"endpoint":      cfg.Name,
		"kind":          cfg.Kind.String(),
		"params":        spec.Len(),
		"force_logging": cfg.ForceLogging,
	})
	return nil
}
