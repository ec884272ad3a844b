package runtime

import (
	"fmt"

	errspkg "github.com/drblury/callguard/internal/runtime/errors"
	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/logstore"
	"github.com/drblury/callguard/internal/runtime/typespec"
)

// GateContext carries everything a middleware gate may inspect about the
// call it is vetting.
type GateContext struct {
	Caller   string
	Endpoint string
	CallID   string
	LogIndex logstore.Index
	Args     []typespec.Value
}

// Gate is a middleware predicate: return true to let the call continue,
// false to reject it. Gates run strictly in registration order and the
// first rejection short-circuits the chain.
type Gate func(GateContext) bool

// UseGate appends a gate to the end of the named endpoint's chain. There is
// no reordering or removal primitive; chains only grow, through this API.
func (s *Service) UseGate(endpointName string, gate Gate) error {
	if gate == nil {
		return errspkg.ErrGateRequired
	}
	ep, ok := s.lookupEndpoint(endpointName)
	if !ok {
		return errspkg.ErrUnknownEndpoint
	}

	ep.gatesMu.Lock()
	ep.gates = append(ep.gates, gate)
	ep.gatesMu.Unlock()
	return nil
}

// runGates executes the endpoint's chain. A panicking gate counts as a
// rejection with an error-level sub-event; it must never take the
// dispatcher down with it.
func (s *Service) runGates(ep *endpoint, gc GateContext) (bool, string) {
	ep.gatesMu.RLock()
	gates := ep.gates
	ep.gatesMu.RUnlock()

	for i, gate := range gates {
		ok, panicked := s.runGate(gate, gc)
		if panicked != nil {
			reason := fmt.Sprintf("gate %d panicked: %v", i, panicked)
			s.store.Append(gc.LogIndex, logstore.LevelError, reason)
			s.Logger.Error("Middleware gate panicked", fmt.Errorf("%v", panicked), loggingpkg.LogFields{
				"endpoint": ep.name,
				"caller":   gc.Caller,
				"gate":     i,
			})
			return false, reason
		}
		if !ok {
			return false, fmt.Sprintf("gate %d rejected the call", i)
		}
	}
	return true, ""
}

func (s *Service) runGate(gate Gate, gc GateContext) (ok bool, panicked any) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			panicked = r
		}
	}()
	return gate(gc), nil
}
