package runtime

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	idspkg "github.com/drblury/callguard/internal/runtime/ids"
	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/logstore"
	"github.com/drblury/callguard/internal/runtime/typespec"
)

// Call dispatches a request/response call and returns its outcome. A call
// rejected at any stage, or whose callback fails, yields a failure sentinel
// with the rejecting stage and reason; the pipeline never panics into the
// caller.
func (s *Service) Call(caller, endpointName string, args ...typespec.Value) CallResult {
	ep, ok := s.lookupEndpoint(endpointName)
	if !ok {
		return CallResult{Stage: StageDispatch, Reason: "unknown endpoint: " + endpointName}
	}
	if ep.kind != KindRequest {
		return CallResult{Stage: StageDispatch, Reason: "endpoint is fire-and-forget: " + endpointName}
	}
	return s.dispatch(caller, ep, args)
}

// Notify dispatches a fire-and-forget call. Failures produce no
// caller-visible signal beyond being absent from any effect; they are still
// logged and counted.
func (s *Service) Notify(caller, endpointName string, args ...typespec.Value) {
	ep, ok := s.lookupEndpoint(endpointName)
	if !ok {
		s.Logger.Debug("Dropping call to unknown endpoint", loggingpkg.LogFields{
			"endpoint": endpointName,
			"caller":   caller,
		})
		return
	}
	s.dispatch(caller, ep, args)
}

// dispatch walks one call through the stage machine:
// Received -> Middleware -> RateLimit -> Validation -> Callback -> Completed,
// terminating at the first failing stage. Each call is an independent unit
// of work; nothing here may block or break a sibling call.
func (s *Service) dispatch(caller string, ep *endpoint, args []typespec.Value) CallResult {
	start := s.clock()
	callID := idspkg.NewCallID()

	var span trace.Span
	if s.Config().TracingEnabled {
		tracer := otel.Tracer("callguard-dispatcher")
		_, span = tracer.Start(context.Background(), "DispatchCall")
		span.SetAttributes(
			attribute.String("call.id", callID),
			attribute.String("call.caller", caller),
			attribute.String("call.endpoint", ep.name),
		)
		defer span.End()
	}

	cc := CallContext{
		Caller:    caller,
		Endpoint:  ep.name,
		CallID:    callID,
		Kind:      ep.kind,
		StartedAt: start,
	}
	s.hooks.callStart(cc)

	// Received: allocate the weak log handle. Calls exempted by sampling
	// get the zero Index, which every later Append silently ignores.
	var logIdx logstore.Index
	if s.shouldLog(ep) {
		logIdx = s.store.Record(caller, ep.name)
	}
	cc.LogIndex = logIdx

	gc := GateContext{
		Caller:   caller,
		Endpoint: ep.name,
		CallID:   callID,
		LogIndex: logIdx,
		Args:     args,
	}
	if ok, reason := s.runGates(ep, gc); !ok {
		return s.reject(ep, cc, span, StageMiddleware, reason)
	}

	if !s.limiter.Check(caller, ep.name) {
		return s.reject(ep, cc, span, StageRateLimit, "rate limit exceeded")
	}

	if err := ep.spec.Validate(args); err != nil {
		return s.reject(ep, cc, span, StageValidation, err.Error())
	}

	// Budget is consumed only by calls that reach the callback; the Check
	// above already turned away over-limit callers, this closes the race
	// between concurrent calls from the same pair.
	if !s.limiter.Allow(caller, ep.name) {
		return s.reject(ep, cc, span, StageRateLimit, "rate limit exceeded")
	}

	value, err := s.invokeCallback(ep, caller, logIdx, args)
	now := s.clock()
	cc.Duration = now.Sub(start)

	if err != nil {
		s.store.Append(logIdx, logstore.LevelError, "callback failed: "+err.Error())
		s.Logger.Error("Endpoint callback failed", err, loggingpkg.LogFields{
			"endpoint": ep.name,
			"caller":   caller,
			"call_id":  callID,
		})
		ep.stats.onCallFinished(now, cc.Duration, StageCallback, false)
		s.metrics.observeCall(ep.name, outcomeError, cc.Duration)
		s.hooks.callError(cc, err)
		if span != nil {
			span.SetAttributes(attribute.String("call.outcome", "callback_error"))
		}
		return CallResult{
			Stage:    StageCallback,
			Reason:   err.Error(),
			LogIndex: logIdx,
			CallID:   callID,
		}
	}

	s.store.Append(logIdx, logstore.LevelInfo, "call completed")
	ep.stats.onCallFinished(now, cc.Duration, "", true)
	s.metrics.observeCall(ep.name, outcomeCompleted, cc.Duration)
	s.hooks.callDone(cc)
	if span != nil {
		span.SetAttributes(attribute.String("call.outcome", "completed"))
	}

	return CallResult{
		OK:       true,
		Value:    value,
		LogIndex: logIdx,
		CallID:   callID,
	}
}

// shouldLog applies the sampling policy. ForceLogging endpoints always
// record; otherwise every LogSampleEvery-th call does.
func (s *Service) shouldLog(ep *endpoint) bool {
	if ep.forceLogging {
		return true
	}
	s.confMu.RLock()
	every := s.conf.LogSampleEvery
	s.confMu.RUnlock()

	seq := s.callSeq.Add(1)
	if every <= 1 {
		return true
	}
	return seq%uint64(every) == 0
}

func (s *Service) reject(ep *endpoint, cc CallContext, span trace.Span, stage Stage, reason string) CallResult {
	now := s.clock()
	cc.Duration = now.Sub(cc.StartedAt)
	cc.Stage = stage
	cc.Reason = reason

	s.store.Append(cc.LogIndex, logstore.LevelError, fmt.Sprintf("rejected at %s: %s", stage, reason))
	if s.Config().DebuggingMode {
		s.Logger.Trace("Call rejected", loggingpkg.LogFields{
			"endpoint": ep.name,
			"caller":   cc.Caller,
			"call_id":  cc.CallID,
			"stage":    string(stage),
			"reason":   reason,
		})
	}

	ep.stats.onCallFinished(now, cc.Duration, stage, false)
	s.metrics.observeCall(ep.name, outcomeRejected, cc.Duration)
	s.metrics.observeRejection(ep.name, stage)
	s.hooks.callRejected(cc)
	if span != nil {
		span.SetAttributes(
			attribute.String("call.outcome", "rejected"),
			attribute.String("call.reject_stage", string(stage)),
		)
	}

	return CallResult{
		Stage:    stage,
		Reason:   reason,
		LogIndex: cc.LogIndex,
		CallID:   cc.CallID,
	}
}

// invokeCallback runs the application callback, converting panics into
// errors so a misbehaving callback can never crash the dispatcher or affect
// sibling calls.
func (s *Service) invokeCallback(ep *endpoint, caller string, logIdx logstore.Index, args []typespec.Value) (value typespec.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = typespec.None
			err = fmt.Errorf("callback panic: %v", r)
		}
	}()
	return ep.callback(caller, logIdx, args)
}
