package runtime

import (
	"time"

	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/logstore"
)

// CallContext is the lifecycle snapshot handed to hooks. Stage and Reason
// are only set for rejected calls; Duration is zero in OnCallStart.
type CallContext struct {
	Caller    string
	Endpoint  string
	CallID    string
	LogIndex  logstore.Index
	Kind      CallKind
	StartedAt time.Time
	Duration  time.Duration
	Stage     Stage
	Reason    string
}

// CallHooks are optional observers of the dispatch lifecycle. Nil fields are
// skipped. Hooks run synchronously on the dispatching goroutine; keep them
// fast.
type CallHooks struct {
	OnCallStart    func(CallContext)
	OnCallDone     func(CallContext)
	OnCallRejected func(CallContext)
	OnCallError    func(CallContext, error)
}

// Merge combines two hook sets; both sides fire, receiver first.
func (h CallHooks) Merge(other CallHooks) CallHooks {
	return CallHooks{
		OnCallStart:    chainHook(h.OnCallStart, other.OnCallStart),
		OnCallDone:     chainHook(h.OnCallDone, other.OnCallDone),
		OnCallRejected: chainHook(h.OnCallRejected, other.OnCallRejected),
		OnCallError:    chainErrHook(h.OnCallError, other.OnCallError),
	}
}

func chainHook(a, b func(CallContext)) func(CallContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(cc CallContext) {
		a(cc)
		b(cc)
	}
}

func chainErrHook(a, b func(CallContext, error)) func(CallContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(cc CallContext, err error) {
		a(cc, err)
		b(cc, err)
	}
}

// LoggingHooks emits a debug line per lifecycle transition. Useful in
// examples and while wiring a new endpoint; too chatty for production.
func LoggingHooks(log loggingpkg.ServiceLogger) CallHooks {
	fields := func(cc CallContext) loggingpkg.LogFields {
		return loggingpkg.LogFields{
			"endpoint": cc.Endpoint,
			"caller":   cc.Caller,
			"call_id":  cc.CallID,
		}
	}
	return CallHooks{
		OnCallStart: func(cc CallContext) {
			log.Debug("Call started", fields(cc))
		},
		OnCallDone: func(cc CallContext) {
			f := fields(cc)
			f["duration"] = cc.Duration.String()
			log.Debug("Call completed", f)
		},
		OnCallRejected: func(cc CallContext) {
			f := fields(cc)
			f["stage"] = string(cc.Stage)
			f["reason"] = cc.Reason
			log.Debug("Call rejected", f)
		},
		OnCallError: func(cc CallContext, err error) {
			log.Error("Call failed", err, fields(cc))
		},
	}
}

func (h CallHooks) callStart(cc CallContext) {
	if h.OnCallStart != nil {
		h.OnCallStart(cc)
	}
}

func (h CallHooks) callDone(cc CallContext) {
	if h.OnCallDone != nil {
		h.OnCallDone(cc)
	}
}

func (h CallHooks) callRejected(cc CallContext) {
	if h.OnCallRejected != nil {
		h.OnCallRejected(cc)
	}
}

func (h CallHooks) callError(cc CallContext, err error) {
	if h.OnCallError != nil {
		h.OnCallError(cc, err)
	}
}
