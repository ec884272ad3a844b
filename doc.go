// Package callguard is a request-processing firewall for remote calls in a
// multiplayer server. Every inbound call is pushed through a per-endpoint
// middleware chain, a sliding-window rate limiter, and declarative argument
// validation before the registered application callback runs. Every attempt
// and its outcome land in a bounded in-memory call log with point queries and
// periodic compaction.
//
// A minimal setup fills a Config, creates a Service, registers endpoints,
// and calls Start:
//
//	conf := &callguard.Config{
//	    MaxLogCount:          4096,
//	    CleanupInterval:      time.Minute,
//	    RateLimitWindow:      time.Minute,
//	    RateLimitMaxRequests: 30,
//	}
//	svc := callguard.NewService(conf, callguard.NewSlogServiceLogger(slog.Default()), callguard.ServiceDependencies{})
//
//	callguard.RegisterEndpoint(svc, callguard.EndpointRegistration{
//	    Name:   "buyItem",
//	    Kind:   callguard.KindRequest,
//	    Params: []callguard.Param{{Name: "item", Type: "string"}, {Name: "qty", Type: "range[1,64]"}},
//	    Callback: func(caller string, log callguard.LogIndex, args []callguard.Value) (callguard.Value, error) {
//	        // args passed validation; sell the item.
//	        return callguard.Bool(true), nil
//	    },
//	})
//
//	go svc.Start(ctx)
//	res := svc.Call("player-17", "buyItem", callguard.StringValue("sword"), callguard.NumberValue(2))
//
// # Parameter specs
//
// Each endpoint declares an ordered parameter list. A type token is a
// primitive (string, number, boolean, integer, table, any), a union of
// primitives separated by "|", a numeric range constraint range[min,max], or
// an optional marker ("string?" or "string nullable"). Specs are compiled
// once at registration; a malformed spec fails registration.
//
// # Middleware gates
//
// Gates are boolean predicates that run before rate limiting and validation,
// in registration order; the first rejection short-circuits the chain. Use
// them for session checks, permission checks, or anything that should stop a
// call before it counts against the caller's rate budget.
//
// # Call log
//
// Accepted call attempts are recorded in a fixed-capacity circular buffer
// and addressed by a weak integer handle. Callbacks receive the handle and
// may attach sub-events through the assertion helpers or Log().Append; once
// the entry is overwritten or compacted the handle silently stops resolving.
//
// # Transports
//
// The dispatcher can be driven directly by the host, or fed call envelopes
// from a registered transport. The channel transport (in-memory Go channels)
// ships in transport/channel; import it for its side effects and set
// Config.Transport to "channel".
//
// # Observability
//
// With MetricsEnabled the Service registers Prometheus collectors for call
// totals, rejections per stage, and dispatch latency, and serves them on
// MetricsPort. TracingEnabled wraps each dispatched call in an OpenTelemetry
// span. DebugAPIEnabled serves read-only JSON views of the call log and
// per-endpoint stats.
package callguard
