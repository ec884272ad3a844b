// Package runtime contains the call firewall core: the endpoint registry,
// the per-call dispatch pipeline (middleware gates, rate limiting, argument
// validation), the bounded call log, and the assertion helpers exposed to
// endpoint callbacks.
//
// The root callguard package re-exports the public pieces; application code
// should not import this package directly.
package runtime
