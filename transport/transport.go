// Package transport defines the core interfaces and types for callguard
// inbound transports. Each transport implementation should be in its own
// sub-package and register itself with the transport registry.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines a publisher and subscriber pair produced by a factory.
// The subscriber delivers call envelopes to the dispatcher; the publisher
// carries replies back to callers that asked for one.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder is the function signature for creating a transport from config.
// Each transport package should provide a Builder function that can be
// registered.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports. The
// interface keeps transport packages decoupled from the full config type.
type Config interface {
	// GetTransportName returns the registered transport name to build.
	GetTransportName() string

	// GetInboundTopic returns the topic carrying inbound call envelopes.
	GetInboundTopic() string
}

// CapabilitiesProvider is implemented by transports that can report their
// capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
