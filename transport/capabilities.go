package transport

// Capabilities describes the features supported by a transport backend.
// Use this to introspect what operations are available at runtime.
type Capabilities struct {
	// SupportsOrdering indicates the transport guarantees envelope ordering.
	SupportsOrdering bool

	// SupportsTracing indicates the transport propagates tracing headers
	// natively.
	SupportsTracing bool

	// SupportsAck indicates the transport supports explicit acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the transport supports negative acknowledgment
	// (redelivery).
	SupportsNack bool

	// SupportsReplies indicates the transport can route a reply envelope back
	// to the caller. When false, request/response endpoints cannot be served
	// over this transport.
	SupportsReplies bool

	// MaxMessageSize is the maximum envelope size in bytes (0 = unlimited or
	// unknown).
	MaxMessageSize int64

	// Name is the human-readable name of the transport.
	Name string

	// Version is the transport/driver version.
	Version string
}

// SupportsReliableDelivery returns true if the transport supports
// at-least-once delivery semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// ChannelCapabilities for the in-memory Go channel transport.
var ChannelCapabilities = Capabilities{
	Name:             "channel",
	SupportsOrdering: true,
	SupportsAck:      true,
	SupportsNack:     true,
	SupportsReplies:  true,
}

// GetCapabilities returns the capabilities for a transport by name. Uses the
// registry to look up capabilities registered by each transport package.
// Returns a zero Capabilities struct if the transport is unknown.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
