package transport

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/callguard/internal/runtime/jsoncodec"
)

// Envelope is the wire form of one inbound call. Args carry plain JSON
// values; the dispatcher converts them into its argument representation
// before validation.
type Envelope struct {
	Caller   string `json:"caller"`
	Endpoint string `json:"endpoint"`
	Args     []any  `json:"args,omitempty"`

	// ReplyTo names the topic a Reply is published to. Empty means
	// fire-and-forget.
	ReplyTo string `json:"reply_to,omitempty"`
}

// Reply is the wire form of a request/response outcome.
type Reply struct {
	CallID string `json:"call_id"`
	OK     bool   `json:"ok"`
	Value  any    `json:"value,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Reason string `json:"reason,omitempty"`
}

var (
	ErrEnvelopeCallerRequired   = errors.New("envelope: caller is required")
	ErrEnvelopeEndpointRequired = errors.New("envelope: endpoint is required")
)

// Validate checks the envelope carries the fields the dispatcher needs.
func (e Envelope) Validate() error {
	if e.Caller == "" {
		return ErrEnvelopeCallerRequired
	}
	if e.Endpoint == "" {
		return ErrEnvelopeEndpointRequired
	}
	return nil
}

// NewEnvelopeMessage encodes an envelope into a Watermill message with a
// fresh UUID.
func NewEnvelopeMessage(env Envelope) (*message.Message, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	payload, err := jsoncodec.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return message.NewMessage(watermill.NewUUID(), payload), nil
}

// DecodeEnvelope parses an inbound message payload.
func DecodeEnvelope(msg *message.Message) (Envelope, error) {
	var env Envelope
	if err := jsoncodec.Unmarshal(msg.Payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// NewReplyMessage encodes a reply into a Watermill message.
func NewReplyMessage(reply Reply) (*message.Message, error) {
	payload, err := jsoncodec.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	return message.NewMessage(watermill.NewUUID(), payload), nil
}

// DecodeReply parses a reply message payload.
func DecodeReply(msg *message.Message) (Reply, error) {
	var reply Reply
	if err := jsoncodec.Unmarshal(msg.Payload, &reply); err != nil {
		return Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}
