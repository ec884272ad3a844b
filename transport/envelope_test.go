package transport

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Caller:   "player-1",
		Endpoint: "buyItem",
		Args:     []any{"sword", float64(2)},
		ReplyTo:  "replies.player-1",
	}

	msg, err := NewEnvelopeMessage(env)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.UUID)

	decoded, err := DecodeEnvelope(msg)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)
}

func TestEnvelopeValidate(t *testing.T) {
	_, err := NewEnvelopeMessage(Envelope{Endpoint: "x"})
	assert.ErrorIs(t, err, ErrEnvelopeCallerRequired)

	_, err = NewEnvelopeMessage(Envelope{Caller: "x"})
	assert.ErrorIs(t, err, ErrEnvelopeEndpointRequired)
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	_, err := DecodeEnvelope(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode envelope")

	// Well-formed JSON missing required fields is also rejected.
	msg = message.NewMessage(watermill.NewUUID(), []byte(`{"args":[1]}`))
	_, err = DecodeEnvelope(msg)
	assert.ErrorIs(t, err, ErrEnvelopeCallerRequired)
}

func TestReplyRoundTrip(t *testing.T) {
	reply := Reply{
		CallID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		OK:     true,
		Value:  map[string]any{"balance": float64(40)},
	}

	msg, err := NewReplyMessage(reply)
	require.NoError(t, err)

	decoded, err := DecodeReply(msg)
	require.NoError(t, err)
	assert.Equal(t, reply, decoded)
}

func TestReplyCarriesRejection(t *testing.T) {
	reply := Reply{CallID: "abc", Stage: "rate_limit", Reason: "rate limit exceeded"}

	msg, err := NewReplyMessage(reply)
	require.NoError(t, err)

	decoded, err := DecodeReply(msg)
	require.NoError(t, err)
	assert.False(t, decoded.OK)
	assert.Equal(t, "rate_limit", decoded.Stage)
	assert.Nil(t, decoded.Value)
}
