package runtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/drblury/callguard/internal/runtime/logging"
	"github.com/drblury/callguard/internal/runtime/typespec"
	"github.com/drblury/callguard/transport"
)

// startInbound builds the configured transport and starts consuming call
// envelopes from the inbound topic. A config with no transport name means
// the host invokes the dispatcher directly and nothing is started.
func (s *Service) startInbound(ctx context.Context) error {
	conf := s.Config()
	if conf.Transport == "" {
		return nil
	}
	if conf.InboundTopic == "" {
		return fmt.Errorf("transport %q configured without an inbound topic", conf.Transport)
	}

	tr, err := transport.Build(ctx, conf, loggingpkg.NewWatermillAdapter(s.Logger))
	if err != nil {
		return fmt.Errorf("build transport: %w", err)
	}

	messages, err := tr.Subscriber.Subscribe(ctx, conf.InboundTopic)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", conf.InboundTopic, err)
	}

	s.Logger.Info("Consuming inbound calls", loggingpkg.LogFields{
		"transport": conf.Transport,
		"topic":     conf.InboundTopic,
	})
	go s.consumeInbound(tr, messages)
	return nil
}

// consumeInbound dispatches each envelope from the subscription until the
// subscribing context is cancelled and the channel closes. Envelopes that
// cannot be decoded are acked and dropped; redelivering a malformed payload
// can never make it parse.
func (s *Service) consumeInbound(tr transport.Transport, messages <-chan *message.Message) {
	for msg := range messages {
		env, err := transport.DecodeEnvelope(msg)
		if err != nil {
			s.Logger.Error("Dropping malformed envelope", err, loggingpkg.LogFields{
				"message_uuid": msg.UUID,
			})
			msg.Ack()
			continue
		}

		args := typespec.Values(env.Args...)
		if env.ReplyTo == "" {
			s.Notify(env.Caller, env.Endpoint, args...)
			msg.Ack()
			continue
		}

		res := s.Call(env.Caller, env.Endpoint, args...)
		reply := transport.Reply{
			CallID: res.CallID,
			OK:     res.OK,
			Stage:  string(res.Stage),
			Reason: res.Reason,
		}
		if res.OK {
			reply.Value = res.Value.Interface()
		}

		replyMsg, err := transport.NewReplyMessage(reply)
		if err != nil {
			s.Logger.Error("Failed to encode reply", err, loggingpkg.LogFields{
				"endpoint": env.Endpoint,
				"caller":   env.Caller,
			})
			msg.Ack()
			continue
		}
		if err := tr.Publisher.Publish(env.ReplyTo, replyMsg); err != nil {
			s.Logger.Error("Failed to publish reply", err, loggingpkg.LogFields{
				"topic": env.ReplyTo,
			})
		}
		msg.Ack()
	}
}
