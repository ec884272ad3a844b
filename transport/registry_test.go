package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock config for testing
type mockConfig struct {
	transportName string
	inboundTopic  string
}

func (m *mockConfig) GetTransportName() string { return m.transportName }
func (m *mockConfig) GetInboundTopic() string  { return m.inboundTopic }

// Mock publisher and subscriber
type mockPublisher struct{}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error {
	return nil
}

func (m *mockPublisher) Close() error {
	return nil
}

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (m *mockSubscriber) Close() error {
	return nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.NotNil(t, reg)
	assert.Empty(t, reg.Names())
}

func TestRegistryRegisterAndBuild(t *testing.T) {
	reg := NewRegistry()

	built := false
	reg.Register("test", func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
		built = true
		return Transport{Publisher: &mockPublisher{}, Subscriber: &mockSubscriber{}}, nil
	})

	assert.True(t, reg.Has("test"))
	assert.False(t, reg.Has("other"))

	tr, err := reg.Build(context.Background(), &mockConfig{transportName: "test"}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.True(t, built)
	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)
}

func TestRegistryBuildUnknownTransport(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Build(context.Background(), &mockConfig{transportName: "missing"}, watermill.NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestRegistryBuildNilConfig(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Build(context.Background(), nil, watermill.NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")
}

func TestRegistryBuildPropagatesBuilderError(t *testing.T) {
	reg := NewRegistry()
	builderErr := errors.New("connection refused")
	reg.Register("failing", func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
		return Transport{}, builderErr
	})

	_, err := reg.Build(context.Background(), &mockConfig{transportName: "failing"}, watermill.NopLogger{})
	assert.ErrorIs(t, err, builderErr)
}

func TestRegistryCapabilities(t *testing.T) {
	reg := NewRegistry()
	caps := Capabilities{Name: "test", SupportsReplies: true}
	reg.RegisterWithCapabilities("test", func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
		return Transport{}, nil
	}, caps)

	assert.Equal(t, caps, reg.GetCapabilities("test"))

	// Unknown transports get a zero struct carrying only the name.
	unknown := reg.GetCapabilities("nope")
	assert.Equal(t, "nope", unknown.Name)
	assert.False(t, unknown.SupportsReplies)
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	noop := func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
		return Transport{}, nil
	}
	reg.Register("a", noop)
	reg.Register("b", noop)

	assert.ElementsMatch(t, []string{"a", "b"}, reg.Names())
}
