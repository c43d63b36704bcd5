package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
)

// Metadata keys that carry the envelope fields through a watermill message.
const (
	metaKeyUserID = "user_id"
	metaKeyTopic  = "topic"
)

// WatermillBus implements Bus on top of watermill's in-memory GoChannel.
//
// Publish returns only after every current subscriber has handled the
// message, so events from one publisher are observed in publish order.
type WatermillBus struct {
	pub    message.Publisher
	sub    message.Subscriber
	tracer trace.Tracer
	logger *slog.Logger
}

// BusOption configures a WatermillBus.
type BusOption func(*WatermillBus)

// WithTracer traces publish and handle operations with tracer.
func WithTracer(tracer trace.Tracer) BusOption {
	return func(b *WatermillBus) { b.tracer = tracer }
}

// WithBusLogger sets the logger used for handler failures.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *WatermillBus) { b.logger = l }
}

// NewWatermillBus creates an in-memory bus.
func NewWatermillBus(opts ...BusOption) *WatermillBus {
	b := &WatermillBus{logger: slog.Default().With("component", "pubsub")}
	for _, opt := range opts {
		opt(b)
	}

	goChannel := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)
	b.sub = goChannel
	b.pub = goChannel
	if b.tracer != nil {
		b.pub = NewPublisherTracingMiddleware(goChannel, b.tracer)
	}
	return b
}

func toWatermill(ctx context.Context, msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.SetContext(ctx)
	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(metaKeyUserID, msg.UserID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)
	return wmMsg
}

func fromWatermill(wmMsg *message.Message) Message {
	metadata := make(map[string]string, len(wmMsg.Metadata))
	for k, v := range wmMsg.Metadata {
		if k != metaKeyTopic && k != metaKeyUserID {
			metadata[k] = v
		}
	}
	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		UserID:   wmMsg.Metadata.Get(metaKeyUserID),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements Publisher.
func (b *WatermillBus) Publish(ctx context.Context, msg Message) error {
	return b.pub.Publish(msg.Topic, toWatermill(ctx, msg))
}

// Subscribe implements Subscriber. Handler errors are logged and the message
// is acked anyway; the in-memory bus has no redelivery worth waiting for.
func (b *WatermillBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	process := func(wmMsg *message.Message) ([]*message.Message, error) {
		return nil, handler(wmMsg.Context(), fromWatermill(wmMsg))
	}
	if b.tracer != nil {
		process = TracingMiddleware(b.tracer)(process)
	}

	go func() {
		for wmMsg := range messages {
			if _, err := process(wmMsg); err != nil {
				b.logger.Error("Failed to handle message", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
			}
			wmMsg.Ack()
		}
		b.logger.Debug("Subscription message loop ended", "topic", topic)
	}()
	return nil
}

// Close stops all subscriptions.
func (b *WatermillBus) Close() error {
	return b.sub.Close()
}

// Shutdown closes the bus. It lets the container stop it like any other service.
func (b *WatermillBus) Shutdown(context.Context) error {
	return b.Close()
}
