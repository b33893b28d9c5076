//go:build nats

package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/lxp-recflow/engine/internal/logging"
)

// NATSConfig tunes the durable JetStream backend.
type NATSConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
}

// natsQueue durably persists jobs in JetStream, so a process restart never
// drops an accepted-but-not-yet-processed batch.
type natsQueue struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewNATSQueue builds the durable backend. Only available when the binary
// is built with -tags=nats.
func NewNATSQueue(cfg NATSConfig) (Queue, error) {
	logger := watermill.NewStdLogger(false, false)

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:       cfg.URL,
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	subscribersCount := cfg.SubscribersCount
	if subscribersCount <= 0 {
		subscribersCount = 4
	}
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: subscribersCount,
		AckWaitTimeout:   30 * time.Second,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			AckAsync:      false,
			DurablePrefix: cfg.DurableName,
		},
	}, logger)
	if err != nil {
		pub.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return &natsQueue{pub: pub, sub: sub}, nil
}

func (q *natsQueue) Publish(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), data)
	return q.pub.Publish(topic, msg)
}

func (q *natsQueue) Subscribe(ctx context.Context, handler func(context.Context, Job) error) error {
	messages, err := q.sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var job Job
			if err := json.Unmarshal(msg.Payload, &job); err != nil {
				logging.Error().Err(err).Msg("failed to decode job message, dropping")
				msg.Ack()
				continue
			}
			if err := handler(ctx, job); err != nil {
				logging.Ctx(ctx).Error().Err(err).Str("batch_id", job.BatchID).Msg("job handler failed")
			}
			msg.Ack()
		}
	}
}

func (q *natsQueue) Close() error {
	if err := q.pub.Close(); err != nil {
		return err
	}
	return q.sub.Close()
}
