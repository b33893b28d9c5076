// Package jobqueue decouples "batch accepted" from "batch processed": the
// HTTP handler publishes a Job and returns 202 immediately; a single
// Subscribe loop drains the queue and runs internal/job against each job
// in turn, one at a time. The default backend is an in-process Watermill gochannel
// pub/sub; a durable, multi-replica NATS JetStream backend is available
// behind the "nats" build tag (see jobqueue_nats.go).
package jobqueue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/lxp-recflow/engine/internal/logging"
)

// Job is the unit of work a trigger request enqueues.
type Job struct {
	BatchID         string `json:"batch_id"`
	UsersFilePath   string `json:"users_file_path"`
	CoursesFilePath string `json:"courses_file_path"`
	TopK            int    `json:"top_k"`
	CallbackURL     string `json:"callback_url,omitempty"`
}

const topic = "recflow.jobs"

// Queue publishes jobs and drains them with a registered handler.
type Queue interface {
	Publish(ctx context.Context, job Job) error
	// Subscribe registers handler and blocks until ctx is cancelled or the
	// underlying transport closes. handler errors are logged; they do not
	// stop the subscription loop.
	Subscribe(ctx context.Context, handler func(context.Context, Job) error) error
	Close() error
}

// gochannelQueue is the default in-process backend: durable across job
// handoffs within a single process, lost on restart. Fine for the common
// single-replica deployment; use the nats build tag when a restart must
// not drop in-flight jobs.
type gochannelQueue struct {
	pubsub *gochannel.GoChannel
}

// NewGoChannel builds the default in-process queue backend.
func NewGoChannel() Queue {
	wmLogger := watermill.NewStdLogger(false, false)
	return &gochannelQueue{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, wmLogger),
	}
}

func (q *gochannelQueue) Publish(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), data)
	return q.pubsub.Publish(topic, msg)
}

func (q *gochannelQueue) Subscribe(ctx context.Context, handler func(context.Context, Job) error) error {
	messages, err := q.pubsub.Subscribe(ctx, topic)
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

func (q *gochannelQueue) Close() error {
	return q.pubsub.Close()
}
