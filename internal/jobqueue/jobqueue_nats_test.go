//go:build nats

package jobqueue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"

	"github.com/lxp-recflow/engine/internal/jobqueue"
)

// startEmbeddedNATS boots a disposable, in-process JetStream-enabled NATS
// server so the durable backend can be exercised without an external
// broker, the same embedded-server approach as a standalone NATS dev setup.
func startEmbeddedNATS(t *testing.T) string {
	t.Helper()

	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1, // ephemeral port
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
	}

	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	srv.ConfigureLogger()
	go srv.Start()
	t.Cleanup(srv.Shutdown)

	require.True(t, srv.ReadyForConnections(10*time.Second), "embedded NATS server did not become ready")
	return srv.ClientURL()
}

func TestNATSQueuePublishSubscribeRoundTrip(t *testing.T) {
	url := startEmbeddedNATS(t)

	queue, err := jobqueue.NewNATSQueue(jobqueue.NATSConfig{
		URL:              url,
		DurableName:      "test",
		QueueGroup:       "test-workers",
		SubscribersCount: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = queue.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	want := jobqueue.Job{BatchID: "batch-1", UsersFilePath: "u.csv", CoursesFilePath: "c.csv", TopK: 5}
	require.NoError(t, queue.Publish(ctx, want))

	received := make(chan jobqueue.Job, 1)
	go func() {
		_ = queue.Subscribe(ctx, func(_ context.Context, j jobqueue.Job) error {
			received <- j
			return nil
		})
	}()

	select {
	case got := <-received:
		require.Equal(t, want, got)
	case <-ctx.Done():
		t.Fatal(fmt.Errorf("timed out waiting for message: %w", ctx.Err()))
	}
}
