//go:build !nats

package jobqueue

import "fmt"

// NATSConfig mirrors the real config's shape so callers compile either way.
type NATSConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
}

// NewNATSQueue returns an error when the binary was not built with
// -tags=nats. Build with that tag to enable the durable JetStream backend.
func NewNATSQueue(cfg NATSConfig) (Queue, error) {
	return nil, fmt.Errorf("nats jobqueue backend not available: build with -tags=nats")
}
