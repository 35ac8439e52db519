package messaging

import "context"

// Broker is the messaging abstraction between the API process and the
// notification worker. Appointment events are published to a channel and
// consumed by whoever cares.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
