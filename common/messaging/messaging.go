// Package messaging provides abstractions for message broker communication.
// Simulation components publish lifecycle notifications through Publisher
// without being coupled to a specific broker implementation.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Message represents a message sent to a message broker.
type Message struct {
	// Subject is the topic/channel the message is published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a fire-and-forget message to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message with full control over headers.
	PublishMsg(ctx context.Context, msg *Message) error

	// Close releases any resources held by the publisher.
	Close() error
}

// PublishJSON marshals v and publishes it on subject via p.
func PublishJSON(ctx context.Context, p Publisher, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.Publish(ctx, subject, data)
}

// NopPublisher discards every message. Used when messaging is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NopPublisher) PublishMsg(context.Context, *Message) error    { return nil }
func (NopPublisher) Close() error                                  { return nil }
