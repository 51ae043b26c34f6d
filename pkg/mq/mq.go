package mq

import "context"

// Message is a broker-agnostic event envelope.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// PublishResult reports where the broker stored the message.
type PublishResult struct {
	Partition int32
	Offset    int64
}

// Publisher delivers messages to a broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}

// NopPublisher discards messages. It is used when the event stream is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Message) (PublishResult, error) {
	return PublishResult{}, nil
}

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
