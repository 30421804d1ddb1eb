package mq

import "context"

// MessageQueue is the consuming side of a queue. Messages that are not
// deleted become visible again after visibilityTimeout seconds.
type MessageQueue interface {
	Receive(ctx context.Context, visibilityTimeout int32) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
}

type Message struct {
	ReceiptHandle string
	Body          string
	// ReceiveCount is how many times the queue has handed out this message,
	// including this delivery.
	ReceiveCount int
}
