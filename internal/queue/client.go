package queue

import "context"

// Client enqueues job messages for asynchronous processing. Delivery is at
// least once; consumers tolerate duplicates and resolve current state from
// the job record, never from the message.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
