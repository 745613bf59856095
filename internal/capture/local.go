package capture

import (
	"context"
	"sync"
)

// LocalTransport keeps requests and responses in process. Agents poll Next
// for requests and answer with Respond, typically through HTTP handlers.
//
// Requests whose waiter gave up are withdrawn, so the queue only ever holds
// requests a bridge is still waiting on.
type LocalTransport struct {
	mu    sync.Mutex
	size  int
	queue []Message
	// wake is closed and replaced whenever the queue changes.
	wake chan struct{}

	responses chan Message
}

var _ Withdrawer = (*LocalTransport)(nil)

// NewLocalTransport creates a transport buffering up to size messages each way.
func NewLocalTransport(size int) *LocalTransport {
	if size <= 0 {
		size = 16
	}
	return &LocalTransport{
		size:      size,
		wake:      make(chan struct{}),
		responses: make(chan Message, size),
	}
}

func (t *LocalTransport) changedLocked() {
	close(t.wake)
	t.wake = make(chan struct{})
}

// Publish queues a request for agents. It blocks while the queue is full.
func (t *LocalTransport) Publish(ctx context.Context, msg Message) error {
	for {
		t.mu.Lock()
		if len(t.queue) < t.size {
			t.queue = append(t.queue, msg)
			t.changedLocked()
			t.mu.Unlock()
			return nil
		}
		wake := t.wake
		t.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Withdraw drops a queued request that no one is waiting on any more.
func (t *LocalTransport) Withdraw(correlationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, msg := range t.queue {
		if msg.CorrelationID == correlationID {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			t.changedLocked()
			return
		}
	}
}

// Queued returns the number of requests waiting for an agent.
func (t *LocalTransport) Queued() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Subscribe feeds responses to fn until ctx ends.
func (t *LocalTransport) Subscribe(ctx context.Context, fn func(Message)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-t.responses:
			fn(msg)
		}
	}
}

// Next blocks until a request is queued or ctx ends.
func (t *LocalTransport) Next(ctx context.Context) (Message, error) {
	for {
		t.mu.Lock()
		if len(t.queue) > 0 {
			msg := t.queue[0]
			t.queue = t.queue[1:]
			t.changedLocked()
			t.mu.Unlock()
			return msg, nil
		}
		wake := t.wake
		t.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// Respond hands an agent's response to the bridge.
func (t *LocalTransport) Respond(ctx context.Context, msg Message) error {
	select {
	case t.responses <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
