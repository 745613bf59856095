// Package capture requests IR recordings from an external capture agent.
//
// A request and its response share a correlation id. Each request waits for
// exactly one matching response under a single timeout, and its waiter is
// removed whether the response arrives or not.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TypeFetchLatestIR asks the agent for its most recent IR recording.
	TypeFetchLatestIR = "FETCH_LATEST_IR"
	// TypeLatestIRResponse carries the agent's recording.
	TypeLatestIRResponse = "LATEST_IR_RESPONSE"
)

var (
	// ErrTimeout is returned when no matching response arrives in time.
	ErrTimeout = errors.New("capture: timed out waiting for IR response")
	// ErrNoIR is returned when the agent answers without an IR payload.
	ErrNoIR = errors.New("capture: response carried no IR")
	// ErrClosed is returned after the bridge is closed.
	ErrClosed = errors.New("capture: bridge closed")
)

// Message is the envelope exchanged with capture agents.
type Message struct {
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Transport carries messages to and from agents.
type Transport interface {
	// Publish delivers a request to agents.
	Publish(ctx context.Context, msg Message) error
	// Subscribe calls fn for each response until ctx ends. It blocks.
	Subscribe(ctx context.Context, fn func(Message)) error
}

// Withdrawer is implemented by transports that queue requests. The bridge
// withdraws a request once its waiter is gone.
type Withdrawer interface {
	Withdraw(correlationID string)
}

// BridgeOptions groups constructor options.
type BridgeOptions struct {
	Transport Transport
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Bridge correlates IR requests with agent responses.
type Bridge struct {
	transport Transport
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]chan Message
	closed  bool
}

// NewBridge creates a Bridge. Timeout defaults to 30s.
func NewBridge(opts BridgeOptions) *Bridge {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		transport: opts.Transport,
		timeout:   timeout,
		logger:    logger,
		pending:   make(map[string]chan Message),
	}
}

// Run routes responses to waiters until ctx ends. Pending waiters fail with
// ErrClosed when Run returns.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.close()
	err := b.transport.Subscribe(ctx, b.Deliver)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *Bridge) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
}

// Deliver hands a response to its waiter. Unknown or duplicate ids are dropped.
func (b *Bridge) Deliver(msg Message) {
	if msg.Type != TypeLatestIRResponse {
		return
	}
	b.mu.Lock()
	ch, ok := b.pending[msg.CorrelationID]
	if ok {
		delete(b.pending, msg.CorrelationID)
	}
	b.mu.Unlock()

	if !ok {
		b.logger.Debug("dropping unmatched capture response", "correlation_id", msg.CorrelationID)
		return
	}
	ch <- msg // buffered; exactly one send per waiter
}

// Pending returns the number of outstanding requests.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// FetchLatestIR asks the agent for its latest recording and returns the raw IR.
func (b *Bridge) FetchLatestIR(ctx context.Context) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan Message, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.pending[id] = ch
	b.mu.Unlock()
	defer b.forget(id)

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.transport.Publish(ctx, Message{Type: TypeFetchLatestIR, CorrelationID: id}); err != nil {
		return nil, fmt.Errorf("publish capture request: %w", err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return irFrom(msg)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func (b *Bridge) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
	if w, ok := b.transport.(Withdrawer); ok {
		w.Withdraw(id)
	}
}

func irFrom(msg Message) (json.RawMessage, error) {
	var payload struct {
		IR json.RawMessage `json:"ir"`
	}
	if len(msg.Payload) == 0 {
		return nil, ErrNoIR
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode capture payload: %w", err)
	}
	if len(payload.IR) == 0 || string(payload.IR) == "null" {
		return nil, ErrNoIR
	}
	return payload.IR, nil
}
