package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/eduassist/portal/internal/capture"
)

var _ capture.Transport = (*CaptureTransport)(nil)

// CaptureTransport carries capture messages over Redis pub/sub so that
// agents and portal instances need not share a process.
type CaptureTransport struct {
	client           redis.UniversalClient
	requestsChannel  string
	responsesChannel string
}

// NewCaptureTransport creates a transport on "<prefix>requests" and "<prefix>responses".
func NewCaptureTransport(client redis.UniversalClient, prefix string) *CaptureTransport {
	if prefix == "" {
		prefix = "portal:capture:"
	}
	return &CaptureTransport{
		client:           client,
		requestsChannel:  prefix + "requests",
		responsesChannel: prefix + "responses",
	}
}

// Publish sends a request to agents.
func (t *CaptureTransport) Publish(ctx context.Context, msg capture.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal capture message: %w", err)
	}
	return t.client.Publish(ctx, t.requestsChannel, b).Err()
}

// Subscribe delivers agent responses to fn until ctx ends.
// Malformed payloads are skipped.
func (t *CaptureTransport) Subscribe(ctx context.Context, fn func(capture.Message)) error {
	sub := t.client.Subscribe(ctx, t.responsesChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", t.responsesChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg capture.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				continue
			}
			fn(msg)
		}
	}
}

// Respond publishes an agent response. Agents written in Go can use it directly.
func (t *CaptureTransport) Respond(ctx context.Context, msg capture.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal capture message: %w", err)
	}
	return t.client.Publish(ctx, t.responsesChannel, b).Err()
}
