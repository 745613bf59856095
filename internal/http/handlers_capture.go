package httpx

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eduassist/portal/internal/capture"
)

// CaptureAgentQueue is the agent side of an in-process capture transport.
type CaptureAgentQueue interface {
	Next(ctx context.Context) (capture.Message, error)
	Respond(ctx context.Context, msg capture.Message) error
}

// CaptureHandlers lets an external capture agent poll for IR requests and
// post its responses over HTTP.
type CaptureHandlers struct {
	Queue CaptureAgentQueue
	// Token, when set, must be sent by agents as X-Capture-Token.
	Token       string
	PollTimeout time.Duration
	Logger      *slog.Logger
}

const defaultCapturePoll = 25 * time.Second

func (h *CaptureHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *CaptureHandlers) authorized(w http.ResponseWriter, r *http.Request) bool {
	if h.Token == "" {
		return true
	}
	got := r.Header.Get("X-Capture-Token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) == 1 {
		return true
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "invalid_capture_token",
		Err:     errors.New("invalid capture token"),
	})
	return false
}

// NextRequest long-polls for the next IR request. It replies 204 when none
// arrives within the poll window.
// GET /api/capture/requests.
func (h *CaptureHandlers) NextRequest(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	poll := h.PollTimeout
	if poll <= 0 {
		poll = defaultCapturePoll
	}
	ctx, cancel := context.WithTimeout(r.Context(), poll)
	defer cancel()

	msg, err := h.Queue.Next(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.logger().ErrorContext(r.Context(), "capture poll failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "capture_poll_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, msg)
}

// PostResponse hands an agent's response to the bridge.
// POST /api/capture/responses.
func (h *CaptureHandlers) PostResponse(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	var msg capture.Message
	if !DecodeJSON(w, r, &msg) {
		return
	}
	if msg.Type != capture.TypeLatestIRResponse || msg.CorrelationID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_message",
			Err:     errors.New("expected a " + capture.TypeLatestIRResponse + " message with a correlationId"),
		})
		return
	}
	if err := h.Queue.Respond(r.Context(), msg); err != nil {
		h.logger().WarnContext(r.Context(), "capture response dropped", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "capture_busy", Err: err})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
