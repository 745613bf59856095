package backend

import (
	"fmt"
	"log/slog"
	"net/http"
)

// bearerTransport attaches the resolved bearer token to every request and
// logs request metadata.
type bearerTransport struct {
	next   http.RoundTripper
	tokens TokenSource
	logger *slog.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Del("Authorization")

	var token string
	if t.tokens != nil {
		token = t.tokens.Token(req.Context())
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	t.logRequest(out, token != "")
	return t.next.RoundTrip(out)
}

// logRequest is best effort: it never fails the request.
func (t *bearerTransport) logRequest(req *http.Request, authed bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("request logging panicked", "panic", fmt.Sprint(r))
		}
	}()

	ctx := req.Context()
	if !t.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	if !authed {
		t.logger.DebugContext(ctx, "no auth token found", "url", req.URL.String())
	}
	t.logger.DebugContext(ctx, "backend request",
		"method", req.Method,
		"url", req.URL.String(),
		"headers", redactHeaders(req.Header),
		"content_length", req.ContentLength,
	)
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		switch http.CanonicalHeaderKey(k) {
		case "Authorization", "Cookie":
			out[k] = "[REDACTED]"
		default:
			out[k] = v[0]
		}
	}
	return out
}
