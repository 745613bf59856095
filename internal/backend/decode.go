package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// decodeList accepts a bare array, {<key>: [...]} or {data: [...]}.
// Any other shape yields an empty slice.
func decodeList[T any](body []byte, key string) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []T{}, nil
	}

	switch body[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", key, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("decode %s wrapper: %w", key, err)
		}
		for _, k := range []string{key, "data"} {
			raw, ok := wrapper[k]
			if !ok || len(bytes.TrimSpace(raw)) == 0 || bytes.TrimSpace(raw)[0] != '[' {
				continue
			}
			return decodeList[T](raw, key)
		}
	}
	return []T{}, nil
}

// DefaultReplyPath selects the chat reply from the backend answer.
const DefaultReplyPath = "response || rag_prompt"

// ReplyExtractor pulls the reply text out of a chat or RAG response.
type ReplyExtractor struct {
	expr string
}

// NewReplyExtractor validates expr; an empty expr uses DefaultReplyPath.
func NewReplyExtractor(expr string) (ReplyExtractor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultReplyPath
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return ReplyExtractor{}, fmt.Errorf("backend: invalid reply path %q: %w", expr, err)
	}
	return ReplyExtractor{expr: expr}, nil
}

// Extract returns the first non-empty string selected by the expression.
// ok is false when nothing usable was found.
func (r ReplyExtractor) Extract(body []byte) (string, bool) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", false
	}
	v, err := jmespath.Search(r.expr, data)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
