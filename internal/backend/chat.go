package backend

import (
	"context"
	"net/http"

	"github.com/eduassist/portal/internal/domain/model"
)

// ChatHistory returns a module's past exchanges, oldest first.
func (c *Client) ChatHistory(ctx context.Context, moduleID string) ([]model.ChatMessage, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/modules/" + escape(moduleID) + "/chat/history"})
	if err != nil {
		return nil, err
	}
	return decodeList[model.ChatMessage](body, "chatHistory")
}

// ModuleChat asks a question about a module.
func (c *Client) ModuleChat(ctx context.Context, moduleID string, in model.ChatRequest) (string, error) {
	return c.chat(ctx, "/api/v1/modules/"+escape(moduleID)+"/chat", in)
}

// VideoChat asks a question about a single video.
func (c *Client) VideoChat(ctx context.Context, videoID string, in model.ChatRequest) (string, error) {
	return c.chat(ctx, "/api/v1/videos/"+escape(videoID)+"/chat", in)
}

// GeneratePrompt runs a free-form RAG prompt.
func (c *Client) GeneratePrompt(ctx context.Context, in model.ChatRequest) (string, error) {
	return c.chat(ctx, "/rag/generate-prompt", in)
}

func (c *Client) chat(ctx context.Context, path string, in model.ChatRequest) (string, error) {
	req, err := jsonRequest(http.MethodPost, path, in.WithDefaults())
	if err != nil {
		return "", err
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	if reply, ok := c.replies.Extract(body); ok {
		return reply, nil
	}
	return model.FallbackReply, nil
}
