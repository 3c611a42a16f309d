package api

import (
	"context"
	"net/http"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

// Chat defaults mirror the backend's request model.
const (
	DefaultChatMaxTokens   = 500
	DefaultChatTemperature = 0.7
)

// Chat implements POST /ai/chat.
func (c *Client) Chat(ctx context.Context, req apigen.ChatRequest) (apigen.ChatResponse, error) {
	var out apigen.ChatResponse
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultChatMaxTokens
	}
	err := c.do(ctx, "chat", http.MethodPost, apigen.PathAIChat, nil, req, &out)
	return out, err
}

// Models implements GET /ai/models.
func (c *Client) Models(ctx context.Context) (apigen.ModelList, error) {
	var out apigen.ModelList
	err := c.do(ctx, "models", http.MethodGet, apigen.PathAIModels, nil, nil, &out)
	return out, err
}
