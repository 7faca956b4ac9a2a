// Package openai adapts OpenAI's chat completions API to model.ChatModel.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/masf-go/graph/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gpt-4o-mini"

// ChatModel calls OpenAI through the official SDK, retrying rate-limited
// and server-side failures.
type ChatModel struct {
	modelName  string
	client     completionsClient
	maxRetries int
	retryDelay time.Duration
}

type completionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// NewChatModel creates an adapter for modelName. An empty apiKey yields a
// model whose calls fail with model.ErrNoAPIKey.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	m := &ChatModel{modelName: modelName, maxRetries: 3, retryDelay: time.Second}
	if apiKey != "" {
		client := openai.NewClient(option.WithAPIKey(apiKey))
		m.client = &client.Chat.Completions
	}
	return m
}

// Chat sends messages to OpenAI.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, _ []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}
	if m.client == nil {
		return model.ChatOut{}, model.ErrNoAPIKey
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.modelName),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		completion, err := m.client.New(ctx, params)
		if err == nil {
			return convertCompletion(completion), nil
		}
		lastErr = err
		if !isTransient(err) || attempt == m.maxRetries {
			break
		}
		select {
		case <-time.After(m.retryDelay * time.Duration(attempt+1)):
		case <-ctx.Done():
			return model.ChatOut{}, ctx.Err()
		}
	}
	return model.ChatOut{}, fmt.Errorf("openai: %w", lastErr)
}

func isTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

func convertCompletion(c *openai.ChatCompletion) model.ChatOut {
	var out model.ChatOut
	if len(c.Choices) == 0 {
		return out
	}
	msg := c.Choices[0].Message
	out.Text = msg.Content
	for _, call := range msg.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(call.Function.Arguments), &input)
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{Name: call.Function.Name, Input: input})
	}
	return out
}
