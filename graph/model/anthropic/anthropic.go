// Package anthropic adapts Anthropic's Messages API to model.ChatModel.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/masf-go/graph/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "claude-sonnet-4-5"

// ChatModel calls Claude through the official SDK.
type ChatModel struct {
	modelName string
	maxTokens int64
	client    messagesClient
}

// messagesClient is the slice of the SDK the adapter needs; tests replace it.
type messagesClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// NewChatModel creates an adapter for modelName. An empty apiKey yields a
// model whose calls fail with model.ErrNoAPIKey.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	m := &ChatModel{modelName: modelName, maxTokens: 4096}
	if apiKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(apiKey))
		m.client = &client.Messages
	}
	return m
}

// Chat sends messages to Claude. System turns become the system prompt.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, _ []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}
	if m.client == nil {
		return model.ChatOut{}, model.ErrNoAPIKey
	}

	system, turns := model.SplitSystem(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: m.maxTokens,
		Messages:  make([]anthropic.MessageParam, 0, len(turns)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == model.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	msg, err := m.client.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("anthropic: %w", err)
	}
	return convertMessage(msg), nil
}

func convertMessage(msg *anthropic.Message) model.ChatOut {
	var out model.ChatOut
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			var input map[string]any
			_ = json.Unmarshal(block.Input, &input)
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{Name: block.Name, Input: input})
		}
	}
	return out
}
