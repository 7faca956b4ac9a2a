// Package google adapts Gemini models to model.ChatModel.
package google

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/masf-go/graph/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-2.5-flash"

// ChatModel calls Gemini through the generative-ai-go SDK.
type ChatModel struct {
	client generator
}

// generator performs one GenerateContent call; tests replace it.
type generator interface {
	generate(ctx context.Context, system string, parts []genai.Part, tools []*genai.Tool) (*genai.GenerateContentResponse, error)
}

// NewChatModel creates an adapter for modelName. An empty apiKey yields a
// model whose calls fail with model.ErrNoAPIKey.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}
	if apiKey == "" {
		return &ChatModel{}
	}
	return &ChatModel{client: &sdkGenerator{apiKey: apiKey, modelName: modelName}}
}

// Chat sends messages to Gemini. System turns become the system
// instruction; tool specs become function declarations.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}
	if m.client == nil {
		return model.ChatOut{}, model.ErrNoAPIKey
	}

	system, turns := model.SplitSystem(messages)
	parts := make([]genai.Part, 0, len(turns))
	for _, t := range turns {
		if t.Content != "" {
			parts = append(parts, genai.Text(t.Content))
		}
	}

	resp, err := m.client.generate(ctx, system, parts, convertTools(tools))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: %w", err)
	}
	return convertResponse(resp), nil
}

type sdkGenerator struct {
	apiKey    string
	modelName string
}

func (g *sdkGenerator) generate(ctx context.Context, system string, parts []genai.Part, tools []*genai.Tool) (*genai.GenerateContentResponse, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(g.modelName)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	gm.Tools = tools
	return gm.GenerateContent(ctx, parts...)
}

func convertTools(tools []model.ToolSpec) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchema(t.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	typ, _ := schema["type"].(string)
	out := &genai.Schema{Type: convertType(typ)}
	if out.Type == genai.TypeUnspecified {
		out.Type = genai.TypeObject
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				out.Properties[name] = convertSchema(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = convertSchema(items)
	}
	switch req := schema["required"].(type) {
	case []string:
		out.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	return out
}

func convertType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func convertResponse(resp *genai.GenerateContentResponse) model.ChatOut {
	var out model.ChatOut
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{Name: p.Name, Input: p.Args})
		}
	}
	return out
}
