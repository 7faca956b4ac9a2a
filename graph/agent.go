package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/masf-go/graph/model"
	"github.com/dshills/masf-go/graph/tool"
)

// ChatNode asks a chat model to respond to a value of its input.
//
// The user turn is the string form of in[InputKey], or every key/value of
// in when InputKey is empty. The reply text is written to OutputKey
// ("response" by default). Tool calls requested by the model are run
// against Tools and their results collected under "tool_results".
type ChatNode struct {
	Base

	Model     model.ChatModel
	System    string
	InputKey  string
	OutputKey string
	Tools     []tool.Tool
}

// NewChatNode creates a chat node.
func NewChatNode(m model.ChatModel, system, inputKey, outputKey string) *ChatNode {
	return &ChatNode{Model: m, System: system, InputKey: inputKey, OutputKey: outputKey}
}

// Forward calls the model.
func (c *ChatNode) Forward(ctx context.Context, in Message) (Message, error) {
	if c.Model == nil {
		return nil, fmt.Errorf("chat node %s has no model", c.Name())
	}
	out, err := c.Model.Chat(ctx, model.Prompt(c.System, c.userTurn(in)), tool.Specs(c.Tools))
	if err != nil {
		return nil, err
	}

	key := c.OutputKey
	if key == "" {
		key = "response"
	}
	result := Message{key: out.Text}
	if len(out.ToolCalls) == 0 {
		return result, nil
	}

	results := make([]any, 0, len(out.ToolCalls))
	for _, call := range out.ToolCalls {
		t, ok := tool.Find(c.Tools, call.Name)
		if !ok {
			return nil, fmt.Errorf("model requested unknown tool %q", call.Name)
		}
		res, err := t.Call(ctx, call.Input)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", call.Name, err)
		}
		results = append(results, map[string]any(res))
	}
	result["tool_results"] = results
	return result, nil
}

func (c *ChatNode) userTurn(in Message) string {
	if c.InputKey != "" {
		return fmt.Sprint(in[c.InputKey])
	}
	var sb strings.Builder
	for _, k := range in.Keys() {
		fmt.Fprintf(&sb, "%s: %v\n", k, in[k])
	}
	return sb.String()
}

// ToolNode calls a tool with its input message and forwards the result.
type ToolNode struct {
	Base
	Tool tool.Tool
}

// NewToolNode creates a node that calls t.
func NewToolNode(t tool.Tool) *ToolNode {
	return &ToolNode{Tool: t}
}

// Forward calls the tool.
func (n *ToolNode) Forward(ctx context.Context, in Message) (Message, error) {
	if n.Tool == nil {
		return nil, fmt.Errorf("tool node %s has no tool", n.Name())
	}
	out, err := n.Tool.Call(ctx, map[string]any(in.Clone()))
	if err != nil {
		return nil, err
	}
	return Message(out), nil
}
