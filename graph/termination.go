package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/masf-go/graph/model"
	"github.com/dshills/masf-go/graph/tool"
)

const verdictSystemPrompt = `You decide whether an iterative process should stop.
You are given a stopping condition and the current state as JSON.
Answer with exactly one word: TERMINATE if the condition is satisfied, CONTINUE otherwise.`

// modelVerdict asks m whether condition holds for the loop state in tc.
func modelVerdict(ctx context.Context, m model.ChatModel, condition string, tc TerminationContext) (bool, error) {
	state, err := json.MarshalIndent(tc.Input, "", "  ")
	if err != nil {
		state = []byte(fmt.Sprintf("%v", map[string]any(tc.Input)))
	}
	iteration, _ := tc.Attributes[IterationKey].(int)
	prompt := fmt.Sprintf("Condition: %s\n\nIteration: %d\n\nState:\n%s", condition, iteration, state)

	out, err := m.Chat(ctx, model.Prompt(verdictSystemPrompt, prompt), tool.Specs(tc.Tools))
	if err != nil {
		return false, fmt.Errorf("model verdict: %w", err)
	}
	return parseVerdict(out.Text), nil
}

// parseVerdict reads the first TERMINATE or CONTINUE in text. Anything else
// continues the loop.
func parseVerdict(text string) bool {
	upper := strings.ToUpper(text)
	t := strings.Index(upper, "TERMINATE")
	c := strings.Index(upper, "CONTINUE")
	switch {
	case t < 0:
		return false
	case c < 0:
		return true
	default:
		return t < c
	}
}
