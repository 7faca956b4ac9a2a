package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dshills/masf-go/graph/model"
)

type fakeCompletions struct {
	calls int
	errs  []error
	resp  *openai.ChatCompletion
}

func (f *fakeCompletions) New(_ context.Context, _ openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.resp, nil
}

func completion(text string) *openai.ChatCompletion {
	return &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Content: text},
	}}}
}

func TestChatModel_Chat(t *testing.T) {
	fake := &fakeCompletions{resp: completion("TERMINATE")}
	m := &ChatModel{modelName: DefaultModel, client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	out, err := m.Chat(context.Background(), model.Prompt("judge", "state"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "TERMINATE" {
		t.Errorf("expected TERMINATE, got %q", out.Text)
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 call, got %d", fake.calls)
	}
}

func TestChatModel_RetriesTransientErrors(t *testing.T) {
	fake := &fakeCompletions{
		errs: []error{&openai.Error{StatusCode: 429}, &openai.Error{StatusCode: 503}},
		resp: completion("ok"),
	}
	m := &ChatModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	out, err := m.Chat(context.Background(), model.Prompt("", "q"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "ok" || fake.calls != 3 {
		t.Errorf("expected success on third call, got %q after %d calls", out.Text, fake.calls)
	}
}

func TestChatModel_PermanentError(t *testing.T) {
	fake := &fakeCompletions{errs: []error{errors.New("bad request")}}
	m := &ChatModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	if _, err := m.Chat(context.Background(), model.Prompt("", "q"), nil); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Errorf("expected no retries, got %d calls", fake.calls)
	}
	if _, err := NewChatModel("", "").Chat(context.Background(), nil, nil); !errors.Is(err, model.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}
