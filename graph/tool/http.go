package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/masf-go/graph/model"
)

// HTTPTool performs HTTP GET and POST requests.
//
// Input keys: "url" (required), "method" (GET or POST), "body" (string),
// "headers" (map of strings). Output keys: "status_code", "headers", "body".
type HTTPTool struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPTool creates an HTTP tool with the given request timeout. Response
// bodies are truncated at 1 MiB.
func NewHTTPTool(timeout time.Duration) *HTTPTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTool{client: &http.Client{Timeout: timeout}, maxBody: 1 << 20}
}

// Name returns "http_request".
func (h *HTTPTool) Name() string { return "http_request" }

// Spec describes the tool's input.
func (h *HTTPTool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        h.Name(),
		Description: "Perform an HTTP GET or POST request and return status, headers and body",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url":    map[string]any{"type": "string"},
				"method": map[string]any{"type": "string"},
				"body":   map[string]any{"type": "string"},
			},
			"required": []string{"url"},
		},
	}
}

// Call performs the request described by input.
func (h *HTTPTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	url, _ := input["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("url parameter required (string)")
	}
	method := http.MethodGet
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", method)
	}

	var body io.Reader
	if s, ok := input["body"].(string); ok && s != "" {
		body = bytes.NewBufferString(s)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if headers, ok := input["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	headers := make(map[string]any, len(resp.Header))
	for k, v := range resp.Header {
		headers[k] = strings.Join(v, ", ")
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        string(data),
	}, nil
}
