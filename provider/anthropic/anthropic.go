package anthropic_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"coursechat/provider"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Client talks to the Anthropic messages API, including tool use.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewClient creates a new Anthropic client.
func NewClient(apiKey, baseURL, model string, maxTokens int, temperature float64, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type messagesRequest struct {
	Model       string                    `json:"model"`
	MaxTokens   int                       `json:"max_tokens"`
	Temperature float64                   `json:"temperature"`
	System      string                    `json:"system,omitempty"`
	Messages    []provider.Message        `json:"messages"`
	Tools       []provider.ToolDefinition `json:"tools,omitempty"`
	ToolChoice  map[string]string         `json:"tool_choice,omitempty"`
}

type messagesResponse struct {
	Content    []provider.ContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one messages request. Transient failures (network, 429,
// 5xx) are retried exactly once; any further failure propagates.
func (c *Client) Generate(ctx context.Context, req provider.Request) (provider.Reply, error) {
	body := messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      req.System,
		Messages:    req.Messages,
		Tools:       req.Tools,
	}
	if len(req.Tools) > 0 {
		body.ToolChoice = map[string]string{"type": "auto"}
	}

	resp, err := c.send(ctx, body)
	if err != nil && retryable(err) {
		resp, err = c.send(ctx, body)
	}
	if err != nil {
		return provider.Reply{}, err
	}

	reply := provider.Reply{StopReason: resp.StopReason, Content: resp.Content}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if reply.Text == "" {
				reply.Text = block.Text
			}
		case "tool_use":
			var input map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return provider.Reply{}, fmt.Errorf("decoding tool input for %s: %w", block.Name, err)
				}
			}
			reply.ToolCalls = append(reply.ToolCalls, provider.ToolCall{ID: block.ID, Name: block.Name, Input: input})
		}
	}
	return reply, nil
}

type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

func retryable(err error) bool {
	_, ok := err.(transientError)
	return ok
}

func (c *Client) send(ctx context.Context, body messagesRequest) (messagesResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return messagesResponse{}, fmt.Errorf("marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return messagesResponse{}, fmt.Errorf("request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return messagesResponse{}, transientError{fmt.Errorf("anthropic request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return messagesResponse{}, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		err := fmt.Errorf("anthropic status %d: %s", httpResp.StatusCode, truncate(raw, 512))
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
			return messagesResponse{}, transientError{err}
		}
		return messagesResponse{}, err
	}

	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return messagesResponse{}, fmt.Errorf("decoding response: %w", err)
	}
	if resp.Error != nil {
		return messagesResponse{}, fmt.Errorf("anthropic error %s: %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return messagesResponse{}, fmt.Errorf("empty response content")
	}
	return resp, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
