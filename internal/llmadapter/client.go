package llmadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Message is a single turn in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the minimal surface the adapter needs from a chat LLM.
// Any HTTP-backed completion API can implement it.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// HTTPClient implements Client against an OpenAI-compatible
// /v1/chat/completions endpoint (LM Studio, llama.cpp server, vLLM, etc).
type HTTPClient struct {
	http        *http.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

// NewHTTPClient builds a client against baseURL (e.g.
// "http://localhost:1234") using the given model name and parameters.
func NewHTTPClient(baseURL, model string, temperature float64, maxTokens int) *HTTPClient {
	return &HTTPClient{
		http:        &http.Client{},
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Complete sends messages and returns the full, non-streamed response.
func (c *HTTPClient) Complete(ctx context.Context, messages []Message) (string, error) {
	payload := map[string]interface{}{
		"messages":    messages,
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
		"stream":      false,
	}
	if c.model != "" {
		payload["model"] = c.model
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domainTransportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", &domainTransportError{err: fmt.Errorf("status %d: %s", resp.StatusCode, string(errBody))}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("llmadapter: completion response had no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// domainTransportError marks an error as transport-layer so callers can
// wrap it into a domain.LLMTransportError at the retry boundary.
type domainTransportError struct{ err error }

func (e *domainTransportError) Error() string { return e.err.Error() }
func (e *domainTransportError) Unwrap() error { return e.err }
