// Package llm implements the completion-provider port against the OpenAI
// Chat Completions API. Any server speaking the same wire format (Azure
// OpenAI, OpenRouter, vLLM, Ollama) works by overriding the base URL.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/domain/billing"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// maxSSELineBytes bounds one SSE data line. Beyond this the stream fails as
// an upstream error rather than growing without limit.
const maxSSELineBytes = 1 << 20

// OpenAIClient calls the chat completions endpoint with a fixed model.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string

	// httpClient serves non-streaming calls and carries a hard timeout.
	httpClient *http.Client
	// streamClient has no client timeout; streaming lifetime is bounded by
	// the request context instead.
	streamClient *http.Client
}

// NewOpenAIClient creates a client for the given endpoint and model.
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		streamClient: &http.Client{},
	}
}

// --- wire types ---

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type wireRequest struct {
	Model         string             `json:"model"`
	Messages      []wireMessage      `json:"messages"`
	Stream        bool               `json:"stream,omitempty"`
	StreamOptions *wireStreamOptions `json:"stream_options,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage wireUsage `json:"usage"`
}

// Streaming chunks use "delta" instead of "message"; the final chunk after
// finish_reason carries usage with an empty choices array when
// stream_options.include_usage is set.
type wireStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
}

// Complete sends a non-streaming request and returns the full text with the
// provider-reported usage.
func (c *OpenAIClient) Complete(ctx context.Context, messages []valueobjects.Message) (*ports.Completion, error) {
	resp, err := c.post(ctx, c.httpClient, c.buildRequest(messages, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8_000_000))
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("openai", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.NewUpstreamError("openai",
			fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed wireResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, pkgerrors.NewUpstreamError("openai", fmt.Errorf("parse response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, pkgerrors.NewUpstreamError("openai", fmt.Errorf("response carried no choices"))
	}

	return &ports.Completion{
		Text: parsed.Choices[0].Message.Content,
		Usage: billing.UsageRecord{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

// CompleteStreaming sends a streaming request and returns an iterator over
// the SSE chunks. The caller owns the stream and must Close it.
func (c *OpenAIClient) CompleteStreaming(ctx context.Context, messages []valueobjects.Message) (ports.CompletionStream, error) {
	resp, err := c.post(ctx, c.streamClient, c.buildRequest(messages, true))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2_000_000))
		resp.Body.Close()
		return nil, pkgerrors.NewUpstreamError("openai",
			fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	// A single delta can exceed bufio's default 64 KiB line cap, and the
	// provider does not break long content across lines.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineBytes)

	return &openAIStream{
		body:    resp.Body,
		scanner: scanner,
	}, nil
}

func (c *OpenAIClient) buildRequest(messages []valueobjects.Message, stream bool) wireRequest {
	req := wireRequest{
		Model:    c.model,
		Messages: make([]wireMessage, 0, len(messages)),
		Stream:   stream,
	}
	if stream {
		req.StreamOptions = &wireStreamOptions{IncludeUsage: true}
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return req
}

func (c *OpenAIClient) post(ctx context.Context, client *http.Client, payload wireRequest) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("openai", fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("openai", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, pkgerrors.NewUpstreamError("openai", err)
	}
	return resp, nil
}

// openAIStream parses the SSE body line by line. Events arrive as
// "data: {json}" lines terminated by "data: [DONE]".
type openAIStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// Next returns the next delta, or io.EOF after the [DONE] sentinel.
func (s *openAIStream) Next() (ports.CompletionDelta, error) {
	if s.done {
		return ports.CompletionDelta{}, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			s.done = true
			return ports.CompletionDelta{}, io.EOF
		}

		var chunk wireStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return ports.CompletionDelta{}, fmt.Errorf("parse stream chunk: %w", err)
		}

		// Errors come as regular data lines with an "error" field instead of
		// SSE event types.
		if len(chunk.Choices) == 0 && chunk.Usage == nil {
			var errChunk struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if json.Unmarshal([]byte(data), &errChunk) == nil && errChunk.Error.Message != "" {
				return ports.CompletionDelta{}, fmt.Errorf("stream error: %s", errChunk.Error.Message)
			}
			continue
		}

		delta := ports.CompletionDelta{}
		if chunk.Usage != nil {
			delta.Usage = &billing.UsageRecord{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
			}
		}
		if len(chunk.Choices) > 0 {
			delta.Content = chunk.Choices[0].Delta.Content
		}
		if delta.Content == "" && delta.Usage == nil {
			continue
		}
		return delta, nil
	}

	if err := s.scanner.Err(); err != nil {
		return ports.CompletionDelta{}, err
	}
	// Body ended without the [DONE] sentinel: treat as truncation, not a
	// clean end, so the caller does not settle on partial usage.
	return ports.CompletionDelta{}, fmt.Errorf("stream ended before completion")
}

// Close releases the underlying response body.
func (s *openAIStream) Close() error {
	return s.body.Close()
}
