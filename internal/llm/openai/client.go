// Package openai implements llm.Provider using the OpenAI-compatible
// chat completions protocol.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sezatoare/sezatoare/internal/llm"

	openailib "github.com/sashabaranov/go-openai"
)

// Client implements llm.Provider. Works with any endpoint that supports
// the OpenAI chat completions API.
type Client struct {
	client *openailib.Client
	config *Config
}

// GetConfig returns the client's configuration.
func (c *Client) GetConfig() *Config {
	return c.config
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Client{
		client: openailib.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// NewClientFromEnv creates a client using environment variables.
func NewClientFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return NewClient(config)
}

// buildRequest converts provider-neutral messages and params into an
// OpenAI chat completion request.
func (c *Client) buildRequest(messages []llm.Message, params llm.Params) openailib.ChatCompletionRequest {
	openaiMsgs := make([]openailib.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openaiMsgs[i] = openailib.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	model := params.Model
	if model == "" {
		model = c.config.Model
	}
	req := openailib.ChatCompletionRequest{
		Model:    model,
		Messages: openaiMsgs,
	}
	if params.Temperature > 0 {
		req.Temperature = params.Temperature
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}
	return req
}

// CallLLM sends messages to the LLM and returns the response.
func (c *Client) CallLLM(ctx context.Context, messages []llm.Message, params llm.Params) (llm.Message, error) {
	if len(messages) == 0 {
		return llm.Message{}, fmt.Errorf("no messages to send")
	}

	req := c.buildRequest(messages, params)

	// Execute with retries
	var resp openailib.ChatCompletionResponse
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			break
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[LLM] Retry %d/%d after %v, error: %v", attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return llm.Message{}, ctx.Err()
			}
		}
	}

	if lastErr != nil {
		return llm.Message{}, fmt.Errorf("LLM call failed after %d retries: %w", c.config.MaxRetries, lastErr)
	}

	if len(resp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("no choices returned from LLM")
	}

	return llm.Message{
		Role:    llm.RoleAssistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// CallLLMStream sends messages and streams the response token-by-token.
// Each delta chunk triggers the onChunk callback.
// Returns the full assembled message once streaming finishes.
func (c *Client) CallLLMStream(ctx context.Context, messages []llm.Message, params llm.Params, onChunk llm.StreamCallback) (llm.Message, error) {
	// Fallback to synchronous call when no callback is provided
	if onChunk == nil {
		return c.CallLLM(ctx, messages, params)
	}

	if len(messages) == 0 {
		return llm.Message{}, fmt.Errorf("no messages to send")
	}

	req := c.buildRequest(messages, params)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		// Fallback to synchronous call on stream creation failure
		log.Printf("[LLM] Stream creation failed, falling back to sync: %v", err)
		return c.CallLLM(ctx, messages, params)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunkResp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The enclosing turn was cancelled: discard partial output so the
			// orchestrator never commits a half-finished message.
			if ctx.Err() != nil {
				return llm.Message{}, ctx.Err()
			}
			if sb.Len() > 0 {
				log.Printf("[LLM] Stream interrupted after %d chars: %v", sb.Len(), err)
				break
			}
			return llm.Message{}, fmt.Errorf("stream recv error: %w", err)
		}

		if len(chunkResp.Choices) > 0 {
			if delta := chunkResp.Choices[0].Delta.Content; delta != "" {
				sb.WriteString(delta)
				onChunk(delta)
			}
		}
	}

	return llm.Message{
		Role:    llm.RoleAssistant,
		Content: sb.String(),
	}, nil
}

// GetName returns the provider name.
func (c *Client) GetName() string {
	return fmt.Sprintf("openai-compatible (%s)", c.config.Model)
}
