package llm

import "context"

// Message represents a chat message for LLM communication.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message text
}

// Params carries the per-call model parameters. Each agent definition
// supplies its own; zero values fall back to provider defaults.
type Params struct {
	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// StreamCallback is invoked for each chunk of streamed text.
// Implementations should be lightweight; heavy work should be deferred.
type StreamCallback func(chunk string)

// Provider defines the interface for all LLM implementations.
// Any OpenAI-compatible endpoint (litellm, Ollama, Azure, vLLM, etc.)
// can be used by implementing this interface.
type Provider interface {
	// CallLLM sends messages to the LLM and returns the complete response.
	CallLLM(ctx context.Context, messages []Message, params Params) (Message, error)

	// CallLLMStream sends messages and streams the response token-by-token.
	// Each chunk of text triggers the onChunk callback.
	// Returns the full assembled message once streaming finishes.
	// If the provider does not support streaming, it may fall back to CallLLM.
	CallLLMStream(ctx context.Context, messages []Message, params Params, onChunk StreamCallback) (Message, error)
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
