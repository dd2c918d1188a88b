package llm

import (
	"context"
	"errors"
	"time"
)

// ErrUploadUnsupported is returned by providers that cannot hold a document
// on their side. Callers fall back to sending extracted text inline.
var ErrUploadUnsupported = errors.New("provider does not support document upload")

// Provider is a generative inference backend
type Provider interface {
	// Name returns the provider name
	Name() string

	// UploadDocument stores a document with the provider and returns an
	// opaque handle usable in later requests
	UploadDocument(ctx context.Context, name, mimeType string, data []byte) (string, error)

	// Generate runs one prompt and returns the raw response text
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest is one prompt against a contract
type GenerateRequest struct {
	// System sets the assistant's role
	System string

	// Prompt is the task instruction
	Prompt string

	// DocumentText carries the contract inline when there is no handle
	DocumentText string

	// FileID is a handle returned by UploadDocument
	FileID string

	// FileMIMEType is the media type of the uploaded document
	FileMIMEType string

	// JSON asks the provider for a JSON-only response where supported
	JSON bool

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// GenerateResponse is the raw provider output. Text is never parsed here.
type GenerateResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "gemini",
		Timeout:   120,
		MaxTokens: 4096,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c Config) maxTokens(req GenerateRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 4096
}

func (c Config) model(req GenerateRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

// userContent renders the prompt with the contract text appended
func userContent(req GenerateRequest) string {
	if req.DocumentText == "" {
		return req.Prompt
	}
	return req.Prompt + "\n\n--- CONTRACT TEXT ---\n" + req.DocumentText + "\n--- END CONTRACT TEXT ---"
}
