package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/ppiankov/covenant/internal/model"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, Config{Provider: "OpenAI", APIKey: "k"})
	if err != nil || p.Name() != "openai" {
		t.Fatalf("expected openai provider, got %v, %v", p, err)
	}
	p, err = NewProvider(ctx, Config{Provider: "claude", APIKey: "k"})
	if err != nil || p.Name() != "anthropic" {
		t.Fatalf("expected anthropic provider, got %v, %v", p, err)
	}
	p, err = NewProvider(ctx, Config{Provider: "ollama", Model: "m"})
	if err != nil || p.Name() != "ollama" {
		t.Fatalf("expected ollama provider, got %v, %v", p, err)
	}

	if _, err := NewProvider(ctx, Config{}); err == nil {
		t.Error("expected error for empty provider")
	}
	if _, err := NewProvider(ctx, Config{Provider: "watson"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewProvider(ctx, Config{Provider: "gemini"}); err == nil {
		t.Error("expected error for gemini without key")
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(
		model.LLMConfig{Provider: "gemini", Model: "gemini-2.0-flash", APIKey: "k", Timeout: 60, MaxTokens: 2048},
		model.SearchConfig{HTTPSProxy: "http://proxy:3128"},
	)
	if cfg.Provider != "gemini" || cfg.MaxTokens != 2048 || cfg.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if c.timeout().Seconds() != 120 {
		t.Errorf("expected 120s default timeout, got %v", c.timeout())
	}
	if got := c.maxTokens(GenerateRequest{}); got != 4096 {
		t.Errorf("expected 4096 default tokens, got %d", got)
	}
	c.Model = "configured"
	if got := c.model(GenerateRequest{Model: "override"}, "fallback"); got != "override" {
		t.Errorf("expected request model to win, got %s", got)
	}
	if got := c.model(GenerateRequest{}, "fallback"); got != "configured" {
		t.Errorf("expected configured model, got %s", got)
	}
}

func TestPrompts(t *testing.T) {
	if !strings.Contains(IdentifyPrompt(), `"seller_company"`) {
		t.Error("identify prompt must ask for seller_company")
	}

	p := AssessPrompt("supply agreement", "Acme Ltd", "Profile: founded 1999")
	for _, want := range []string{"supply agreement", "Acme Ltd", "founded 1999", `"health_dimensions"`, `"dimension_explanations"`, `"overall_recommendation"`} {
		if !strings.Contains(p, want) {
			t.Errorf("assess prompt missing %q", want)
		}
	}
	if strings.Contains(AssessPrompt("", "", ""), "Background checks") {
		t.Error("empty background should be omitted")
	}
}

func TestUserContent(t *testing.T) {
	if got := userContent(GenerateRequest{Prompt: "p"}); got != "p" {
		t.Errorf("expected bare prompt, got %q", got)
	}
	got := userContent(GenerateRequest{Prompt: "p", DocumentText: "clause 1"})
	if !strings.HasPrefix(got, "p\n") || !strings.Contains(got, "clause 1") {
		t.Errorf("expected prompt followed by contract text, got %q", got)
	}
}

func TestGeminiHelpers(t *testing.T) {
	parts := geminiParts(GenerateRequest{Prompt: "p", FileID: "https://files/abc"})
	if len(parts) != 2 {
		t.Fatalf("expected file + text parts, got %d", len(parts))
	}
	fd, ok := parts[0].(genai.FileData)
	if !ok || fd.URI != "https://files/abc" || fd.MIMEType != "application/pdf" {
		t.Errorf("unexpected file part: %#v", parts[0])
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(" {\"a\""), genai.Text(":1} ")}},
		}},
	}
	if got := geminiText(resp); got != `{"a":1}` {
		t.Errorf("unexpected text %q", got)
	}
	if got := geminiText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}
