package llm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	geminiDefaultModel = "gemini-2.0-flash"
	filePollInterval   = 2 * time.Second
)

// GeminiProvider implements Provider over the Gemini API. It is the only
// provider that keeps documents server-side, so PDFs can be assessed without
// local text extraction.
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a Gemini client
func NewGeminiProvider(ctx context.Context, config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, eris.New("Gemini API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "create gemini client")
	}
	return &GeminiProvider{client: client, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Close releases the client
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// UploadDocument uploads the bytes, waits until the file is active and
// returns its URI
func (p *GeminiProvider) UploadDocument(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	file, err := p.client.UploadFile(ctx, "", bytes.NewReader(data), &genai.UploadFileOptions{
		DisplayName: name,
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", eris.Wrapf(err, "upload %s", name)
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(filePollInterval):
		}
		file, err = p.client.GetFile(ctx, file.Name)
		if err != nil {
			return "", eris.Wrapf(err, "poll upload %s", name)
		}
	}
	if file.State != genai.FileStateActive {
		return "", eris.Errorf("upload %s ended in state %v", name, file.State)
	}
	return file.URI, nil
}

// IsAvailable lists one model as a credential check
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx).Next()
	return err == nil || errors.Is(err, iterator.Done)
}

// Generate runs one GenerateContent call
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	modelName := p.config.model(req, geminiDefaultModel)
	model := p.client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(int32(p.config.maxTokens(req)))
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	resp, err := model.GenerateContent(ctx, geminiParts(req)...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini request failed")
	}

	text := geminiText(resp)
	if text == "" {
		return nil, eris.New("gemini returned no text")
	}

	out := &GenerateResponse{Text: text, Model: modelName}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

func geminiParts(req GenerateRequest) []genai.Part {
	var parts []genai.Part
	if req.FileID != "" {
		mime := req.FileMIMEType
		if mime == "" {
			mime = "application/pdf"
		}
		parts = append(parts, genai.FileData{MIMEType: mime, URI: req.FileID})
	}
	return append(parts, genai.Text(userContent(req)))
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}
