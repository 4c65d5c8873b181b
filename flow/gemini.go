package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clausewise-backend/apperr"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// NewGeminiClient creates a Gemini client. An empty key is reported as
// ConfigurationMissing instead of failing on the first call.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, apperr.ConfigurationMissing("gemini", "GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// GeminiBackend completes requests with a Gemini model in JSON mode.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// GeminiOption is a functional option for GeminiBackend
type GeminiOption func(*GeminiBackend)

// GeminiWithModel sets the model name
func GeminiWithModel(name string) GeminiOption {
	return func(b *GeminiBackend) {
		if name != "" {
			b.model = name
		}
	}
}

// GeminiWithTemperature sets the sampling temperature
func GeminiWithTemperature(t float32) GeminiOption {
	return func(b *GeminiBackend) {
		b.temperature = t
	}
}

// GeminiWithLogger sets the logger
func GeminiWithLogger(l *zap.Logger) GeminiOption {
	return func(b *GeminiBackend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewGeminiBackend wraps a client.
func NewGeminiBackend(client *genai.Client, opts ...GeminiOption) *GeminiBackend {
	b := &GeminiBackend{
		client:      client,
		model:       DefaultGeminiModel,
		temperature: 0.2,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *GeminiBackend) Complete(ctx context.Context, req Request) ([]byte, error) {
	if b.client == nil {
		return nil, apperr.ConfigurationMissing(req.Flow, "GEMINI_API_KEY")
	}

	model := b.client.GenerativeModel(b.model)
	model.SetTemperature(b.temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = req.Schema

	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.Attachment != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Attachment.MIMEType, Data: req.Attachment.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return nil, apperr.ContractViolation(req.Flow, "response blocked: %v", blocked)
		}
		return nil, fmt.Errorf("gemini generate: %w", apperr.Redact(err))
	}

	text := responseText(resp)
	if text == "" {
		return nil, apperr.ContractViolation(req.Flow, "model returned no content")
	}
	if resp.UsageMetadata != nil {
		b.logger.Debug("gemini usage",
			zap.String("flow", req.Flow),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("output_tokens", resp.UsageMetadata.CandidatesTokenCount))
	}
	return []byte(text), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}
