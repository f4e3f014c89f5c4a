package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/satriahrh/persona-chat/domain"
)

var _ domain.Completer = (*GeminiClient)(nil)

type GeminiClient struct {
	client *genai.Client
}

type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}

	client, err := genai.NewClient(
		ctx,
		&genai.ClientConfig{
			APIKey:      cfg.APIKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  &http.Client{Timeout: cfg.Timeout},
			HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Complete implements domain.Completer.
func (g *GeminiClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	contents, config := geminiRequest(req)

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return domain.Completion{}, mapGeminiError(ctx, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return domain.Completion{}, domain.NewCompletionError(domain.ErrKindProtocol, "response has no candidates", nil)
	}

	return domain.Completion{
		Content:   resp.Text(),
		Truncated: resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens,
	}, nil
}

// geminiRequest moves system messages into the system instruction and keeps
// the remaining messages as user contents in order.
func geminiRequest(req domain.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.Params.MaxTokens),
		Temperature:     ptr(req.Params.Temperature),
		TopP:            ptr(req.Params.TopP),
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		part := &genai.Part{Text: msg.Content}
		if msg.Role == domain.SystemRole {
			if config.SystemInstruction == nil {
				config.SystemInstruction = &genai.Content{}
			}
			config.SystemInstruction.Parts = append(config.SystemInstruction.Parts, part)
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{part},
		})
	}
	return contents, config
}

func mapGeminiError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewCompletionError(domain.ErrKindCancelled, "request timed out or cancelled", err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewStatusError(apiErr.Code, apiErr.Message, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.NewCompletionError(domain.ErrKindTransport, "gemini endpoint unreachable", err)
	}

	return domain.NewCompletionError(domain.ErrKindProtocol, "gemini request failed", err)
}

func ptr[T any](v T) *T { return &v }
