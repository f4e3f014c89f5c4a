package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/satriahrh/persona-chat/domain"
)

// DefaultRouterURL is the OpenAI-compatible Hugging Face inference router.
const DefaultRouterURL = "https://router.huggingface.co/v1"

var _ domain.Completer = (*OpenAIClient)(nil)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client *openai.Client
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = DefaultRouterURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{client: openai.NewClientWithConfig(clientCfg)}, nil
}

// Complete implements domain.Completer.
func (o *OpenAIClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.Params.MaxTokens,
		Temperature: req.Params.Temperature,
		TopP:        req.Params.TopP,
	})
	if err != nil {
		return domain.Completion{}, mapOpenAIError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return domain.Completion{}, domain.NewCompletionError(domain.ErrKindProtocol, "response has no choices", nil)
	}

	choice := resp.Choices[0]
	return domain.Completion{
		Content:   choice.Message.Content,
		Truncated: choice.FinishReason == openai.FinishReasonLength,
	}, nil
}

// mapOpenAIError translates go-openai and network errors into typed
// domain.CompletionError values.
func mapOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewCompletionError(domain.ErrKindCancelled, "request timed out or cancelled", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewStatusError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewStatusError(reqErr.HTTPStatusCode, fmt.Sprintf("request failed: %s", reqErr.HTTPStatus), err)
	}

	// Dial and read failures arrive wrapped in *url.Error, which is a net.Error.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.NewCompletionError(domain.ErrKindTransport, "completion endpoint unreachable", err)
	}

	// The body is streamed through json.Decoder, so a cut-off or empty body
	// surfaces as io.ErrUnexpectedEOF or io.EOF rather than a SyntaxError.
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return domain.NewCompletionError(domain.ErrKindProtocol, "malformed response body", err)
	}

	return domain.NewCompletionError(domain.ErrKindTransport, "completion request failed", err)
}
