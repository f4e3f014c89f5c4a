package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/persona-chat/domain"
	"github.com/satriahrh/persona-chat/utils/log"
)

// FallbackReply is returned to clients whenever the completion fails.
const FallbackReply = "❌🌐 Connection lost — Please check your internet connection and try again."

// DefaultMaxContinuations bounds continuation rounds when none is configured.
const DefaultMaxContinuations = 5

type Options struct {
	Model string
	// Persona replaces the embedded persona prompt when non-empty.
	Persona string
	// MaxContinuations caps the extra rounds issued after truncation.
	MaxContinuations int
}

// Outcome describes a finished chat request.
type Outcome struct {
	Reply     string
	Category  domain.Category
	Bucket    domain.SizeBucket
	Params    domain.GenerationParams
	Rounds    int  // continuation rounds issued
	Truncated bool // true when MaxContinuations stopped the loop
}

type ChatService struct {
	llm              domain.Completer
	hasher           domain.Hasher
	model            string
	systemPrompt     string
	maxContinuations int
}

func NewChatService(gen domain.Completer, hasher domain.Hasher, opts Options) *ChatService {
	limit := opts.MaxContinuations
	if limit <= 0 {
		limit = DefaultMaxContinuations
	}
	return &ChatService{
		llm:              gen,
		hasher:           hasher,
		model:            opts.Model,
		systemPrompt:     domain.SystemInstruction(opts.Persona),
		maxContinuations: limit,
	}
}

// SystemPrompt returns the system message sent with every request.
func (s *ChatService) SystemPrompt() string {
	return s.systemPrompt
}

// Reply runs one chat request: it sends the message with the system prompt
// and keeps asking the model to continue while the output is cut off by the
// length limit. On error the partial reply is discarded and the returned
// Outcome carries only the derived labels.
func (s *ChatService) Reply(ctx context.Context, message string) (Outcome, error) {
	out := Outcome{
		Category: domain.Classify(message),
		Bucket:   domain.EstimateSize(message),
	}
	out.Params = domain.ParamsFor(out.Bucket)

	req := domain.CompletionRequest{
		Model: s.model,
		Messages: []domain.ChatMessage{
			{Role: domain.SystemRole, Content: s.systemPrompt},
			{Role: domain.UserRole, Content: message},
		},
		Params: out.Params,
	}

	logger := log.WithCtx(ctx).With(
		zap.String("category", string(out.Category)),
		zap.String("bucket", string(out.Bucket)),
		zap.String("message_sha256", s.hasher.Hash([]byte(message))),
	)

	var reply strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return s.fail(logger, out, domain.NewCompletionError(domain.ErrKindCancelled, "chat request cancelled", err))
		}

		completion, err := s.llm.Complete(ctx, req)
		if err != nil {
			return s.fail(logger, out, err)
		}
		reply.WriteString(completion.Content)

		if !completion.Truncated {
			break
		}
		if out.Rounds >= s.maxContinuations {
			out.Truncated = true
			logger.Warn("continuation limit reached", zap.Int("rounds", out.Rounds))
			break
		}

		req.Messages = append(req.Messages, domain.ChatMessage{
			Role:    domain.UserRole,
			Content: domain.ContinuePrompt,
		})
		out.Rounds++
		logger.Debug("requesting continuation", zap.Int("round", out.Rounds))
	}

	out.Reply = reply.String()
	logger.Info("chat completed",
		zap.Int("rounds", out.Rounds),
		zap.Int("reply_len", len(out.Reply)),
	)
	return out, nil
}

func (s *ChatService) fail(logger *zap.Logger, out Outcome, err error) (Outcome, error) {
	logger.Error("completion failed",
		zap.String("kind", string(domain.KindOf(err))),
		zap.Int("rounds", out.Rounds),
		zap.Error(err),
	)
	return out, err
}
