package domain

import "context"

// Completer abstracts the remote chat completion provider.
type Completer interface {
	// Complete sends one completion request and returns a single round's text.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// CompletionRequest is the outbound payload for one completion round.
type CompletionRequest struct {
	Model    string           `json:"model"`
	Messages []ChatMessage    `json:"messages"`
	Params   GenerationParams `json:"params"`
}

// Completion is what a provider returned for one round.
type Completion struct {
	Content string
	// Truncated is set when the provider stopped because of the output
	// length limit.
	Truncated bool
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	UserRole   Role = "user"
	SystemRole Role = "system"
)

// ContinuePrompt is appended as a user message after a truncated round.
const ContinuePrompt = "Please continue from where you left off."
