package coach

import (
	"context"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one model call. MaxTokens 0 leaves the limit to the completer.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

//go:generate mockgen -source=$GOFILE -destination=completer_mocks_test.go -package=coach_test

// Completer sends one request to a language model and returns the reply text.
// Implementations must not retry: a failed call is reported to the caller.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
