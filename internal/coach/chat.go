package coach

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bhackerb/PeakForm-C/internal/pipeline"
	"github.com/bhackerb/PeakForm-C/pkg"
)

const (
	chatIDLength  = 16
	chatMaxTokens = 1024
	chatPhase     = "chat"
)

// Chat is a question and answer conversation grounded on one analyzed week.
type Chat struct {
	ID string

	completer Completer
	system    string
	opts      options

	mutex   sync.Mutex
	history []Message
}

func NewChat(completer Completer, result *pipeline.Result, opts ...Option) (*Chat, error) {
	id, err := pkg.GenerateRandomString(chatIDLength)
	if err != nil {
		return nil, fmt.Errorf("generate chat id: %w", err)
	}

	c := &Chat{
		ID:        id,
		completer: completer,
		system:    ChatSystemPrompt(result),
	}
	for _, o := range opts {
		o(&c.opts)
	}
	return c, nil
}

// Ask sends question with the whole history and records both turns. A failed
// call leaves the history untouched.
func (c *Chat) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrNoQuestion
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	messages := make([]Message, 0, len(c.history)+1)
	messages = append(messages, c.history...)
	messages = append(messages, Message{Role: RoleUser, Content: question})

	reply, err := completeOnce(ctx, c.completer, c.opts, chatPhase, Request{
		System:    c.system,
		Messages:  messages,
		MaxTokens: chatMaxTokens,
	})
	if err != nil {
		return "", err
	}

	c.history = append(messages, Message{Role: RoleAssistant, Content: reply})
	return reply, nil
}

func (c *Chat) History() []Message {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	history := make([]Message, len(c.history))
	copy(history, c.history)
	return history
}

// Reset clears the history and keeps the grounding.
func (c *Chat) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.history = nil
}
