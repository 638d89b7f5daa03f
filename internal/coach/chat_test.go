package coach_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bhackerb/PeakForm-C/internal/coach"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChat_KeepsHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := NewMockCompleter(ctrl)
	res := testResult()

	chat, err := coach.NewChat(completer, res)
	require.NoError(t, err)
	assert.Len(t, chat.ID, 16)

	gomock.InOrder(
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req coach.Request) (string, error) {
				assert.Equal(t, coach.ChatSystemPrompt(res), req.System)
				assert.Equal(t, []coach.Message{{Role: coach.RoleUser, Content: "how far did I run?"}}, req.Messages)
				return "32.5 miles", nil
			}),
		completer.EXPECT().Complete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req coach.Request) (string, error) {
				assert.Equal(t, []coach.Message{
					{Role: coach.RoleUser, Content: "how far did I run?"},
					{Role: coach.RoleAssistant, Content: "32.5 miles"},
					{Role: coach.RoleUser, Content: "and protein?"},
				}, req.Messages)
				return "4 of 6 days on target", nil
			}),
	)

	ctx := context.Background()
	reply, err := chat.Ask(ctx, "how far did I run?")
	require.NoError(t, err)
	assert.Equal(t, "32.5 miles", reply)

	reply, err = chat.Ask(ctx, "and protein?")
	require.NoError(t, err)
	assert.Equal(t, "4 of 6 days on target", reply)
	assert.Len(t, chat.History(), 4)

	chat.Reset()
	assert.Empty(t, chat.History())
}

func TestChat_FailureLeavesHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := NewMockCompleter(ctrl)

	chat, err := coach.NewChat(completer, testResult())
	require.NoError(t, err)

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("first", nil)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("timeout")).Times(1)

	ctx := context.Background()
	_, err = chat.Ask(ctx, "one")
	require.NoError(t, err)

	_, err = chat.Ask(ctx, "two")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion: timeout")
	assert.Equal(t, []coach.Message{
		{Role: coach.RoleUser, Content: "one"},
		{Role: coach.RoleAssistant, Content: "first"},
	}, chat.History())

	_, err = chat.Ask(ctx, "   ")
	assert.ErrorIs(t, err, coach.ErrNoQuestion)
}

func TestChat_DistinctIDs(t *testing.T) {
	a, err := coach.NewChat(nil, nil)
	require.NoError(t, err)
	b, err := coach.NewChat(nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
