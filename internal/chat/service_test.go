// Copyright (c) 2026 XStream Media. All rights reserved.

package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory is an in-memory [HistoryRepository] double.
type fakeHistory struct {
	messages   []*Message
	failAppend bool
}

func (history *fakeHistory) Append(_ context.Context, message *Message) error {
	if history.failAppend {
		return errors.New("redis down")
	}
	history.messages = append(history.messages, message)
	return nil
}

func (history *fakeHistory) Recent(_ context.Context) ([]*Message, error) {
	return history.messages, nil
}

func newTestChatService() (*Service, *fakeHistory) {
	history := &fakeHistory{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(history, logger), history
}

func TestPost_RecordsAndReturnsMessage(t *testing.T) {
	service, history := newTestChatService()

	message, err := service.Post(context.Background(), "viewer-1", "nightowl", "  hello room  ")
	require.NoError(t, err)

	assert.Equal(t, "hello room", message.Body, "body is trimmed")
	assert.Equal(t, "viewer-1", message.UserID)
	assert.Equal(t, "nightowl", message.DisplayName)
	assert.NotEmpty(t, message.ID)
	assert.False(t, message.CreatedAt.IsZero())

	require.Len(t, history.messages, 1)
	assert.Equal(t, message, history.messages[0])
}

func TestPost_Validation(t *testing.T) {
	service, _ := newTestChatService()

	_, err := service.Post(context.Background(), "viewer-1", "nightowl", "   ")
	assert.Error(t, err, "whitespace-only body must fail")

	_, err = service.Post(context.Background(), "viewer-1", "nightowl", strings.Repeat("x", maxMessageLength+1))
	assert.Error(t, err, "oversized body must fail")
}

func TestPost_HistoryFailureDoesNotBlockBroadcast(t *testing.T) {
	service, history := newTestChatService()
	history.failAppend = true

	message, err := service.Post(context.Background(), "viewer-1", "nightowl", "still here")
	require.NoError(t, err, "history is best-effort")
	assert.Equal(t, "still here", message.Body)
}
