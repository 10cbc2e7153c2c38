// Copyright (c) 2026 XStream Media. All rights reserved.

package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xstreamhq/xstream/internal/platform/validate"
	"github.com/xstreamhq/xstream/pkg/uuid"
)

// maxMessageLength caps a single chat line.
const maxMessageLength = 500

// Service implements the chat use cases.
type Service struct {
	history HistoryRepository
	logger  *slog.Logger
}

// NewService constructs a new chat [Service].
func NewService(history HistoryRepository, logger *slog.Logger) *Service {
	return &Service{history: history, logger: logger}
}

// Post validates and records a message, returning the enriched entity ready
// for broadcast.
func (service *Service) Post(ctx context.Context, userID, displayName, body string) (*Message, error) {
	body = strings.TrimSpace(body)

	validator := &validate.Validator{}
	validator.Required("body", body).MaxLen("body", body, maxMessageLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	message := &Message{
		ID:          uuid.New(),
		UserID:      userID,
		DisplayName: displayName,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}

	if err := service.history.Append(ctx, message); err != nil {
		// History is best-effort; the live broadcast still goes out.
		service.logger.Warn("chat_history_append_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return message, nil
}

// History returns the retained recent messages in chronological order.
func (service *Service) History(ctx context.Context) ([]*Message, error) {
	return service.history.Recent(ctx)
}
