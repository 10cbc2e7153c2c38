// Copyright (c) 2026 XStream Media. All rights reserved.

package chat

import "context"

// HistoryRepository defines the storage contract for recent chat messages.
type HistoryRepository interface {
	// Append records a message and trims the history to its cap.
	Append(ctx context.Context, message *Message) error

	// Recent returns the retained messages in chronological order.
	Recent(ctx context.Context) ([]*Message, error)
}
