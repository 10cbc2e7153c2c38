// Copyright (c) 2026 XStream Media. All rights reserved.

package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xstreamhq/xstream/internal/platform/apperr"
	"github.com/xstreamhq/xstream/internal/platform/constants"
)

// historyCap is how many messages the rolling history retains.
const historyCap = 100

// RedisHistoryRepository implements [HistoryRepository] on a capped Redis list.
//
// LPUSH followed by LTRIM keeps the list bounded at [historyCap] entries with
// the newest message at index 0.
type RedisHistoryRepository struct {
	client *redis.Client
}

// NewRedisHistoryRepository creates a Redis-backed chat history.
func NewRedisHistoryRepository(client *redis.Client) *RedisHistoryRepository {
	return &RedisHistoryRepository{client: client}
}

// Append records a message and trims the history to its cap.
func (repository *RedisHistoryRepository) Append(ctx context.Context, message *Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return apperr.Internal(fmt.Errorf("marshal chat message: %w", err))
	}

	pipe := repository.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyChatMessages, payload)
	pipe.LTrim(ctx, constants.RedisKeyChatMessages, 0, historyCap-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Internal(fmt.Errorf("append chat message: %w", err))
	}
	return nil
}

// Recent returns the retained messages in chronological order.
func (repository *RedisHistoryRepository) Recent(ctx context.Context) ([]*Message, error) {
	entries, err := repository.client.LRange(ctx, constants.RedisKeyChatMessages, 0, historyCap-1).Result()
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("read chat history: %w", err))
	}

	// The list is newest-first; walk it backwards so clients render in order.
	messages := make([]*Message, 0, len(entries))
	for index := len(entries) - 1; index >= 0; index-- {
		message := &Message{}
		if err := json.Unmarshal([]byte(entries[index]), message); err != nil {
			// A corrupt entry should not take the whole history down.
			continue
		}
		messages = append(messages, message)
	}
	return messages, nil
}
