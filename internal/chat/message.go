// Copyright (c) 2026 XStream Media. All rights reserved.

/*
Package chat implements the site-wide live chat.

Messages fan out to every connected viewer through a WebSocket hub and are
mirrored into a capped Redis list so newcomers see recent history. Chat is
ephemeral by design; nothing is stored in PostgreSQL.
*/
package chat

import "time"

// Message is a single chat line.
type Message struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}
