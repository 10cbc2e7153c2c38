// Copyright (c) 2026 XStream Media. All rights reserved.

// Package account implements self-service profile management: profile
// updates, the age confirmation gate, and the favorites list.
package account

import "time"

// Favorite marks a video the viewer has bookmarked.
type Favorite struct {
	UserID    string    `json:"user_id"`
	VideoID   string    `json:"video_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FavoriteVideo is the denormalized favorites-list row: the bookmark joined
// with enough of the video to render a thumbnail grid without extra lookups.
type FavoriteVideo struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Category     string    `json:"category"`
	Exclusive    bool      `json:"exclusive"`
	FavoritedAt  time.Time `json:"favorited_at"`
}
