// Copyright (c) 2026 XStream Media. All rights reserved.

// Package video owns the content catalog: video metadata, view and like
// counters, and the threaded comment section.
package video

import "time"

// Video represents a single catalog entry.
//
// # Rules
//   - Slug is unique, URL-safe, and derived from the title on creation.
//   - EmbedURL points at the upstream player; XStream never stores media.
//   - Exclusive marks premium content that sits behind the timed access gate.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description,omitempty"`
	EmbedURL     string    `json:"embed_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Category     string    `json:"category"`
	Exclusive    bool      `json:"exclusive"`
	Views        int64     `json:"views"`
	Likes        int64     `json:"likes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Comment is a viewer comment on a video. A non-nil ParentID makes it a reply.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	UserID    string    `json:"user_id"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Body      string    `json:"body"`
	Author    string    `json:"author,omitempty"` // Display name, joined at read time.
	CreatedAt time.Time `json:"created_at"`
	Replies   []*Comment `json:"replies,omitempty"`
}

// Sort orders accepted by the public listing endpoint.
const (
	SortLatest   = "latest"
	SortPopular  = "popular"
	SortTopRated = "toprated"
)

// Filter narrows the public catalog listing.
type Filter struct {
	Query     string // Free-text match against title.
	Category  string
	Exclusive *bool  // nil = both, true = premium only, false = free only.
	Sort      string // One of the Sort* constants. Empty means SortLatest.
}
