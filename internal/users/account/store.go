// Copyright (c) 2026 XStream Media. All rights reserved.

package account

import "context"

// FavoriteRepository defines the data access contract for favorites.
type FavoriteRepository interface {
	// Add bookmarks a video for the user. Adding twice is a no-op.
	Add(ctx context.Context, userID, videoID string) error

	// Remove deletes the bookmark. Removing a non-existent bookmark is a no-op.
	Remove(ctx context.Context, userID, videoID string) error

	// List returns the user's bookmarked videos, newest bookmark first,
	// together with the total count.
	List(ctx context.Context, userID string, limit, offset int) ([]*FavoriteVideo, int, error)

	// Exists reports whether the user has bookmarked the video.
	Exists(ctx context.Context, userID, videoID string) (bool, error)
}
