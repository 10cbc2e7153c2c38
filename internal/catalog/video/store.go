// Copyright (c) 2026 XStream Media. All rights reserved.

package video

import "context"

// Repository defines the data access contract for the video catalog.
type Repository interface {
	// List returns a filtered, sorted page of videos with the total count.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Video, int, error)

	// FindByID returns the video with the given ID.
	//
	// Returns [apperr.NotFound] if it does not exist or was soft-deleted.
	FindByID(ctx context.Context, id string) (*Video, error)

	// FindBySlug returns the video with the given slug.
	FindBySlug(ctx context.Context, slug string) (*Video, error)

	// Create persists a new catalog entry.
	Create(ctx context.Context, video *Video) error

	// Update persists changes to mutable metadata fields.
	Update(ctx context.Context, video *Video) error

	// IncrementViews atomically bumps the view counter by one.
	IncrementViews(ctx context.Context, id string) error

	// AdjustLikes atomically applies a +1/-1 delta to the like counter,
	// clamped at zero.
	AdjustLikes(ctx context.Context, id string, delta int) error

	// ListCategories returns the distinct categories currently in the catalog.
	ListCategories(ctx context.Context) ([]string, error)

	// SoftDelete marks the video as deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error
}

// CommentRepository defines the data access contract for video comments.
type CommentRepository interface {
	// Create persists a new comment or reply.
	Create(ctx context.Context, comment *Comment) error

	// FindByID returns a single comment.
	FindByID(ctx context.Context, id string) (*Comment, error)

	// ListByVideo returns every live comment on a video, oldest first,
	// with the author display name joined in. Threading is assembled in
	// the service layer.
	ListByVideo(ctx context.Context, videoID string) ([]*Comment, error)

	// SoftDelete marks a comment as deleted. Replies stay visible.
	SoftDelete(ctx context.Context, id string) error
}

// ViewGuard debounces view counting per viewer and video.
type ViewGuard interface {
	// Acquire reports whether this viewer may count a view for the video.
	// A successful acquisition blocks further counts until the guard expires.
	Acquire(ctx context.Context, viewerKey, videoID string) (bool, error)
}
