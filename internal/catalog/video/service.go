// Copyright (c) 2026 XStream Media. All rights reserved.

package video

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xstreamhq/xstream/internal/platform/apperr"
	"github.com/xstreamhq/xstream/internal/platform/sec"
	"github.com/xstreamhq/xstream/internal/platform/validate"
	"github.com/xstreamhq/xstream/pkg/slug"
	"github.com/xstreamhq/xstream/pkg/uuid"
)

// Service implements the catalog use cases.
type Service struct {
	repo        Repository
	commentRepo CommentRepository
	viewGuard   ViewGuard
	logger      *slog.Logger
}

// NewService constructs a new catalog [Service].
func NewService(repo Repository, commentRepo CommentRepository, viewGuard ViewGuard, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		commentRepo: commentRepo,
		viewGuard:   viewGuard,
		logger:      logger,
	}
}

// ListVideos returns a filtered, sorted page of the catalog.
func (service *Service) ListVideos(ctx context.Context, filter Filter, limit, offset int) ([]*Video, int, error) {
	if filter.Sort != "" {
		if err := (&validate.Validator{}).OneOf("sort", filter.Sort, SortLatest, SortPopular, SortTopRated).Err(); err != nil {
			return nil, 0, err
		}
	}
	return service.repo.List(ctx, filter, limit, offset)
}

// GetVideo returns a single video by ID or slug.
//
// The lookup tries an ID match first so that UUIDs never collide with slugs.
func (service *Service) GetVideo(ctx context.Context, idOrSlug string) (*Video, error) {
	if uuid.IsValid(idOrSlug) {
		return service.repo.FindByID(ctx, idOrSlug)
	}
	return service.repo.FindBySlug(ctx, idOrSlug)
}

// IsExclusive reports whether the video is premium-gated. The entitlement
// access gate calls this through its VideoLookup interface.
func (service *Service) IsExclusive(ctx context.Context, idOrSlug string) (bool, error) {
	found, err := service.GetVideo(ctx, idOrSlug)
	if err != nil {
		return false, err
	}
	return found.Exclusive, nil
}

// ListCategories returns the distinct categories in the catalog.
func (service *Service) ListCategories(ctx context.Context) ([]string, error) {
	return service.repo.ListCategories(ctx)
}

// CountView registers a debounced view for the video.
//
// Duplicate plays by the same viewer inside the guard window are absorbed
// silently: the endpoint always succeeds so players never surface errors.
func (service *Service) CountView(ctx context.Context, videoID, viewerKey string) error {
	acquired, err := service.viewGuard.Acquire(ctx, viewerKey, videoID)
	if err != nil {
		// A broken guard must not block playback. Log and skip the count.
		service.logger.Warn("view_guard_unavailable", slog.Any("error", err))
		return nil
	}
	if !acquired {
		return nil
	}

	return service.repo.IncrementViews(ctx, videoID)
}

// Like bumps the like counter for the video.
func (service *Service) Like(ctx context.Context, videoID string) error {
	return service.repo.AdjustLikes(ctx, videoID, 1)
}

// Unlike decrements the like counter for the video.
func (service *Service) Unlike(ctx context.Context, videoID string) error {
	return service.repo.AdjustLikes(ctx, videoID, -1)
}

// ── Curation (admin) ─────────────────────────────────────────────────────────

// CreateInput holds the fields required to publish a new catalog entry.
type CreateInput struct {
	Title        string
	Description  string
	EmbedURL     string
	ThumbnailURL string
	Category     string
	Exclusive    bool
}

// CreateVideo validates and publishes a new catalog entry.
//
// The slug is derived from the title; collisions get a short random suffix.
func (service *Service) CreateVideo(ctx context.Context, input CreateInput) (*Video, error) {
	validator := &validate.Validator{}
	validator.
		Required("title", input.Title).MaxLen("title", input.Title, 200).
		Required("embed_url", input.EmbedURL).URL("embed_url", input.EmbedURL).
		Required("category", input.Category).MaxLen("category", input.Category, 64).
		MaxLen("description", input.Description, 5000)
	if input.ThumbnailURL != "" {
		validator.URL("thumbnail_url", input.ThumbnailURL)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	video := &Video{
		ID:           uuid.New(),
		Title:        input.Title,
		Slug:         service.uniqueSlug(ctx, input.Title),
		Description:  input.Description,
		EmbedURL:     input.EmbedURL,
		ThumbnailURL: input.ThumbnailURL,
		Category:     input.Category,
		Exclusive:    input.Exclusive,
	}

	if err := service.repo.Create(ctx, video); err != nil {
		return nil, err
	}

	service.logger.Info("video_published",
		slog.String("video_id", video.ID),
		slog.String("slug", video.Slug),
		slog.Bool("exclusive", video.Exclusive),
	)
	return video, nil
}

// UpdateInput holds the patchable video fields. Nil means "unchanged".
type UpdateInput struct {
	Title        *string
	Description  *string
	EmbedURL     *string
	ThumbnailURL *string
	Category     *string
	Exclusive    *bool
}

// UpdateVideo applies a partial update to an existing catalog entry.
// The slug is regenerated only when the title changes.
func (service *Service) UpdateVideo(ctx context.Context, id string, input UpdateInput) (*Video, error) {
	video, err := service.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	validator := &validate.Validator{}
	if input.Title != nil {
		validator.Required("title", *input.Title).MaxLen("title", *input.Title, 200)
	}
	if input.EmbedURL != nil {
		validator.URL("embed_url", *input.EmbedURL)
	}
	if input.ThumbnailURL != nil && *input.ThumbnailURL != "" {
		validator.URL("thumbnail_url", *input.ThumbnailURL)
	}
	if input.Category != nil {
		validator.Required("category", *input.Category).MaxLen("category", *input.Category, 64)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if input.Title != nil && *input.Title != video.Title {
		video.Title = *input.Title
		video.Slug = service.uniqueSlug(ctx, video.Title)
	}
	if input.Description != nil {
		video.Description = *input.Description
	}
	if input.EmbedURL != nil {
		video.EmbedURL = *input.EmbedURL
	}
	if input.ThumbnailURL != nil {
		video.ThumbnailURL = *input.ThumbnailURL
	}
	if input.Category != nil {
		video.Category = *input.Category
	}
	if input.Exclusive != nil {
		video.Exclusive = *input.Exclusive
	}

	if err := service.repo.Update(ctx, video); err != nil {
		return nil, err
	}

	service.logger.Info("video_updated", slog.String("video_id", video.ID))
	return video, nil
}

// DeleteVideo removes a catalog entry from public view.
func (service *Service) DeleteVideo(ctx context.Context, id string) error {
	if err := service.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	service.logger.Warn("video_deleted", slog.String("video_id", id))
	return nil
}

// uniqueSlug derives a slug from the title, appending a short random suffix
// if the plain slug is already taken.
func (service *Service) uniqueSlug(ctx context.Context, title string) string {
	base := slug.From(title)
	if base == "" {
		base = "video"
	}

	if _, err := service.repo.FindBySlug(ctx, base); err != nil {
		return base // Slug is free.
	}

	suffix, err := sec.GenerateSecureToken(3)
	if err != nil {
		suffix = uuid.New()[:6]
	}
	return fmt.Sprintf("%s-%s", base, suffix)
}

// ── Comments ─────────────────────────────────────────────────────────────────

// AddComment posts a new comment or reply on a video.
func (service *Service) AddComment(ctx context.Context, videoID, userID, body string, parentID *string) (*Comment, error) {
	validator := &validate.Validator{}
	validator.Required("body", body).MaxLen("body", body, 2000)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// The video must exist and be visible.
	if _, err := service.repo.FindByID(ctx, videoID); err != nil {
		return nil, err
	}

	// Replies must target a live comment on the same video. Nesting is capped
	// at one level: replying to a reply attaches to the thread root instead.
	if parentID != nil {
		parent, err := service.commentRepo.FindByID(ctx, *parentID)
		if err != nil {
			return nil, apperr.NotFound("Parent comment")
		}
		if parent.VideoID != videoID {
			return nil, apperr.Unprocessable("Parent comment belongs to a different video")
		}
		if parent.ParentID != nil {
			parentID = parent.ParentID
		}
	}

	comment := &Comment{
		ID:       uuid.New(),
		VideoID:  videoID,
		UserID:   userID,
		ParentID: parentID,
		Body:     body,
	}

	if err := service.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

// ListComments returns the comment section as a two-level thread tree.
func (service *Service) ListComments(ctx context.Context, videoID string) ([]*Comment, error) {
	flat, err := service.commentRepo.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	// Assemble threads: top-level comments keep insertion order and replies
	// hang off their root.
	byID := make(map[string]*Comment, len(flat))
	var roots []*Comment
	for _, comment := range flat {
		byID[comment.ID] = comment
		if comment.ParentID == nil {
			roots = append(roots, comment)
		}
	}
	for _, comment := range flat {
		if comment.ParentID == nil {
			continue
		}
		if root, ok := byID[*comment.ParentID]; ok {
			root.Replies = append(root.Replies, comment)
		}
	}

	return roots, nil
}

// DeleteComment removes a comment if the requester owns it or holds the
// moderator role.
func (service *Service) DeleteComment(ctx context.Context, commentID, requesterID string, requesterRole sec.UserRole) error {
	comment, err := service.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return err
	}

	if comment.UserID != requesterID && !requesterRole.AtLeast(sec.RoleModerator) {
		return apperr.Forbidden("You can only delete your own comments")
	}

	return service.commentRepo.SoftDelete(ctx, commentID)
}
