// Copyright (c) 2026 XStream Media. All rights reserved.

package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/xstreamhq/xstream/internal/platform/validate"
	"github.com/xstreamhq/xstream/internal/users/auth"
	"github.com/xstreamhq/xstream/pkg/pointer"
)

// Service implements self-service account use cases on top of the auth
// domain's user repository.
type Service struct {
	userRepository     auth.UserRepository
	favoriteRepository FavoriteRepository
	logger             *slog.Logger
}

// NewService constructs a new account [Service].
func NewService(userRepo auth.UserRepository, favoriteRepo FavoriteRepository, logger *slog.Logger) *Service {
	return &Service{
		userRepository:     userRepo,
		favoriteRepository: favoriteRepo,
		logger:             logger,
	}
}

// GetProfile returns the full profile for the given account.
func (service *Service) GetProfile(ctx context.Context, userID string) (*auth.User, error) {
	return service.userRepository.FindByID(ctx, userID)
}

// UpdateProfileInput holds the patchable profile fields. Nil means "unchanged".
type UpdateProfileInput struct {
	DisplayName *string
	AvatarURL   *string
}

// UpdateProfile applies a partial update to the viewer's own profile.
func (service *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*auth.User, error) {
	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	validator := &validate.Validator{}
	if input.DisplayName != nil {
		validator.MaxLen("display_name", *input.DisplayName, 64)
	}
	if input.AvatarURL != nil && *input.AvatarURL != "" {
		validator.URL("avatar_url", *input.AvatarURL)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user.DisplayName = pointer.Fallback(input.DisplayName, user.DisplayName)
	user.AvatarURL = pointer.Fallback(input.AvatarURL, user.AvatarURL)

	if err := service.userRepository.Update(ctx, user); err != nil {
		return nil, err
	}

	service.logger.Info("profile_updated", slog.String("user_id", userID))
	return user, nil
}

// ConfirmAge records that the viewer has confirmed they are of legal age.
// Re-confirming keeps the original timestamp (idempotent).
func (service *Service) ConfirmAge(ctx context.Context, userID string) (*auth.User, error) {
	if err := service.userRepository.ConfirmAge(ctx, userID, time.Now()); err != nil {
		return nil, err
	}

	service.logger.Info("age_confirmed", slog.String("user_id", userID))
	return service.userRepository.FindByID(ctx, userID)
}

// ── Favorites ────────────────────────────────────────────────────────────────

// AddFavorite bookmarks a video. Idempotent.
func (service *Service) AddFavorite(ctx context.Context, userID, videoID string) error {
	if err := (&validate.Validator{}).UUID("video_id", videoID).Err(); err != nil {
		return err
	}
	return service.favoriteRepository.Add(ctx, userID, videoID)
}

// RemoveFavorite deletes the bookmark. Idempotent.
func (service *Service) RemoveFavorite(ctx context.Context, userID, videoID string) error {
	return service.favoriteRepository.Remove(ctx, userID, videoID)
}

// ListFavorites returns the viewer's bookmarked videos, newest bookmark first.
func (service *Service) ListFavorites(ctx context.Context, userID string, limit, offset int) ([]*FavoriteVideo, int, error) {
	return service.favoriteRepository.List(ctx, userID, limit, offset)
}

// ── Administration ───────────────────────────────────────────────────────────

// ListUsers returns a page of all accounts for the admin console.
func (service *Service) ListUsers(ctx context.Context, limit, offset int) ([]*auth.User, int, error) {
	return service.userRepository.List(ctx, limit, offset)
}

// DeleteUser soft-deletes an account.
func (service *Service) DeleteUser(ctx context.Context, userID string) error {
	if err := service.userRepository.SoftDelete(ctx, userID); err != nil {
		return err
	}
	service.logger.Warn("user_deleted", slog.String("user_id", userID))
	return nil
}
