// Copyright (c) 2026 XStream Media. All rights reserved.

package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xstreamhq/xstream/internal/platform/database/schema"
	"github.com/xstreamhq/xstream/internal/platform/dberr"
)

// PostgresFavoriteRepository implements [FavoriteRepository] using pgx.
type PostgresFavoriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavoriteRepository creates a new PostgreSQL implementation of FavoriteRepository.
func NewFavoriteRepository(pool *pgxpool.Pool) *PostgresFavoriteRepository {
	return &PostgresFavoriteRepository{pool: pool}
}

// Add bookmarks a video for the user.
//
// ON CONFLICT DO NOTHING makes re-adding an already bookmarked video a no-op
// instead of a unique violation.
func (repository *PostgresFavoriteRepository) Add(ctx context.Context, userID, videoID string) error {
	f := schema.UserFavorite
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, NOW())
		ON CONFLICT (%s, %s) DO NOTHING`,
		f.Table, f.UserID, f.VideoID, f.CreatedAt, f.UserID, f.VideoID,
	)

	_, err := repository.pool.Exec(ctx, query, userID, videoID)
	return dberr.Wrap(err, "add_favorite")
}

// Remove deletes the bookmark.
func (repository *PostgresFavoriteRepository) Remove(ctx context.Context, userID, videoID string) error {
	f := schema.UserFavorite
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		f.Table, f.UserID, f.VideoID)

	_, err := repository.pool.Exec(ctx, query, userID, videoID)
	return dberr.Wrap(err, "remove_favorite")
}

// List returns the user's bookmarked videos joined with the catalog, newest
// bookmark first. Soft-deleted videos disappear from the list automatically.
func (repository *PostgresFavoriteRepository) List(ctx context.Context, userID string, limit, offset int) ([]*FavoriteVideo, int, error) {
	f := schema.UserFavorite
	v := schema.CatalogVideo
	query := fmt.Sprintf(`
		SELECT v.%s, v.%s, v.%s, v.%s, v.%s, v.%s, f.%s, count(*) OVER() AS total
		FROM %s f
		JOIN %s v ON v.%s = f.%s
		WHERE f.%s = $1 AND v.%s IS NULL
		ORDER BY f.%s DESC
		LIMIT $2 OFFSET $3`,
		v.ID, v.Title, v.Slug, v.ThumbnailURL, v.Category, v.Exclusive, f.CreatedAt,
		f.Table, v.Table, v.ID, f.VideoID,
		f.UserID, v.DeletedAt,
		f.CreatedAt,
	)

	rows, err := repository.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_favorites")
	}
	defer rows.Close()

	var favorites []*FavoriteVideo
	var total int
	for rows.Next() {
		favorite := &FavoriteVideo{}
		if err := rows.Scan(
			&favorite.VideoID,
			&favorite.Title,
			&favorite.Slug,
			&favorite.ThumbnailURL,
			&favorite.Category,
			&favorite.Exclusive,
			&favorite.FavoritedAt,
			&total,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_favorite")
		}
		favorites = append(favorites, favorite)
	}

	return favorites, total, nil
}

// Exists reports whether the user has bookmarked the video.
func (repository *PostgresFavoriteRepository) Exists(ctx context.Context, userID, videoID string) (bool, error) {
	f := schema.UserFavorite
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1 AND %s = $2)`,
		f.Table, f.UserID, f.VideoID)

	var exists bool
	if err := repository.pool.QueryRow(ctx, query, userID, videoID).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "favorite_exists")
	}
	return exists, nil
}
