// Copyright (c) 2026 XStream Media. All rights reserved.

package video

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xstreamhq/xstream/internal/platform/database/schema"
	"github.com/xstreamhq/xstream/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the catalog Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// videoColumns is the canonical SELECT column list for catalog.video.
func videoColumns() string {
	t := schema.CatalogVideo
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		t.ID, t.Title, t.Slug, t.Description, t.EmbedURL, t.ThumbnailURL,
		t.Category, t.Exclusive, t.Views, t.Likes, t.CreatedAt, t.UpdatedAt,
	)
}

// scanVideo maps one catalog.video row onto the entity.
func scanVideo(row interface{ Scan(...any) error }) (*Video, error) {
	video := &Video{}
	err := row.Scan(
		&video.ID,
		&video.Title,
		&video.Slug,
		&video.Description,
		&video.EmbedURL,
		&video.ThumbnailURL,
		&video.Category,
		&video.Exclusive,
		&video.Views,
		&video.Likes,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return video, nil
}

// List returns a filtered, sorted page of videos plus the total match count.
//
// The count is fetched via a window function in the same query so that
// filters never diverge between the page and the total.
func (repository *PostgresRepository) List(ctx context.Context, filter Filter, limit, offset int) ([]*Video, int, error) {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total
		FROM %s
		WHERE %s IS NULL`,
		videoColumns(), t.Table, t.DeletedAt,
	)

	args := []any{}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += fmt.Sprintf(" AND %s ILIKE $%d", t.Title, len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND %s = $%d", t.Category, len(args))
	}
	if filter.Exclusive != nil {
		args = append(args, *filter.Exclusive)
		query += fmt.Sprintf(" AND %s = $%d", t.Exclusive, len(args))
	}

	switch filter.Sort {
	case SortPopular:
		query += fmt.Sprintf(" ORDER BY %s DESC", t.Views)
	case SortTopRated:
		query += fmt.Sprintf(" ORDER BY %s DESC", t.Likes)
	default:
		query += fmt.Sprintf(" ORDER BY %s DESC", t.CreatedAt)
	}

	query += " LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_videos")
	}
	defer rows.Close()

	var videos []*Video
	var total int
	for rows.Next() {
		video := &Video{}
		if err := rows.Scan(
			&video.ID,
			&video.Title,
			&video.Slug,
			&video.Description,
			&video.EmbedURL,
			&video.ThumbnailURL,
			&video.Category,
			&video.Exclusive,
			&video.Views,
			&video.Likes,
			&video.CreatedAt,
			&video.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_video")
		}
		videos = append(videos, video)
	}

	return videos, total, nil
}

// FindByID retrieves a video by its unique ID.
func (repository *PostgresRepository) FindByID(ctx context.Context, id string) (*Video, error) {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s IS NULL`,
		videoColumns(), t.Table, t.ID, t.DeletedAt)

	video, err := scanVideo(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "find_video_by_id")
	}
	return video, nil
}

// FindBySlug retrieves a video by its unique slug.
func (repository *PostgresRepository) FindBySlug(ctx context.Context, slug string) (*Video, error) {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s IS NULL`,
		videoColumns(), t.Table, t.Slug, t.DeletedAt)

	video, err := scanVideo(repository.pool.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, dberr.Wrap(err, "find_video_by_slug")
	}
	return video, nil
}

// Create persists a new catalog entry.
func (repository *PostgresRepository) Create(ctx context.Context, video *Video) error {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9, $10)`,
		t.Table, t.ID, t.Title, t.Slug, t.Description, t.EmbedURL, t.ThumbnailURL,
		t.Category, t.Exclusive, t.Views, t.Likes, t.CreatedAt, t.UpdatedAt,
	)

	now := time.Now()
	video.CreatedAt = now
	video.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		video.ID,
		video.Title,
		video.Slug,
		video.Description,
		video.EmbedURL,
		video.ThumbnailURL,
		video.Category,
		video.Exclusive,
		video.CreatedAt,
		video.UpdatedAt,
	)

	return dberr.Wrap(err, "create_video")
}

// Update persists changes to mutable metadata fields. Counters are excluded
// on purpose: they move only through their atomic operations.
func (repository *PostgresRepository) Update(ctx context.Context, video *Video) error {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9
		WHERE %s = $1 AND %s IS NULL`,
		t.Table, t.Title, t.Slug, t.Description, t.EmbedURL, t.ThumbnailURL,
		t.Category, t.Exclusive, t.UpdatedAt, t.ID, t.DeletedAt,
	)

	video.UpdatedAt = time.Now()
	cmd, err := repository.pool.Exec(ctx, query,
		video.ID,
		video.Title,
		video.Slug,
		video.Description,
		video.EmbedURL,
		video.ThumbnailURL,
		video.Category,
		video.Exclusive,
		video.UpdatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "update_video")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// IncrementViews atomically bumps the view counter by one.
func (repository *PostgresRepository) IncrementViews(ctx context.Context, id string) error {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + 1 WHERE %s = $1 AND %s IS NULL`,
		t.Table, t.Views, t.Views, t.ID, t.DeletedAt)

	cmd, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return dberr.Wrap(err, "increment_views")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// AdjustLikes atomically applies a delta to the like counter.
//
// GREATEST keeps the counter from dipping below zero if unlike requests race.
func (repository *PostgresRepository) AdjustLikes(ctx context.Context, id string, delta int) error {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`UPDATE %s SET %s = GREATEST(0, %s + $2) WHERE %s = $1 AND %s IS NULL`,
		t.Table, t.Likes, t.Likes, t.ID, t.DeletedAt)

	cmd, err := repository.pool.Exec(ctx, query, id, delta)
	if err != nil {
		return dberr.Wrap(err, "adjust_likes")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// ListCategories returns the distinct categories currently in the catalog.
func (repository *PostgresRepository) ListCategories(ctx context.Context) ([]string, error) {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NULL ORDER BY %s ASC`,
		t.Category, t.Table, t.DeletedAt, t.Category)

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_categories")
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, dberr.Wrap(err, "scan_category")
		}
		categories = append(categories, category)
	}

	return categories, nil
}

// SoftDelete marks the video as deleted without removing the row.
func (repository *PostgresRepository) SoftDelete(ctx context.Context, id string) error {
	t := schema.CatalogVideo
	query := fmt.Sprintf(`UPDATE %s SET %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		t.Table, t.DeletedAt, t.ID, t.DeletedAt)

	cmd, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return dberr.Wrap(err, "soft_delete_video")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
