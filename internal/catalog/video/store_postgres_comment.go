// Copyright (c) 2026 XStream Media. All rights reserved.

package video

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xstreamhq/xstream/internal/platform/database/schema"
	"github.com/xstreamhq/xstream/internal/platform/dberr"
)

// PostgresCommentRepository implements [CommentRepository] using pgx.
type PostgresCommentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository creates a new PostgreSQL implementation of CommentRepository.
func NewCommentRepository(pool *pgxpool.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create persists a new comment or reply.
func (repository *PostgresCommentRepository) Create(ctx context.Context, comment *Comment) error {
	t := schema.CatalogComment
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.Table, t.ID, t.VideoID, t.UserID, t.ParentID, t.Body, t.CreatedAt, t.UpdatedAt,
	)

	now := time.Now()
	comment.CreatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		comment.ID,
		comment.VideoID,
		comment.UserID,
		comment.ParentID,
		comment.Body,
		comment.CreatedAt,
		now,
	)

	return dberr.Wrap(err, "create_comment")
}

// FindByID returns a single comment.
func (repository *PostgresCommentRepository) FindByID(ctx context.Context, id string) (*Comment, error) {
	t := schema.CatalogComment
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s IS NULL`,
		t.ID, t.VideoID, t.UserID, t.ParentID, t.Body, t.CreatedAt,
		t.Table, t.ID, t.DeletedAt,
	)

	comment := &Comment{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.VideoID,
		&comment.UserID,
		&comment.ParentID,
		&comment.Body,
		&comment.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "find_comment_by_id")
	}

	return comment, nil
}

// ListByVideo returns every live comment on a video, oldest first, with the
// author display name joined in.
func (repository *PostgresCommentRepository) ListByVideo(ctx context.Context, videoID string) ([]*Comment, error) {
	t := schema.CatalogComment
	u := schema.UserAccount
	query := fmt.Sprintf(`
		SELECT c.%s, c.%s, c.%s, c.%s, c.%s, c.%s, COALESCE(u.%s, '')
		FROM %s c
		LEFT JOIN %s u ON u.%s = c.%s
		WHERE c.%s = $1 AND c.%s IS NULL
		ORDER BY c.%s ASC`,
		t.ID, t.VideoID, t.UserID, t.ParentID, t.Body, t.CreatedAt, u.DisplayName,
		t.Table, u.Table, u.ID, t.UserID,
		t.VideoID, t.DeletedAt,
		t.CreatedAt,
	)

	rows, err := repository.pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_comments")
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		comment := &Comment{}
		if err := rows.Scan(
			&comment.ID,
			&comment.VideoID,
			&comment.UserID,
			&comment.ParentID,
			&comment.Body,
			&comment.CreatedAt,
			&comment.Author,
		); err != nil {
			return nil, dberr.Wrap(err, "scan_comment")
		}
		comments = append(comments, comment)
	}

	return comments, nil
}

// SoftDelete marks a comment as deleted. Replies stay visible.
func (repository *PostgresCommentRepository) SoftDelete(ctx context.Context, id string) error {
	t := schema.CatalogComment
	query := fmt.Sprintf(`UPDATE %s SET %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		t.Table, t.DeletedAt, t.ID, t.DeletedAt)

	cmd, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return dberr.Wrap(err, "soft_delete_comment")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}
