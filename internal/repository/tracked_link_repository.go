package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilot/postpilot/internal/models"
)

type TrackedLinkRepository interface {
	Create(ctx context.Context, link *models.TrackedLink) (int64, error)
	GetByShortCode(ctx context.Context, shortCode string) (*models.TrackedLink, error)
}

type trackedLinkRepository struct {
	db *sql.DB
}

func NewTrackedLinkRepository(db *sql.DB) TrackedLinkRepository {
	return &trackedLinkRepository{db: db}
}

func (r *trackedLinkRepository) Create(ctx context.Context, link *models.TrackedLink) (int64, error) {
	query := `
		INSERT INTO tracked_links (short_code, original_url, scheduled_post_id, user_id, platform)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		link.ShortCode, link.OriginalURL, link.ScheduledPostID, link.UserID, link.Platform).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *trackedLinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.TrackedLink, error) {
	query := `
		SELECT id, short_code, original_url, scheduled_post_id, user_id, platform, created_at
		FROM tracked_links WHERE short_code = $1
	`
	row := r.db.QueryRowContext(ctx, query, shortCode)

	var link models.TrackedLink
	err := row.Scan(&link.ID, &link.ShortCode, &link.OriginalURL, &link.ScheduledPostID,
		&link.UserID, &link.Platform, &link.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &link, nil
}
