package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilot/postpilot/internal/models"
)

type LinkClickRepository interface {
	Create(ctx context.Context, click *models.LinkClick) (int64, error)
	CountByLinkID(ctx context.Context, linkID int64) (int, error)
}

type linkClickRepository struct {
	db *sql.DB
}

func NewLinkClickRepository(db *sql.DB) LinkClickRepository {
	return &linkClickRepository{db: db}
}

func (r *linkClickRepository) Create(ctx context.Context, click *models.LinkClick) (int64, error) {
	query := `
		INSERT INTO link_clicks (link_id, user_agent, ip, referrer, platform)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		click.LinkID, click.UserAgent, click.IP, click.Referrer, click.Platform).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *linkClickRepository) CountByLinkID(ctx context.Context, linkID int64) (int, error) {
	query := `SELECT COUNT(*) FROM link_clicks WHERE link_id = $1`

	var total int
	if err := r.db.QueryRowContext(ctx, query, linkID).Scan(&total); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return total, nil
}
