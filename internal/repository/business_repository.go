package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilot/postpilot/internal/models"
)

type BusinessRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Business, error)
}

type businessRepository struct {
	db *sql.DB
}

func NewBusinessRepository(db *sql.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) GetByID(ctx context.Context, id int64) (*models.Business, error) {
	query := `SELECT id, user_id, website_url, created_at FROM businesses WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var b models.Business
	err := row.Scan(&b.ID, &b.UserID, &b.WebsiteURL, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &b, nil
}
