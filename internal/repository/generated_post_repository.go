package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilot/postpilot/internal/models"
)

type GeneratedPostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.GeneratedPost, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
}

type generatedPostRepository struct {
	db *sql.DB
}

func NewGeneratedPostRepository(db *sql.DB) GeneratedPostRepository {
	return &generatedPostRepository{db: db}
}

func (r *generatedPostRepository) GetByID(ctx context.Context, id int64) (*models.GeneratedPost, error) {
	query := `SELECT id, user_id, caption, image_url, created_at FROM generated_posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var gp models.GeneratedPost
	err := row.Scan(&gp.ID, &gp.UserID, &gp.Caption, &gp.ImageURL, &gp.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &gp, nil
}

func (r *generatedPostRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM generated_posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}
