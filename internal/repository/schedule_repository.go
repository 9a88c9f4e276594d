package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilot/postpilot/internal/models"
)

type ScheduleRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sp *models.ScheduledPost) (int64, error)
	CreateBatch(ctx context.Context, schedules []*models.ScheduledPost) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.ScheduledPost, error)
	CountByUserID(ctx context.Context, userID int64) (int, error)
	CheckByUserID(ctx context.Context, scheduleID, userID int64) (bool, error)
	UpdateScheduledTime(ctx context.Context, id int64, newTime time.Time) (bool, error)
	MarkPublished(ctx context.Context, id int64, platformPostID string, postedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, errorMessage string) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, generated_post_id, social_account_id, scheduled_time, status, posted_at, platform_post_id, error_message, created_at, updated_at`

func scanSchedule(row interface{ Scan(...interface{}) error }) (*models.ScheduledPost, error) {
	var sp models.ScheduledPost
	err := row.Scan(&sp.ID, &sp.GeneratedPostID, &sp.SocialAccountID, &sp.ScheduledTime,
		&sp.Status, &sp.PostedAt, &sp.PlatformPostID, &sp.ErrorMessage, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *scheduleRepository) Create(ctx context.Context, tx *sql.Tx, sp *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (generated_post_id, social_account_id, scheduled_time, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, sp.GeneratedPostID, sp.SocialAccountID, sp.ScheduledTime, sp.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, sp.GeneratedPostID, sp.SocialAccountID, sp.ScheduledTime, sp.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// CreateBatch inserts the per-account fan-out in one transaction; either all
// rows land or none do.
func (r *scheduleRepository) CreateBatch(ctx context.Context, schedules []*models.ScheduledPost) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(schedules))
	for _, sp := range schedules {
		id, err := r.Create(ctx, tx, sp)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return ids, nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_posts WHERE id = $1`

	sp, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return sp, nil
}

func (r *scheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduleColumns + ` FROM scheduled_posts WHERE status = $1 AND scheduled_time <= $2`

	rows, err := r.db.QueryContext(ctx, query, models.ScheduleStatusPending, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var due []*models.ScheduledPost
	for rows.Next() {
		sp, err := scanSchedule(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		due = append(due, sp)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return due, nil
}

func (r *scheduleRepository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.ScheduledPost, error) {
	query := `
		SELECT sp.id, sp.generated_post_id, sp.social_account_id, sp.scheduled_time, sp.status,
			sp.posted_at, sp.platform_post_id, sp.error_message, sp.created_at, sp.updated_at
		FROM scheduled_posts sp
		JOIN generated_posts gp ON gp.id = sp.generated_post_id
		WHERE gp.user_id = $1
		ORDER BY sp.scheduled_time ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.ScheduledPost
	for rows.Next() {
		sp, err := scanSchedule(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		schedules = append(schedules, sp)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return schedules, nil
}

func (r *scheduleRepository) CountByUserID(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM scheduled_posts sp
		JOIN generated_posts gp ON gp.id = sp.generated_post_id
		WHERE gp.user_id = $1
	`

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return total, nil
}

// CheckByUserID resolves ownership transitively through the generated post;
// scheduled_posts has no user_id column of its own.
func (r *scheduleRepository) CheckByUserID(ctx context.Context, scheduleID, userID int64) (bool, error) {
	query := `
		SELECT 1
		FROM scheduled_posts sp
		JOIN generated_posts gp ON gp.id = sp.generated_post_id
		WHERE sp.id = $1 AND gp.user_id = $2
	`

	var result int
	err := r.db.QueryRowContext(ctx, query, scheduleID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *scheduleRepository) UpdateScheduledTime(ctx context.Context, id int64, newTime time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET scheduled_time = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, newTime, id, models.ScheduleStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}

// MarkPublished transitions a row to its terminal published state. The status
// guard makes concurrent sweeps safe: the second writer affects zero rows.
func (r *scheduleRepository) MarkPublished(ctx context.Context, id int64, platformPostID string, postedAt time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, posted_at = $2, platform_post_id = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, models.ScheduleStatusPublished, postedAt, platformPostID, id, models.ScheduleStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}

func (r *scheduleRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, error_message = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, models.ScheduleStatusFailed, errorMessage, id, models.ScheduleStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected == 1, nil
}

func (r *scheduleRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM scheduled_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
