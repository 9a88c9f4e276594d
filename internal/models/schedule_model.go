package models

import (
	"database/sql"
	"time"
)

type ScheduledPost struct {
	ID              int64          `db:"id" json:"id"`
	GeneratedPostID int64          `db:"generated_post_id" json:"generated_post_id"`
	SocialAccountID int64          `db:"social_account_id" json:"social_account_id"`
	ScheduledTime   time.Time      `db:"scheduled_time" json:"scheduled_time"`
	Status          string         `db:"status" json:"status"` // pending, published, failed
	PostedAt        sql.NullTime   `db:"posted_at" json:"posted_at"`
	PlatformPostID  sql.NullString `db:"platform_post_id" json:"platform_post_id"`
	ErrorMessage    sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	ScheduleStatusPending   = "pending"
	ScheduleStatusPublished = "published"
	ScheduleStatusFailed    = "failed"
)
