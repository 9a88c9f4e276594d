package models

import "time"

type TrackedLink struct {
	ID              int64     `db:"id" json:"id"`
	ShortCode       string    `db:"short_code" json:"short_code"`
	OriginalURL     string    `db:"original_url" json:"original_url"`
	ScheduledPostID int64     `db:"scheduled_post_id" json:"scheduled_post_id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Platform        string    `db:"platform" json:"platform"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// LinkClick is append-only; rows are inserted by the queue worker, never read
// on the redirect path.
type LinkClick struct {
	ID        int64     `db:"id" json:"id"`
	LinkID    int64     `db:"link_id" json:"link_id"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	IP        string    `db:"ip" json:"ip"`
	Referrer  string    `db:"referrer" json:"referrer"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
