package models

import "time"

// GeneratedPost rows are written by the content-generation side of the
// application; the pipeline only reads them.
type GeneratedPost struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Caption   string    `db:"caption" json:"caption"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Business struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	WebsiteURL string    `db:"website_url" json:"website_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
