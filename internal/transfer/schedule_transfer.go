package transfer

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/postpilot/postpilot/internal/models"
)

type ScheduleCreation struct {
	GeneratedPostID  int64   `json:"generated_post_id"`
	SocialAccountIDs []int64 `json:"social_account_ids"`
	ScheduledTime    string  `json:"scheduled_time"`
}

type ScheduleUpdate struct {
	ScheduledTime string `json:"scheduled_time"`
}

type ScheduleList struct {
	Page    int                     `json:"page"`
	Limit   int                     `json:"limit"`
	Total   int                     `json:"total"`
	HasMore bool                    `json:"hasMore"`
	Data    []*models.ScheduledPost `json:"data"`
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
