package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/service"
)

type TokenRefreshJob struct {
	sr repository.SocialAccountRepository
	ig service.InstagramService
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, ig service.InstagramService) *TokenRefreshJob {
	return &TokenRefreshJob{sr: sr, ig: ig}
}

// RefreshTokens rotates Instagram long-lived tokens that expire within the
// next 30 minutes. Facebook page tokens don't expire on this cadence.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListByTokenExpiry(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for _, acc := range accounts {
		if acc.Platform != models.PlatformInstagram {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.ig.RefreshInstagramToken(ctx, acc); err != nil {
				slog.Info("Unable to refresh token for Instagram", "account_id", acc.ID)
			}
		}(acc)
	}

	wg.Wait()
}
