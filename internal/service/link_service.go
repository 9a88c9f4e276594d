package service

import (
	"context"
	"fmt"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/queue"
	"github.com/postpilot/postpilot/internal/repository"
)

const (
	shortCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"
	shortCodeLength   = 8
)

type ClickEnqueuer interface {
	EnqueueClick(payload queue.ClickPayload) error
}

type LinkService interface {
	CreateShortLink(ctx context.Context, originalURL string, scheduledPostID, userID int64, platform string) (string, error)
	TrackClick(ctx context.Context, shortCode, userAgent, referrer, ip string) (string, error)
}

type linkService struct {
	tl repository.TrackedLinkRepository
	eq ClickEnqueuer
}

func NewLinkService(tl repository.TrackedLinkRepository, eq ClickEnqueuer) LinkService {
	return &linkService{tl: tl, eq: eq}
}

func (s *linkService) CreateShortLink(ctx context.Context, originalURL string, scheduledPostID, userID int64, platform string) (string, error) {
	if originalURL == "" {
		return "", fmt.Errorf("%w: original url is empty", ErrValidation)
	}

	code, err := gonanoid.Generate(shortCodeAlphabet, shortCodeLength)
	if err != nil {
		return "", fmt.Errorf("%w: generating short code: %v", ErrPersistence, err)
	}

	link := models.TrackedLink{
		ShortCode:       code,
		OriginalURL:     originalURL,
		ScheduledPostID: scheduledPostID,
		UserID:          userID,
		Platform:        platform,
	}

	if _, err := s.tl.Create(ctx, &link); err != nil {
		return "", fmt.Errorf("%w: saving tracked link: %v", ErrPersistence, err)
	}

	return code, nil
}

// TrackClick returns the redirect target for a short code. The click event is
// handed to the queue and forgotten; an enqueue failure only gets logged so
// the redirect never waits on analytics.
func (s *linkService) TrackClick(ctx context.Context, shortCode, userAgent, referrer, ip string) (string, error) {
	link, err := s.tl.GetByShortCode(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%w: looking up short code: %v", ErrPersistence, err)
	}
	if link == nil {
		return "", fmt.Errorf("%w: no redirect target", ErrNotFound)
	}

	if err := s.eq.EnqueueClick(queue.ClickPayload{
		LinkID:    link.ID,
		UserAgent: userAgent,
		IP:        ip,
		Referrer:  referrer,
		Platform:  link.Platform,
	}); err != nil {
		slog.Info("failed to enqueue click event", "short_code", shortCode, "error", err.Error())
	}

	return link.OriginalURL, nil
}
