package service

import (
	"context"
	"fmt"

	"github.com/postpilot/postpilot/internal/models"
)

// Publisher routes an enriched post to the adapter for its platform. Pure
// dispatch; no state.
type Publisher interface {
	Publish(ctx context.Context, account *models.SocialAccount, accessToken, caption, imageURL string) (string, error)
}

type publisher struct {
	fb FacebookService
	ig InstagramService
}

func NewPublisher(fb FacebookService, ig InstagramService) Publisher {
	return &publisher{fb: fb, ig: ig}
}

func (p *publisher) Publish(ctx context.Context, account *models.SocialAccount, accessToken, caption, imageURL string) (string, error) {
	if account == nil || account.Platform == "" {
		return "", fmt.Errorf("%w: missing platform", ErrValidation)
	}
	if account.AccountID == "" {
		return "", fmt.Errorf("%w: missing platform account id", ErrValidation)
	}
	if accessToken == "" {
		return "", fmt.Errorf("%w: missing access token", ErrValidation)
	}

	switch account.Platform {
	case models.PlatformFacebook:
		return p.fb.PublishPhoto(ctx, account.AccountID, accessToken, caption, imageURL)
	case models.PlatformInstagram:
		return p.ig.PublishImage(ctx, account.AccountID, accessToken, caption, imageURL)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, account.Platform)
	}
}
