package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	config "github.com/postpilot/postpilot/configs"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/transfer"
	"github.com/postpilot/postpilot/pkg/utils"
)

// Instagram processes media asynchronously: creating a post yields a
// container that must reach FINISHED before it can be published. The
// lifecycle is modelled as an explicit state machine so the retry cap and the
// terminal conditions stay independently testable.
type containerState int

const (
	containerCreated containerState = iota
	containerInProgress
	containerFinished
	containerError
	containerTimedOut
)

func containerStateFromStatus(statusCode string) containerState {
	switch statusCode {
	case "FINISHED":
		return containerFinished
	case "ERROR":
		return containerError
	default:
		// IN_PROGRESS and any unknown value keep the loop going.
		return containerInProgress
	}
}

type InstagramService interface {
	PublishImage(ctx context.Context, accountID, accessToken, caption, imageURL string) (string, error)
	RefreshInstagramToken(ctx context.Context, account *models.SocialAccount) error
}

type instagramService struct {
	cfg             config.Config
	sa              repository.SocialAccountRepository
	graphURL        string
	client          *http.Client
	pollDelay       time.Duration
	maxPollAttempts int
}

func NewInstagramService(cfg config.Config, sa repository.SocialAccountRepository, client *http.Client) InstagramService {
	if client == nil {
		client = http.DefaultClient
	}
	return &instagramService{
		cfg:             cfg,
		sa:              sa,
		graphURL:        "https://graph.instagram.com/v21.0",
		client:          client,
		pollDelay:       3 * time.Second,
		maxPollAttempts: 10,
	}
}

// PublishImage drives the full container lifecycle: create, wait, publish.
// With the 3s poll delay and 10-attempt cap a single record can block its
// worker for about 30 seconds.
func (s *instagramService) PublishImage(ctx context.Context, accountID, accessToken, caption, imageURL string) (string, error) {
	creationID, err := s.createContainer(ctx, accountID, accessToken, caption, imageURL)
	if err != nil {
		return "", err
	}

	if err := s.waitForContainer(ctx, creationID, accessToken); err != nil {
		return "", err
	}

	return s.publishContainer(ctx, accountID, creationID, accessToken)
}

func (s *instagramService) createContainer(ctx context.Context, accountID, accessToken, caption, imageURL string) (string, error) {
	url := fmt.Sprintf("%s/%s/media", s.graphURL, accountID)

	payload := map[string]interface{}{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": accessToken,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	respBody, statusCode, err := s.post(ctx, url, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlatform, err)
	}
	if statusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrPlatform, graphErrorMessage(respBody, statusCode))
	}

	var result transfer.GraphMediaResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: no media container ID returned from Instagram", ErrPlatform)
	}

	return result.ID, nil
}

// waitForContainer polls the container status until it reaches a terminal
// state or the attempt budget runs out. ERROR short-circuits immediately.
func (s *instagramService) waitForContainer(ctx context.Context, creationID, accessToken string) error {
	for attempt := 0; attempt < s.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollDelay):
		}

		statusCode, upstreamMsg, err := s.containerStatus(ctx, creationID, accessToken)
		if err != nil {
			return err
		}

		switch containerStateFromStatus(statusCode) {
		case containerFinished:
			return nil
		case containerError:
			return fmt.Errorf("%w: media container failed: %s", ErrPlatform, upstreamMsg)
		}
	}

	return fmt.Errorf("%w: Instagram processing timed out after %d attempts", ErrTimeout, s.maxPollAttempts)
}

func (s *instagramService) containerStatus(ctx context.Context, creationID, accessToken string) (string, string, error) {
	url := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", s.graphURL, creationID, accessToken)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrPlatform, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: %s", ErrPlatform, graphErrorMessage(respBody, resp.StatusCode))
	}

	var status transfer.GraphContainerStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return "", "", fmt.Errorf("error parsing response: %w", err)
	}

	return status.StatusCode, string(respBody), nil
}

func (s *instagramService) publishContainer(ctx context.Context, accountID, creationID, accessToken string) (string, error) {
	url := fmt.Sprintf("%s/%s/media_publish", s.graphURL, accountID)

	payload := map[string]string{
		"creation_id":  creationID,
		"access_token": accessToken,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	respBody, statusCode, err := s.post(ctx, url, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlatform, err)
	}
	if statusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrPlatform, graphErrorMessage(respBody, statusCode))
	}

	var result transfer.GraphMediaResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: no post ID returned from Instagram", ErrPlatform)
	}

	return result.ID, nil
}

func (s *instagramService) post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading response body: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// RefreshInstagramToken rotates a long-lived token before it expires and
// stores the re-encrypted result.
func (s *instagramService) RefreshInstagramToken(ctx context.Context, account *models.SocialAccount) error {
	decryptedToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	url := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		decryptedToken,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("%w: no access token returned from Instagram", ErrPlatform)
	}

	encryptedToken, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	refreshed := models.SocialAccount{
		AccessToken:    encryptedToken,
		RefreshToken:   encryptedToken,
		TokenExpiresAt: time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}

	return s.sa.SetToken(ctx, account.ID, account.AccessToken, &refreshed)
}
