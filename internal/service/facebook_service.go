package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/postpilot/postpilot/internal/transfer"
)

type FacebookService interface {
	PublishPhoto(ctx context.Context, pageID, accessToken, caption, imageURL string) (string, error)
}

type facebookService struct {
	graphURL string
	client   *http.Client
}

func NewFacebookService(client *http.Client) FacebookService {
	if client == nil {
		client = http.DefaultClient
	}
	return &facebookService{
		graphURL: "https://graph.facebook.com/v21.0",
		client:   client,
	}
}

// PublishPhoto posts a single image with caption to a Facebook page. One
// synchronous call, one attempt; retries are the operator's call, not ours.
func (s *facebookService) PublishPhoto(ctx context.Context, pageID, accessToken, caption, imageURL string) (string, error) {
	url := fmt.Sprintf("%s/%s/photos", s.graphURL, pageID)

	payload := map[string]string{
		"url":          imageURL,
		"caption":      caption,
		"access_token": accessToken,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlatform, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", ErrPlatform, graphErrorMessage(respBody, resp.StatusCode))
	}

	var result transfer.GraphMediaResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	// /photos returns both the photo id and the feed post id; the post id is
	// the one that resolves on the page timeline.
	if result.PostID != "" {
		return result.PostID, nil
	}
	if result.ID != "" {
		return result.ID, nil
	}

	return "", fmt.Errorf("%w: no post ID returned from Facebook", ErrPlatform)
}

// graphErrorMessage pulls the upstream message out of a Graph API error
// payload, falling back to the raw body.
func graphErrorMessage(body []byte, statusCode int) string {
	var graphErr transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &graphErr); err == nil && graphErr.Error.Message != "" {
		return graphErr.Error.Message
	}
	return fmt.Sprintf("unexpected status code %d: %s", statusCode, body)
}
