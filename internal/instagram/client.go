// Package instagram publishes image posts via the Instagram Graph API.
// Publishing is a two-step flow: create a media container from the image
// URL and caption, then publish the container. A third call resolves the
// public permalink of the created post.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/recipereel/workers/internal/domain"
	"github.com/recipereel/workers/internal/logger"
)

const defaultTimeout = 30 * time.Second

// Client talks to the Graph API for one Instagram business account.
type Client struct {
	baseURL     string
	accountID   string
	accessToken string
	client      *http.Client
	logger      logger.Logger
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type containerResponse struct {
	ID string `json:"id"`
}

type publishResponse struct {
	ID string `json:"id"`
}

type mediaResponse struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
}

// NewClient creates a Graph API client.
func NewClient(baseURL, accountID, accessToken string, log logger.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("instagram base URL is required")
	}
	if accountID == "" {
		return nil, errors.New("instagram account ID is required")
	}
	if accessToken == "" {
		return nil, errors.New("instagram access token is required")
	}

	return &Client{
		baseURL:     baseURL,
		accountID:   accountID,
		accessToken: accessToken,
		client:      &http.Client{Timeout: defaultTimeout},
		logger:      log,
	}, nil
}

// Publish creates and publishes an image post. It returns the platform post
// id and permalink on success. A permalink lookup failure after a successful
// publish is not fatal; the post id alone is returned in that case.
func (c *Client) Publish(ctx context.Context, imageURL, captionText string) (*domain.PlatformPost, error) {
	containerID, err := c.createContainer(ctx, imageURL, captionText)
	if err != nil {
		return nil, fmt.Errorf("create media container: %w", err)
	}

	c.logger.Debug("media container created",
		logger.String("container_id", containerID))

	mediaID, err := c.publishContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("publish media container: %w", err)
	}

	post := &domain.PlatformPost{ID: mediaID}

	permalink, err := c.fetchPermalink(ctx, mediaID)
	if err != nil {
		c.logger.Warn("post published but permalink lookup failed",
			logger.String("media_id", mediaID),
			logger.Error(err))
		return post, nil
	}
	post.URL = permalink

	return post, nil
}

func (c *Client) createContainer(ctx context.Context, imageURL, captionText string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media", c.baseURL, c.accountID)
	params := url.Values{
		"image_url": {imageURL},
		"caption":   {captionText},
	}

	var resp containerResponse
	if err := c.postForm(ctx, endpoint, params, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("empty container id in response")
	}
	return resp.ID, nil
}

func (c *Client) publishContainer(ctx context.Context, containerID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media_publish", c.baseURL, c.accountID)
	params := url.Values{
		"creation_id": {containerID},
	}

	var resp publishResponse
	if err := c.postForm(ctx, endpoint, params, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("empty media id in response")
	}
	return resp.ID, nil
}

func (c *Client) fetchPermalink(ctx context.Context, mediaID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s",
		c.baseURL, mediaID, url.QueryEscape(c.accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	var resp mediaResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Permalink, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		bytes.NewBufferString(params.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var ge graphError
		if jsonErr := json.Unmarshal(body, &ge); jsonErr == nil && ge.Error.Message != "" {
			return fmt.Errorf("graph api error (status %d, code %d): %s",
				resp.StatusCode, ge.Error.Code, ge.Error.Message)
		}
		return fmt.Errorf("graph api error: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
