// Package twilio is the narrow client surface this service needs from the
// messaging provider: webhook signature validation, media listing for a
// message, and authenticated fetch of media content.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBaseURL is the provider REST API root.
const DefaultAPIBaseURL = "https://api.twilio.com"

// Media is one attachment of a message as reported by the provider.
type Media struct {
	SID         string `json:"sid"`
	URI         string `json:"uri"`
	ContentType string `json:"content_type"`
}

type mediaListResponse struct {
	MediaList []Media `json:"media_list"`
}

// Client talks to the provider REST API with account credentials. One client
// is constructed at process start and shared across requests.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(accountSID, authToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListMedia returns the attachments of a message, in provider order.
func (c *Client) ListMedia(ctx context.Context, messageSID string) ([]Media, error) {
	url := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages/%s/Media.json", c.baseURL, c.accountSID, messageSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build media list request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list media for %s: %w", messageSID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list media for %s: provider returned %d", messageSID, resp.StatusCode)
	}

	var result mediaListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode media list: %w", err)
	}

	return result.MediaList, nil
}

// FetchContent opens the binary content of one attachment. The media URI the
// provider reports points at a JSON resource; stripping the .json suffix
// yields the content URL. The caller owns the returned body and must close
// it; the upstream status is checked before any byte is handed over.
func (c *Client) FetchContent(ctx context.Context, media Media) (string, io.ReadCloser, error) {
	url := c.baseURL + strings.TrimSuffix(media.URI, ".json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build media content request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch media %s: %w", media.SID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return "", nil, fmt.Errorf("fetch media %s: provider returned %d", media.SID, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return contentType, resp.Body, nil
}
