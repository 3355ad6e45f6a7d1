// Package truid implements the client for the TruID bank-verification API.
// Unlike Sumsub, TruID authenticates with a bearer token and hands back a
// hosted URL the user completes the flow on, so there is no request signing.
package truid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"arvo/internal/providers"
)

const requestTimeout = 15 * time.Second

// Config holds the TruID credentials, injected at startup.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client talks to the TruID collections API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a TruID client from the given config.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: requestTimeout},
	}
}

// Configured reports whether the API key and base URL are present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if !c.Configured() {
		return nil, providers.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("truid request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read truid response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providers.Error{
			Provider:   "truid",
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}
	return respBody, nil
}

// CreateCollection opens a bank-verification collection for the external
// user and returns the hosted URL the user completes it on.
func (c *Client) CreateCollection(ctx context.Context, externalUserID string) (*Collection, error) {
	body, err := json.Marshal(map[string]string{"externalUserId": externalUserID})
	if err != nil {
		return nil, err
	}

	respBody, err := c.do(ctx, http.MethodPost, "/api/collections", body)
	if err != nil {
		return nil, err
	}

	var col Collection
	if err := json.Unmarshal(respBody, &col); err != nil {
		return nil, fmt.Errorf("failed to decode collection response: %w", err)
	}
	return &col, nil
}

// GetCollectionStatus fetches the raw status payload for a collection.
// TruID reports progress through timestamped status and milestone lists;
// normalization happens in the banking service.
func (c *Client) GetCollectionStatus(ctx context.Context, collectionID string) (json.RawMessage, error) {
	path := "/api/collections/" + url.PathEscape(collectionID) + "/status"
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(respBody), nil
}
