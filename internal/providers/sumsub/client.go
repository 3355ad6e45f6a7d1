// Package sumsub implements the signed REST client for the Sumsub KYC API.
// Every request carries a timestamp + HMAC-SHA256 signature over
// method, path and body, which Sumsub validates server-side.
package sumsub

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arvo/internal/providers"
)

const (
	DefaultBaseURL   = "https://api.sumsub.com"
	DefaultLevelName = "basic-kyc-level"
	requestTimeout   = 15 * time.Second
)

// Config holds the credentials and defaults for the Sumsub API.
// It is constructed once at startup and injected; the client never
// reads the environment itself.
type Config struct {
	AppToken  string
	SecretKey string
	BaseURL   string
	LevelName string
}

// Client signs and sends requests to the Sumsub REST API.
type Client struct {
	cfg  Config
	http *http.Client
	// now is swapped in tests to pin the signature timestamp.
	now func() time.Time
}

// NewClient creates a Sumsub client from the given config.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.LevelName == "" {
		cfg.LevelName = DefaultLevelName
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: requestTimeout},
		now:  time.Now,
	}
}

// Configured reports whether both credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.AppToken != "" && c.cfg.SecretKey != ""
}

// DefaultLevel returns the configured verification level name.
func (c *Client) DefaultLevel() string { return c.cfg.LevelName }

// sign computes hex(HMAC-SHA256(secret, ts + METHOD + path + body)).
// path includes the query string.
func (c *Client) sign(ts, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(ts))
	mac.Write([]byte(strings.ToUpper(method)))
	mac.Write([]byte(path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// do issues one signed request and returns the raw 2xx response body.
// Credentials are checked before any network I/O. Non-2xx responses become
// *providers.Error; the client never retries.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if !c.Configured() {
		return nil, providers.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	ts := strconv.FormatInt(c.now().Unix(), 10)
	req.Header.Set("X-App-Token", c.cfg.AppToken)
	req.Header.Set("X-App-Access-Ts", ts)
	req.Header.Set("X-App-Access-Sig", c.sign(ts, method, path, body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sumsub request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sumsub response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providers.Error{
			Provider:   "sumsub",
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}
	return respBody, nil
}

// CreateApplicant registers an applicant for the given external user id.
// Sumsub rejects duplicate applicants with an "already exists" error; that
// is expected on retried onboarding attempts and is treated as success.
func (c *Client) CreateApplicant(ctx context.Context, externalUserID, levelName string) (*Applicant, error) {
	if levelName == "" {
		levelName = c.cfg.LevelName
	}
	body, err := json.Marshal(map[string]string{"externalUserId": externalUserID})
	if err != nil {
		return nil, err
	}

	path := "/resources/applicants?levelName=" + url.QueryEscape(levelName)
	respBody, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		var pe *providers.Error
		if errors.As(err, &pe) && strings.Contains(pe.Body, "already exists") {
			return nil, nil
		}
		return nil, err
	}

	var applicant Applicant
	if err := json.Unmarshal(respBody, &applicant); err != nil {
		return nil, fmt.Errorf("failed to decode applicant response: %w", err)
	}
	return &applicant, nil
}

// CreateAccessToken issues a short-lived WebSDK token for the external user.
// Each call supersedes any previously issued token.
func (c *Client) CreateAccessToken(ctx context.Context, externalUserID, levelName string) (*AccessToken, error) {
	if levelName == "" {
		levelName = c.cfg.LevelName
	}
	path := "/resources/accessTokens?userId=" + url.QueryEscape(externalUserID) +
		"&levelName=" + url.QueryEscape(levelName)
	respBody, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	var token AccessToken
	if err := json.Unmarshal(respBody, &token); err != nil {
		return nil, fmt.Errorf("failed to decode access token response: %w", err)
	}
	return &token, nil
}

// GetApplicantStatus fetches the raw status payload for an applicant.
// The shape varies by review stage; normalization happens in the
// verification service, not here.
func (c *Client) GetApplicantStatus(ctx context.Context, applicantID string) (json.RawMessage, error) {
	path := "/resources/applicants/" + url.PathEscape(applicantID) + "/status"
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(respBody), nil
}
