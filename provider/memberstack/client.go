// Package memberstack adapts the Memberstack Admin REST API to the
// emailchange.Directory capability. Memberstack ships no Go SDK, so the
// client wraps net/http directly.
package memberstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Admin API endpoint.
const DefaultBaseURL = "https://admin.memberstack.com"

const defaultTimeout = time.Second * 10

// Config configures the Admin API client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a thin wrapper over the Admin API's member read and update calls.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Member is the subset of the Admin API member payload this service reads.
type Member struct {
	ID   string     `json:"id"`
	Auth MemberAuth `json:"auth"`
}

type MemberAuth struct {
	Email string `json:"email"`
}

type memberEnvelope struct {
	Data *Member `json:"data"`
}

// NewClient creates a new Admin API client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("memberstack: api key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    httpClient,
	}, nil
}

// GetMember fetches a member by identifier.
func (c *Client) GetMember(ctx context.Context, memberID string) (*Member, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fmt.Errorf("memberstack: member id is required")
	}

	req, err := c.newRequest(ctx, http.MethodGet, memberID, nil)
	if err != nil {
		return nil, err
	}

	return c.doMember(req)
}

// UpdateMemberEmail asks the directory to change the member's login email.
// One canonical request shape only: a rejection is an integration error, not
// a prompt to retry with a different payload.
func (c *Client) UpdateMemberEmail(ctx context.Context, memberID, newEmail string) (*Member, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fmt.Errorf("memberstack: member id is required")
	}
	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" {
		return nil, fmt.Errorf("memberstack: new email is required")
	}

	body, err := json.Marshal(map[string]string{"email": newEmail})
	if err != nil {
		return nil, fmt.Errorf("memberstack: failed to encode update: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, memberID, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doMember(req)
}

func (c *Client) newRequest(ctx context.Context, method, memberID string, body io.Reader) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/members/%s", c.baseURL, url.PathEscape(memberID))

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("memberstack: failed to build request: %w", err)
	}

	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doMember(req *http.Request) (*Member, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("memberstack: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("memberstack: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("memberstack: %s %s returned %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, compact(raw))
	}

	var envelope memberEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("memberstack: failed to decode member: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("memberstack: response has no member data")
	}

	return envelope.Data, nil
}

func compact(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
