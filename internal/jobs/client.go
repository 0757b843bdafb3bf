package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"alumni/internal/auth"
)

// ExpiringMember is a member whose annual membership ends in a few days.
type ExpiringMember struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	AltUserID    string `json:"alt_user_id"`
	DaysToExpiry int    `json:"days_to_expiry"`
}

// ExpiredMember is a member whose membership ended yesterday.
type ExpiredMember struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	AltUserID   string `json:"alt_user_id"`
	RenewalHash string `json:"renewal_hash"`
}

// BirthdayMember is a member whose birthday is today.
type BirthdayMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Client calls the job endpoints of the API with the shared job secret.
type Client struct {
	BaseURL string
	Secret  string
	HTTP    *http.Client
}

// NewClient creates a client with a request timeout.
func NewClient(baseURL, secret string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Secret:  secret,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Expiring lists members whose membership ends in exactly days days.
func (c *Client) Expiring(ctx context.Context, days int) ([]ExpiringMember, error) {
	var out []ExpiringMember
	err := c.do(ctx, http.MethodGet, "/expiring_memberships/"+strconv.Itoa(days), nil, &out)
	return out, err
}

// IssueRenewalHash asks the API for the renewal hash of email. The API keeps
// an outstanding hash, so every reminder of one cycle links to the same page.
func (c *Client) IssueRenewalHash(ctx context.Context, email string) (string, error) {
	var out struct {
		RenewalHash string `json:"renewal_hash"`
	}
	if err := c.do(ctx, http.MethodPut, "/renewal_hash", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	if out.RenewalHash == "" {
		return "", fmt.Errorf("api returned no renewal hash for %s", email)
	}
	return out.RenewalHash, nil
}

// RecentlyExpired lists members whose membership ended yesterday.
func (c *Client) RecentlyExpired(ctx context.Context) ([]ExpiredMember, error) {
	var out []ExpiredMember
	err := c.do(ctx, http.MethodGet, "/recently_expired_memberships", nil, &out)
	return out, err
}

// Expire marks the membership of email as expired.
func (c *Client) Expire(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPut, "/expire_active_memberships", map[string]string{"email": email}, nil)
}

// Birthdays lists members whose birthday is today.
func (c *Client) Birthdays(ctx context.Context) ([]BirthdayMember, error) {
	var out []BirthdayMember
	err := c.do(ctx, http.MethodGet, "/alumni/birthdays", nil, &out)
	return out, err
}

// Ping records a successful run of the named job.
func (c *Client) Ping(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPut, "/jobs", map[string]string{"job_name": name}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(auth.JobSecretHeader, c.Secret)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("api request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api error %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(bodyBytes)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
