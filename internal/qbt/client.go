// Package qbt is a minimal qBittorrent WebAPI v2 client: a cookie-backed
// session created by Login and the torrent listing.
package qbt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"torrentstream/bridge/internal/domain"
)

const (
	loginPath        = "/api/v2/auth/login"
	torrentsInfoPath = "/api/v2/torrents/info"

	// qBittorrent answers a bad login with 200 and this body.
	loginRejected = "Fails."
)

type Config struct {
	BaseURL  string
	Username string
	Password string
	// Client is cloned; a cookie jar is attached when it has none.
	Client *http.Client
}

// Client holds the authenticated session for the process lifetime.
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	base := cfg.Client
	if base == nil {
		base = &http.Client{}
	}
	clone := *base
	if clone.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		clone.Jar = jar
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &clone,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Login opens the session. Wrong credentials or a non-200 answer yield
// domain.ErrAuthentication; a transport failure yields
// domain.ErrLocalUnavailable.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{"username": {c.username}, "password": {c.password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setOrigin(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLocalUnavailable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrAuthentication, resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) == loginRejected {
		return fmt.Errorf("%w: credentials rejected", domain.ErrAuthentication)
	}
	return nil
}

// ListTorrents fetches /api/v2/torrents/info. A JSON null is treated as an
// empty listing.
func (c *Client) ListTorrents(ctx context.Context) ([]domain.Torrent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+torrentsInfoPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setOrigin(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", torrentsInfoPath, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %w %d", torrentsInfoPath, domain.ErrUnexpectedStatus, resp.StatusCode)
	}

	var torrents []domain.Torrent
	if err := json.NewDecoder(resp.Body).Decode(&torrents); err != nil {
		return nil, fmt.Errorf("decode torrents: %w", err)
	}
	return torrents, nil
}

// setOrigin satisfies qBittorrent's CSRF protection, which rejects requests
// whose Referer/Origin do not match the WebUI host.
func (c *Client) setOrigin(req *http.Request) {
	req.Header.Set("Referer", c.baseURL)
	req.Header.Set("Origin", c.baseURL)
}
