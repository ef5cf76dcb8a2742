// Package remote pushes status reports to the remote key-value endpoint and
// reads back the command it answers with.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"torrentstream/bridge/internal/domain"
)

// maxResponseBytes bounds how much of the remote reply is read.
const maxResponseBytes = 64 << 10

type Config struct {
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

type Client struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewClient(cfg Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		client:   client,
		logger:   logger,
	}
}

type statusBody struct {
	Status string `json:"status"`
}

// Push sends {"status": report} and decodes the reply. An empty reply body
// means no command.
func (c *Client) Push(ctx context.Context, report string) (domain.Command, error) {
	b, err := json.Marshal(statusBody{Status: report})
	if err != nil {
		return domain.Command{}, fmt.Errorf("encode status: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return domain.Command{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Command{}, fmt.Errorf("POST %s: %w", c.endpoint, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Command{}, fmt.Errorf("POST %s: %w %d", c.endpoint, domain.ErrUnexpectedStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Command{}, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		c.logger.DebugContext(ctx, "remote store replied with an empty body",
			slog.Int("status", resp.StatusCode))
		return domain.Command{}, nil
	}
	var cmd domain.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return domain.Command{}, fmt.Errorf("decode response: %w", err)
	}
	return cmd, nil
}
