// Package redis mirrors the bridge's latest cycles into Redis so other local
// tools can read the current status without talking to the bridge.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"torrentstream/bridge/internal/domain"
)

const (
	defaultKeyPrefix = "bridge:"
	defaultHistory   = 50
)

// Mirror writes <prefix>last (with TTL) and keeps the newest cycles in the
// <prefix>cycles list.
type Mirror struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	history int64
}

func NewMirror(client redis.UniversalClient, prefix string, ttl time.Duration) *Mirror {
	if client == nil {
		return nil
	}
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = defaultKeyPrefix
	}
	return &Mirror{client: client, prefix: p, ttl: ttl, history: defaultHistory}
}

func (m *Mirror) Name() string { return "redis" }

func (m *Mirror) lastKey() string   { return m.prefix + "last" }
func (m *Mirror) cyclesKey() string { return m.prefix + "cycles" }

func (m *Mirror) Record(ctx context.Context, cycle domain.Cycle) error {
	data, err := json.Marshal(cycle)
	if err != nil {
		return err
	}
	pipe := m.client.TxPipeline()
	pipe.Set(ctx, m.lastKey(), data, m.ttl)
	pipe.LPush(ctx, m.cyclesKey(), data)
	pipe.LTrim(ctx, m.cyclesKey(), 0, m.history-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit cycles, newest first.
func (m *Mirror) Recent(ctx context.Context, limit int64) ([]domain.Cycle, error) {
	if limit <= 0 || limit > m.history {
		limit = m.history
	}
	items, err := m.client.LRange(ctx, m.cyclesKey(), 0, limit-1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]domain.Cycle, 0, len(items))
	for _, raw := range items {
		var c domain.Cycle
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *Mirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}
