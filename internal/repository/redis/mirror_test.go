package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"torrentstream/bridge/internal/domain"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestNewMirror_NilClient(t *testing.T) {
	if m := NewMirror(nil, "", time.Minute); m != nil {
		t.Fatal("expected nil mirror for nil client")
	}
}

func TestNewMirror_Keys(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	m := NewMirror(client, "  ", time.Minute)
	if m.lastKey() != "bridge:last" || m.cyclesKey() != "bridge:cycles" {
		t.Fatalf("unexpected default keys %q %q", m.lastKey(), m.cyclesKey())
	}
	m = NewMirror(client, "home:qb:", time.Minute)
	if m.lastKey() != "home:qb:last" {
		t.Fatalf("unexpected key %q", m.lastKey())
	}
	if m.Name() != "redis" {
		t.Fatalf("unexpected name %q", m.Name())
	}
}

func TestMirror_UnreachableReturnsErrors(t *testing.T) {
	client := unreachableClient()
	defer client.Close()
	m := NewMirror(client, "", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Record(ctx, domain.Cycle{Seq: 1}); err == nil {
		t.Error("expected Record error")
	}
	if _, err := m.Recent(ctx, 5); err == nil {
		t.Error("expected Recent error")
	}
	if err := m.Ping(ctx); err == nil {
		t.Error("expected Ping error")
	}
}
