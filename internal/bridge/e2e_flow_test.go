package bridge_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"torrentstream/bridge/internal/bridge"
	"torrentstream/bridge/internal/domain"
	"torrentstream/bridge/internal/qbt"
	"torrentstream/bridge/internal/qbt/qbttest"
	"torrentstream/bridge/internal/remote"
)

type countingPower struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPower) Shutdown(ctx context.Context, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil
}

// remoteStore answers {} until shutdownAfter pushes were received, then
// {"cmd":"shutdown"}. The first failFirst pushes get a 502.
type remoteStore struct {
	mu            sync.Mutex
	statuses      []string
	failFirst     int
	shutdownAfter int
}

func (s *remoteStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.statuses = append(s.statuses, body.Status)
	n := len(s.statuses)
	s.mu.Unlock()

	if n <= s.failFirst {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if n >= s.shutdownAfter {
		w.Write([]byte(`{"cmd":"shutdown"}`))
		return
	}
	w.Write([]byte(`{}`))
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestE2E_PollPushShutdown(t *testing.T) {
	qb := qbttest.NewServer("admin", "secret")
	defer qb.Close()
	qb.SetTorrents([]domain.Torrent{
		{Name: "Ubuntu.iso.torrent.extra.long.name", Progress: 0.5},
	})

	store := &remoteStore{failFirst: 1, shutdownAfter: 3}
	ts := httptest.NewServer(store)
	defer ts.Close()

	local, err := qbt.NewClient(qbt.Config{BaseURL: qb.URL, Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("qbt client: %v", err)
	}
	pw := &countingPower{}
	b := bridge.New(bridge.Config{
		Local:    local,
		Remote:   remote.NewClient(remote.Config{Endpoint: ts.URL + "/update_qb"}),
		Power:    pw,
		Logger:   discard(),
		Interval: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if qb.Logins() != 1 {
		t.Errorf("expected a single login, got %d", qb.Logins())
	}
	if qb.Lists() != 3 {
		t.Errorf("expected 3 listings, got %d", qb.Lists())
	}
	if pw.calls != 1 {
		t.Errorf("expected 1 shutdown, got %d", pw.calls)
	}
	want := "🎬 Ubuntu.iso.torrent.e..: 50.0%\n"
	for i, s := range store.statuses {
		if s != want {
			t.Errorf("push %d: got %q, want %q", i, s, want)
		}
	}
	snap := b.Snapshot()
	if snap.Failures != 1 {
		t.Errorf("expected 1 failed cycle, got %d", snap.Failures)
	}
	if snap.State != domain.StateTerminated {
		t.Errorf("state = %s, want terminated", snap.State)
	}
}

func TestE2E_BadCredentials(t *testing.T) {
	qb := qbttest.NewServer("admin", "secret")
	defer qb.Close()

	local, err := qbt.NewClient(qbt.Config{BaseURL: qb.URL, Username: "admin", Password: "nope"})
	if err != nil {
		t.Fatalf("qbt client: %v", err)
	}
	b := bridge.New(bridge.Config{
		Local:  local,
		Remote: remote.NewClient(remote.Config{Endpoint: "http://127.0.0.1:1"}),
		Power:  &countingPower{},
		Logger: discard(),
	})
	err = b.Run(context.Background())
	if err == nil {
		t.Fatal("expected authentication error")
	}
	if qb.Lists() != 0 {
		t.Errorf("expected no listings, got %d", qb.Lists())
	}
}
