// Package qbttest serves a fake qBittorrent WebAPI v2 for tests.
package qbttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"torrentstream/bridge/internal/domain"
)

const sessionCookie = "SID"

// Server emulates the subset of the WebAPI the bridge uses: login with a
// session cookie and the torrent listing.
type Server struct {
	*httptest.Server

	username string
	password string
	sid      string

	mu         sync.Mutex
	torrents   []domain.Torrent
	listStatus int
	rawList    string
	logins     int
	lists      int
}

func NewServer(username, password string) *Server {
	s := &Server{
		username: username,
		password: password,
		sid:      "test-session",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", s.handleLogin)
	mux.HandleFunc("/api/v2/torrents/info", s.handleTorrentsInfo)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetTorrents replaces the listing served by /api/v2/torrents/info.
func (s *Server) SetTorrents(torrents []domain.Torrent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.torrents = torrents
	s.rawList = ""
	s.listStatus = 0
}

// SetRawList serves body verbatim from the listing endpoint.
func (s *Server) SetRawList(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawList = body
}

// FailList makes the listing endpoint answer with status; 0 restores it.
func (s *Server) FailList(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listStatus = status
}

func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func (s *Server) Lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.logins++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain")
	if r.FormValue("username") != s.username || r.FormValue("password") != s.password {
		fmt.Fprint(w, "Fails.")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: s.sid, Path: "/"})
	fmt.Fprint(w, "Ok.")
}

func (s *Server) handleTorrentsInfo(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	s.mu.Lock()
	s.lists++
	status := s.listStatus
	raw := s.rawList
	torrents := s.torrents
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, "upstream error", status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if raw != "" {
		fmt.Fprint(w, raw)
		return
	}
	if torrents == nil {
		torrents = []domain.Torrent{}
	}
	json.NewEncoder(w).Encode(torrents) //nolint:errcheck
}

func (s *Server) authorized(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	return err == nil && c.Value == s.sid
}
