package apihttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"torrentstream/bridge/internal/domain"
)

const maxCyclesLimit = 200

var errInvalidLimit = errors.New("limit must be a positive integer")

type healthResponse struct {
	Status string       `json:"status"`
	State  domain.State `json:"state"`
}

type cyclesResponse struct {
	Items []domain.Cycle `json:"items"`
	Count int            `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", State: s.status.Snapshot().State})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.status.Snapshot())
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "no cycle journal configured")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	items, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Warn("cycles: history lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "history_unavailable", "cycle history unavailable")
		return
	}
	if items == nil {
		items = []domain.Cycle{}
	}
	writeJSON(w, http.StatusOK, cyclesResponse{Items: items, Count: len(items)})
}

func parseLimit(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 20, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	if n > maxCyclesLimit {
		n = maxCyclesLimit
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
