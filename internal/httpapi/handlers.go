package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/DoyleJ11/spock-server/internal/history"
	"github.com/DoyleJ11/spock-server/internal/hub"
	"github.com/DoyleJ11/spock-server/internal/types"
)

const defaultHistoryLimit = 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Healthz reports "idle" once the hub has stopped taking players and all of
// its sessions are over.
func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-h.Idle():
			writeJSON(w, http.StatusOK, types.Health{Status: "idle"})
		default:
			writeJSON(w, http.StatusOK, types.Health{Status: "ok"})
		}
	}
}

func ListSessions(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := h.Sessions(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, types.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, types.SessionList{Sessions: sessions})
	}
}

func ListHistory(l history.Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "limit must be a positive integer"})
				return
			}
			limit = n
		}
		got, err := l.Recent(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "failed to load history"})
			return
		}
		if got == nil {
			got = []history.Summary{}
		}
		writeJSON(w, http.StatusOK, types.HistoryList{History: got})
	}
}
