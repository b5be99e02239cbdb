package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/rps-backend/internal/hub"
	"github.com/DoyleJ11/rps-backend/internal/registry"
)

// ask posts a request to the hub and waits for the reply, giving up when the
// client goes away or the hub stops.
func ask[T any](h *hub.Hub, r *http.Request, msg hub.HubMsg, reply chan T) (T, bool) {
	var zero T
	if !h.Post(msg) {
		return zero, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-r.Context().Done():
		return zero, false
	case <-h.Done():
		return zero, false
	}
}

func Leaderboard(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []registry.Standing, 1)
		board, ok := ask(h, r, hub.GetLeaderboard{Reply: reply}, reply)
		if !ok {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if board == nil {
			board = []registry.Standing{}
		}
		writeJSON(w, log, http.StatusOK, board)
	}
}

func Stats(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.Stats, 1)
		stats, ok := ask(h, r, hub.GetStats{Reply: reply}, reply)
		if !ok {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, log, http.StatusOK, stats)
	}
}

// Presence reports where one connection is. Connection ids appear in the
// server logs.
func Presence(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connID := chi.URLParam(r, "connID")
		reply := make(chan hub.Presence, 1)
		p, ok := ask(h, r, hub.Lookup{ConnID: connID, Reply: reply}, reply)
		if !ok {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if !p.Known() {
			http.Error(w, "connection not found", http.StatusNotFound)
			return
		}
		writeJSON(w, log, http.StatusOK, p)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("encode response", zap.Error(err))
	}
}
