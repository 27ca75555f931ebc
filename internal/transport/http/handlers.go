package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// Status describes the wait a deadline command is performing.
type Status struct {
	At      time.Time
	Reached bool
}

// StatusFunc returns the current Status. It is called once per request.
type StatusFunc func() Status

// Handler groups the HTTP request handlers.
type Handler struct {
	status StatusFunc
}

// ─── DTOs ─────────────────────────────────────────────────────────────────────

type statusResponse struct {
	At          string `json:"at"`
	AtMs        int64  `json:"at_ms"`
	RemainingMs int64  `json:"remaining_ms"`
	Reached     bool   `json:"reached"`
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) statusHandler(w http.ResponseWriter, _ *http.Request) {
	if h.status == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no wait in progress"})
		return
	}
	st := h.status()

	remaining := st.At.Sub(time.Now().Round(0))
	if remaining < 0 || st.Reached {
		remaining = 0
	}

	writeJSON(w, http.StatusOK, statusResponse{
		At:          st.At.Format(time.RFC3339Nano),
		AtMs:        st.At.UnixMilli(),
		RemainingMs: remaining.Milliseconds(),
		Reached:     st.Reached,
	})
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
