// Package api serves the traffic store over HTTP for front-ends that
// poll instead of embedding the store.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/harkirath1511/AV-TFOS/traffic"
)

// Store is the part of *traffic.Store the API needs.
type Store interface {
	Snapshot() traffic.Snapshot
	ToggleSimulation() bool
}

// NewHandler returns the API routes:
//
//	GET  /latest             full snapshot as JSON
//	POST /simulation/toggle  flip the simulation flag
//	GET  /healthz            liveness
func NewHandler(store Store, logger *slog.Logger) http.Handler {
	h := &handler{store: store, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /latest", h.handleLatest)
	mux.HandleFunc("POST /simulation/toggle", h.handleToggle)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

type handler struct {
	store  Store
	logger *slog.Logger
}

// handleLatest returns the current snapshot.
func (h *handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.store.Snapshot())
}

func (h *handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	active := h.store.ToggleSimulation()
	h.logger.Info("simulation toggled", "active", active, "remote", r.RemoteAddr)
	h.writeJSON(w, struct {
		Active bool `json:"isSimulationActive"`
	}{active})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
}

func (h *handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}
