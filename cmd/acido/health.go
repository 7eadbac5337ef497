package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// healthServer reports acido's own readiness, derived from the live
// dependencies a fleet/remote request actually needs rather than a
// generic component registry: the Cloud Adapter must be able to list
// container groups, and the ready flag (set by serve shortly after both
// HTTP listeners have been started) must be true.
type healthServer struct {
	deps      *deps
	startTime time.Time
	ready     func() bool
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Message string `json:"message,omitempty"`
}

func (h *healthServer) writeJSON(w http.ResponseWriter, status int, resp healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// liveHandler answers as soon as the process can handle HTTP at all; it
// never touches Azure, so it never blocks on a stalled API.
func (h *healthServer) liveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, healthResponse{
			Status:  "alive",
			Version: Version,
			Uptime:  time.Since(h.startTime).String(),
		})
	}
}

// readyHandler calls the Cloud Adapter's ListGroups with a short timeout
// to confirm the Azure credential and subscription/resource-group pair
// are actually reachable before traffic is routed to this instance.
func (h *healthServer) readyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready() {
			h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status:  "not_ready",
				Version: Version,
				Uptime:  time.Since(h.startTime).String(),
				Message: "remote endpoint still starting",
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if _, err := h.deps.cloud.ListGroups(ctx); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status:  "not_ready",
				Version: Version,
				Uptime:  time.Since(h.startTime).String(),
				Message: "cloud adapter unreachable: " + err.Error(),
			})
			return
		}

		h.writeJSON(w, http.StatusOK, healthResponse{
			Status:  "ready",
			Version: Version,
			Uptime:  time.Since(h.startTime).String(),
		})
	}
}

// healthHandler mirrors readyHandler but without the hard 503: a slow or
// degraded cloud adapter is reported inline rather than taken out of
// rotation, which is the distinction health and readiness probes exist
// to draw.
func (h *healthServer) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "healthy"
		message := ""
		if _, err := h.deps.cloud.ListGroups(ctx); err != nil {
			status = "degraded"
			message = "cloud adapter unreachable: " + err.Error()
		}

		h.writeJSON(w, http.StatusOK, healthResponse{
			Status:  status,
			Version: Version,
			Uptime:  time.Since(h.startTime).String(),
			Message: message,
		})
	}
}
