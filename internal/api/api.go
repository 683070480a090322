// Package api exposes the inventory queries over HTTP for scripts
// and dashboards. It is read-only: every endpoint is a different view
// of the same facade the wire protocol and the console use.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jbweber/homelab/croft/internal/inventory"
)

// API holds the inventory facade for the HTTP read surface.
type API struct {
	inventory *inventory.Service
	log       *zap.Logger
}

// NewAPI creates a new API instance over the inventory facade.
func NewAPI(inv *inventory.Service, log *zap.Logger) *API {
	return &API{inventory: inv, log: log.Named("api")}
}

// RegisterRoutes registers all inventory routes on the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", a.HealthHandler)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/machines", a.ListAllHandler)
		r.Get("/machines/connected", a.ListConnectedHandler)
		r.Get("/machines/authorized", a.ListAuthorizedHandler)
		r.Get("/disks", a.ListDisksHandler)
	})
}

// HealthHandler reports process liveness.
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := fmt.Fprintln(w, "ok"); err != nil {
		a.log.Warn("failed to write response", zap.Error(err))
	}
}

// ListConnectedHandler serves the in-memory registry snapshot.
func (a *API) ListConnectedHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.inventory.Connected())
}

// ListAuthorizedHandler serves durable rows with the authorized flag
// set.
func (a *API) ListAuthorizedHandler(w http.ResponseWriter, r *http.Request) {
	machines, err := a.inventory.Authorized(r.Context())
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.writeJSON(w, machines)
}

// ListAllHandler serves every durable machine row.
func (a *API) ListAllHandler(w http.ResponseWriter, r *http.Request) {
	machines, err := a.inventory.All(r.Context())
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.writeJSON(w, machines)
}

// ListDisksHandler serves every disk with its owning machine.
func (a *API) ListDisksHandler(w http.ResponseWriter, r *http.Request) {
	disks, err := a.inventory.Disks(r.Context())
	if err != nil {
		a.serverError(w, err)
		return
	}
	a.writeJSON(w, disks)
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (a *API) serverError(w http.ResponseWriter, err error) {
	a.log.Error("inventory query failed", zap.Error(err))
	http.Error(w, "inventory query failed", http.StatusInternalServerError)
}
