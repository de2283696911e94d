// Package admin serves the /admin control plane: state reset and seeding,
// fault injection, request inspection, webhook flushing, simulated time and
// runtime configuration.
package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Eblazecode/Agrolinkernew/pkg/store"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
)

// StateStore is the state the admin plane can dump, replace and reset.
type StateStore interface {
	// Snapshot returns the full state as a JSON-serializable value.
	Snapshot() any
	// LoadState replaces the full state from a JSON body.
	LoadState(data []byte) error
	Reset()
}

// WebhookFlusher delivers pending webhooks on demand.
type WebhookFlusher interface {
	FlushWebhooks(ctx context.Context) error
}

// ConfigStore exposes runtime settings. *twincore.Twin satisfies it.
type ConfigStore interface {
	GetConfig() map[string]any
	UpdateConfig(updates map[string]any) error
}

type resetter interface{ Reset() }

// Handler provides the admin endpoints.
type Handler struct {
	state   StateStore
	flusher WebhookFlusher
	config  ConfigStore
	mw      *twincore.Middleware
	clock   *store.Clock
	started time.Time
}

func NewHandler(state StateStore, mw *twincore.Middleware, clock *store.Clock) *Handler {
	return &Handler{
		state:   state,
		mw:      mw,
		clock:   clock,
		started: time.Now(),
	}
}

// SetFlusher enables POST /admin/webhooks/flush. A flusher that also has a
// Reset method is cleared by POST /admin/reset.
func (h *Handler) SetFlusher(f WebhookFlusher) {
	h.flusher = f
}

// SetConfig enables GET and PATCH /admin/config.
func (h *Handler) SetConfig(c ConfigStore) {
	h.config = c
}

// Routes mounts the admin endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/reset", h.handleReset)
		r.Get("/state", h.handleGetState)
		r.Post("/state", h.handleLoadState)
		r.Post("/fault/*", h.handleInjectFault)
		r.Delete("/fault/*", h.handleRemoveFault)
		r.Get("/faults", h.handleListFaults)
		r.Get("/requests", h.handleGetRequests)
		r.Post("/webhooks/flush", h.handleFlushWebhooks)
		r.Post("/time/advance", h.handleTimeAdvance)
		r.Get("/time", h.handleGetTime)
		r.Get("/config", h.handleGetConfig)
		r.Patch("/config", h.handleUpdateConfig)
		r.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.state.Reset()
	h.mw.ReqLog.Clear()
	h.mw.Faults.Reset()
	h.mw.Idempotent.Reset()
	if h.clock != nil {
		h.clock.Reset()
	}
	if rs, ok := h.flusher.(resetter); ok {
		rs.Reset()
	}
	twincore.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *Handler) handleLoadState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}
	if err := h.state.LoadState(body); err != nil {
		twincore.Error(w, http.StatusBadRequest, "failed to load state: "+err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

// faultPath turns the wildcard into the request path the fault applies to,
// so POST /admin/fault/v1/cart/checkout targets /v1/cart/checkout.
func faultPath(r *http.Request) string {
	return "/" + strings.Trim(chi.URLParam(r, "*"), "/")
}

func (h *Handler) handleInjectFault(w http.ResponseWriter, r *http.Request) {
	endpoint := faultPath(r)
	if endpoint == "/" {
		twincore.Error(w, http.StatusBadRequest, "fault path is required")
		return
	}

	var fault twincore.FaultConfig
	if err := json.NewDecoder(r.Body).Decode(&fault); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid fault config: "+err.Error())
		return
	}
	if fault.Rate < 0 || fault.Rate > 1 {
		twincore.Error(w, http.StatusBadRequest, "rate must be between 0.0 and 1.0")
		return
	}
	h.mw.Faults.Set(endpoint, fault)
	twincore.JSON(w, http.StatusOK, map[string]any{
		"status":   "injected",
		"endpoint": endpoint,
		"fault":    fault,
	})
}

func (h *Handler) handleRemoveFault(w http.ResponseWriter, r *http.Request) {
	endpoint := faultPath(r)
	if !h.mw.Faults.Remove(endpoint) {
		twincore.Error(w, http.StatusNotFound, "no fault registered for "+endpoint)
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"status": "removed", "endpoint": endpoint})
}

func (h *Handler) handleListFaults(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.mw.Faults.All())
}

func (h *Handler) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.mw.ReqLog.Entries())
}

func (h *Handler) handleFlushWebhooks(w http.ResponseWriter, r *http.Request) {
	if h.flusher == nil {
		twincore.JSON(w, http.StatusOK, map[string]string{"status": "no webhooks configured"})
		return
	}
	if err := h.flusher.FlushWebhooks(r.Context()); err != nil {
		twincore.Error(w, http.StatusBadGateway, "flush failed: "+err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

func (h *Handler) handleTimeAdvance(w http.ResponseWriter, r *http.Request) {
	if h.clock == nil {
		twincore.Error(w, http.StatusBadRequest, "simulated clock not configured")
		return
	}

	var req struct {
		Duration string `json:"duration"` // e.g. "24h", "8760h"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid duration: "+err.Error())
		return
	}
	if d < 0 {
		twincore.Error(w, http.StatusBadRequest, "simulated time cannot move backwards")
		return
	}

	h.clock.Advance(d)
	twincore.JSON(w, http.StatusOK, map[string]any{
		"status":    "advanced",
		"duration":  d.String(),
		"offset":    h.clock.Offset().String(),
		"simulated": h.clock.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleGetTime(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"real": time.Now().Format(time.RFC3339)}
	if h.clock != nil {
		body["simulated"] = h.clock.Now().Format(time.RFC3339)
		body["offset"] = h.clock.Offset().String()
		body["frozen"] = h.clock.Frozen()
	}
	twincore.JSON(w, http.StatusOK, body)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if h.config == nil {
		twincore.Error(w, http.StatusNotFound, "runtime config not available")
		return
	}
	twincore.JSON(w, http.StatusOK, h.config.GetConfig())
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	if h.config == nil {
		twincore.Error(w, http.StatusNotFound, "runtime config not available")
		return
	}
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}
	if err := h.config.UpdateConfig(updates); err != nil {
		twincore.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, h.config.GetConfig())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
