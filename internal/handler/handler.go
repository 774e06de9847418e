package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"zwavenet/internal/hass"
	"zwavenet/internal/poller"
	"zwavenet/internal/service"
)

// refreshTimeout bounds a manually triggered poll cycle
const refreshTimeout = 2 * time.Minute

// TopologyHandler handles topology API requests
type TopologyHandler struct {
	svc     *service.TopologyService
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewTopologyHandler creates a new topology handler.
// A nil limiter leaves manual refreshes unthrottled.
func NewTopologyHandler(svc *service.TopologyService, limiter *rate.Limiter, log zerolog.Logger) *TopologyHandler {
	return &TopologyHandler{
		svc:     svc,
		limiter: limiter,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ListNodes returns the node array of the published snapshot
func (h *TopologyHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.Nodes()
	if err != nil {
		h.writeServiceError(w, "Failed to list nodes", err)
		return
	}

	h.writeJSON(w, nodes, http.StatusOK)
}

// GetNode returns a single node
func (h *TopologyHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, "Invalid node ID", "Node ID must be an integer", http.StatusBadRequest)
		return
	}

	node, err := h.svc.Node(id)
	if err != nil {
		h.writeServiceError(w, "Failed to get node", err)
		return
	}

	h.writeJSON(w, node, http.StatusOK)
}

// GetSnapshot returns the full published snapshot
func (h *TopologyHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot()
	if err != nil {
		h.writeServiceError(w, "Failed to get snapshot", err)
		return
	}

	h.writeJSON(w, snap, http.StatusOK)
}

// ListSnapshots returns stored snapshot summaries, newest first
func (h *TopologyHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, "Invalid limit", "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, "Failed to list snapshots", err)
		return
	}

	h.writeJSON(w, list, http.StatusOK)
}

// GetStates proxies the hub's REST state list
func (h *TopologyHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.States(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to fetch states", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write states")
	}
}

// GetStatus returns the poller status
func (h *TopologyHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Status(), http.StatusOK)
}

// TriggerRefresh runs one poll cycle and returns its summary
func (h *TopologyHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		h.writeError(w, "Too many refresh requests", "", http.StatusTooManyRequests)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	snap, err := h.svc.Refresh(ctx)
	if err != nil {
		h.writeServiceError(w, "Refresh failed", err)
		return
	}

	h.writeJSON(w, poller.Summarize(snap), http.StatusOK)
}

// Export renders the published snapshot through the codec named in the path
func (h *TopologyHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")

	data, contentType, err := h.svc.Export(format)
	if err != nil {
		h.writeServiceError(w, "Failed to export "+format, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=topology."+format)
	if _, err := w.Write(data); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write export")
	}
}

// Health reports liveness
func (h *TopologyHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Register mounts the API routes on mux
func (h *TopologyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/nodes", h.ListNodes)
	mux.HandleFunc("GET /api/nodes/{id}", h.GetNode)
	mux.HandleFunc("GET /api/snapshot", h.GetSnapshot)
	mux.HandleFunc("GET /api/snapshots", h.ListSnapshots)
	mux.HandleFunc("GET /api/states", h.GetStates)
	mux.HandleFunc("GET /api/status", h.GetStatus)
	mux.HandleFunc("POST /api/refresh", h.TriggerRefresh)
	mux.HandleFunc("GET /api/export/{format}", h.Export)
	mux.HandleFunc("GET /healthz", h.Health)
}

// Helper methods

// statusFor maps service and hub errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNoSnapshot), errors.Is(err, service.ErrStatesUnavailable), errors.Is(err, poller.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrNodeNotFound), errors.Is(err, service.ErrUnknownFormat):
		return http.StatusNotFound
	case errors.Is(err, hass.ErrAuth), errors.Is(err, hass.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *TopologyHandler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.log.Error().Err(err).Msg(msg)
	}
	h.writeError(w, msg, err.Error(), status)
}

func (h *TopologyHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON")
	}
}

func (h *TopologyHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode error response")
	}
}
