/*
handlers.go - HTTP API handlers for the allocation engine

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine
  and run store.

ENDPOINTS:
  Runs:
    POST   /api/runs       Run the pipeline on an uploaded snapshot
    GET    /api/runs       List stored runs (headers only)
    GET    /api/runs/{id}  Fetch a stored run with its rows

  Health:
    GET    /api/health     Liveness probe

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid JSON, structurally unrecognized source
  - 404: Unknown run ID
  - 500: Store failures

SECURITY NOTE:
  No authentication or authorization here; session handling lives in
  the surrounding web application.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/allocation-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  engine.RunStore
	Engine *engine.Engine
	Logger *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewHandler creates a handler wired to the given store and engine.
func NewHandler(store engine.RunStore, eng *engine.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:  store,
		Engine: eng,
		Logger: logger,
		now:    time.Now,
	}
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// CreateRun executes the pipeline on the posted snapshot and stores
// the completed run.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	result, err := h.Engine.Run(r.Context(), req.ToInput())
	if err != nil {
		if engine.IsStructural(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("allocation run failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "allocation run failed")
		return
	}

	run := engine.AllocationRun{
		ID:        uuid.NewString(),
		CreatedAt: h.now().UTC(),
		Rows:      result.Rows,
		Summary:   result.Summary,
	}
	if err := h.Store.SaveRun(r.Context(), run); err != nil {
		h.Logger.Error("failed to save run", zap.String("run_id", run.ID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to save run")
		return
	}

	h.writeJSON(w, http.StatusCreated, toRunDTO(&run))
}

// ListRuns returns headers for all stored runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	headers, err := h.Store.ListRuns(r.Context())
	if err != nil {
		h.Logger.Error("failed to list runs", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	dtos := make([]RunHeaderDTO, len(headers))
	for i, hd := range headers {
		dtos[i] = toRunHeaderDTO(hd)
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns a stored run with its allocation table.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Store.GetRun(r.Context(), id)
	if errors.Is(err, engine.ErrRunNotFound) {
		h.writeError(w, http.StatusNotFound, "run not found: "+id)
		return
	}
	if err != nil {
		h.Logger.Error("failed to fetch run", zap.String("run_id", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to fetch run")
		return
	}

	h.writeJSON(w, http.StatusOK, toRunDTO(run))
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}
