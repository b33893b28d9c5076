// Package api exposes the HTTP trigger endpoint and ambient health/info/
// metrics endpoints over a chi router.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/lxp-recflow/engine/internal/idempotency"
	"github.com/lxp-recflow/engine/internal/jobqueue"
	"github.com/lxp-recflow/engine/internal/logging"
	"github.com/lxp-recflow/engine/internal/metrics"
	"github.com/lxp-recflow/engine/internal/validation"
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

// Handler holds the dependencies the trigger endpoint needs to accept a
// batch and hand it off to the job queue without blocking on processing.
type Handler struct {
	Queue       jobqueue.Queue
	Idempotency *idempotency.Store
	DefaultTopK int
	startTime   time.Time
}

func NewHandler(queue jobqueue.Queue, store *idempotency.Store, defaultTopK int) *Handler {
	return &Handler{Queue: queue, Idempotency: store, DefaultTopK: defaultTopK, startTime: time.Now()}
}

// Trigger handles POST /api/v1/engine/process.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithRequestID(r.Context(), uuid.NewString())

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "PARSING_ERROR", "malformed request body", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusUnprocessableEntity, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	ctx = logging.WithBatch(ctx, req.BatchID)

	claimed, err := h.Idempotency.Claim(ctx, req.BatchID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("idempotency claim failed")
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to record batch", nil)
		return
	}
	if !claimed {
		metrics.JobsDeduped.Inc()
		respondJSON(w, http.StatusAccepted, TriggerResponse{BatchID: req.BatchID, Status: "ACCEPTED"})
		return
	}

	job := jobqueue.Job{
		BatchID:         req.BatchID,
		UsersFilePath:   req.UsersFilePath,
		CoursesFilePath: req.CoursesFilePath,
		TopK:            req.TopK,
		CallbackURL:     req.CallbackURL,
	}
	if err := h.Queue.Publish(ctx, job); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to enqueue job")
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to enqueue batch", nil)
		return
	}

	metrics.JobsAccepted.Inc()
	respondJSON(w, http.StatusAccepted, TriggerResponse{BatchID: req.BatchID, Status: "ACCEPTED"})
}

// Live handles GET /api/v1/health/live: the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /api/v1/health/ready: the idempotency store answers a
// read. The job queue and object storage are not probed.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, _, err := h.Idempotency.Status(ctx, "__readiness_probe__"); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Info handles GET /api/v1/info.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, InfoResponse{Service: "recflow-engine", Version: Version})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	respondJSON(w, status, ErrorResponse{ErrorCode: code, ErrorMessage: message, Details: details})
}
