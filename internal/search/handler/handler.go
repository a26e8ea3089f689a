// Package handler exposes the resolution pipeline over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"deepsearch/internal/platform/middleware"
	"deepsearch/internal/search/models"
	dErrors "deepsearch/pkg/domain-errors"
	"deepsearch/pkg/platform/httputil"
)

// Service defines the search operations the handler depends on.
type Service interface {
	Start(ctx context.Context, input models.SearchInput) (string, error)
	Status(ctx context.Context, jobID string) (*models.Job, error)
	SubmitAnswers(ctx context.Context, jobID string, hints models.SearchInput) (*models.Job, error)
	ChooseCandidate(ctx context.Context, jobID string, index int) (*models.Job, error)
}

// Handler wires search endpoints to the search service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a search handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts search endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/search/start", h.HandleStart)
	r.Get("/search/{job_id}", h.HandleStatus)
	r.Post("/search/{job_id}/answers", h.HandleAnswers)
	r.Post("/search/{job_id}/choose", h.HandleChoose)
}

// StartRequest is the POST /search/start payload. All fields are optional;
// the pipeline works with whatever identifiers it gets.
type StartRequest struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Username    string `json:"username,omitempty"`
	Location    string `json:"location,omitempty"`
	ContextText string `json:"context_text,omitempty"`
}

func (r StartRequest) input() models.SearchInput {
	return models.SearchInput{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Username:    r.Username,
		Location:    r.Location,
		ContextText: r.ContextText,
	}
}

func (r StartRequest) empty() bool {
	return strings.TrimSpace(r.Name) == "" &&
		strings.TrimSpace(r.Email) == "" &&
		strings.TrimSpace(r.Phone) == "" &&
		strings.TrimSpace(r.Username) == "" &&
		strings.TrimSpace(r.Location) == "" &&
		strings.TrimSpace(r.ContextText) == ""
}

// StartResponse acknowledges an accepted job.
type StartResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ChooseRequest selects one candidate by its index in the job's current
// candidate list.
type ChooseRequest struct {
	CandidateIndex int `json:"candidate_index"`
}

// HandleStart handles POST /search/start requests.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeJSON[StartRequest](w, r)
	if !ok {
		return
	}
	if req.empty() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "at least one search field is required"))
		return
	}

	jobID, err := h.service.Start(ctx, req.input())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start search job",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "search job accepted",
		"request_id", requestID,
		"job_id", jobID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusAccepted, StartResponse{
		JobID:  jobID,
		Status: string(models.StatusQueued),
	})
}

// HandleStatus handles GET /search/{job_id} requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	job, err := h.service.Status(ctx, jobID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

// HandleAnswers handles POST /search/{job_id}/answers requests.
func (h *Handler) HandleAnswers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	jobID := chi.URLParam(r, "job_id")

	req, ok := httputil.DecodeJSON[StartRequest](w, r)
	if !ok {
		return
	}

	job, err := h.service.SubmitAnswers(ctx, jobID, req.input())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to apply answers",
			"request_id", requestID,
			"job_id", jobID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "answers applied",
		"request_id", requestID,
		"job_id", jobID,
	)
	httputil.WriteJSON(w, http.StatusOK, job)
}

// HandleChoose handles POST /search/{job_id}/choose requests.
func (h *Handler) HandleChoose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	jobID := chi.URLParam(r, "job_id")

	req, ok := httputil.DecodeJSON[ChooseRequest](w, r)
	if !ok {
		return
	}

	job, err := h.service.ChooseCandidate(ctx, jobID, req.CandidateIndex)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to choose candidate",
			"request_id", requestID,
			"job_id", jobID,
			"candidate_index", req.CandidateIndex,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "candidate chosen",
		"request_id", requestID,
		"job_id", jobID,
		"candidate_index", req.CandidateIndex,
	)
	httputil.WriteJSON(w, http.StatusOK, job)
}
