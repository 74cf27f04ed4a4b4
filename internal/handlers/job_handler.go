package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/jobs"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

const maxScrapeBody = 1 << 20

// JobSubmitter queues a discovery job for a theme
type JobSubmitter interface {
	Submit(ctx context.Context, topic string) (string, error)
}

// ScrapeRequest is the body of POST /scrape
type ScrapeRequest struct {
	Theme string `json:"theme" validate:"required"`
}

// JobHandler serves job submission, status and results
type JobHandler struct {
	submitter JobSubmitter
	store     interfaces.JobStore
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(submitter JobSubmitter, store interfaces.JobStore, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		submitter: submitter,
		store:     store,
		validate:  validator.New(),
		logger:    logger,
	}
}

// ScrapeHandler starts a discovery job
// POST /scrape {"theme": "..."}
func (h *JobHandler) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxScrapeBody)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "A valid theme is required")
		return
	}
	req.Theme = strings.TrimSpace(req.Theme)
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "A valid theme is required")
		return
	}

	jobID, err := h.submitter.Submit(r.Context(), req.Theme)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrEmptyTopic):
			WriteError(w, http.StatusBadRequest, "A valid theme is required")
		case errors.Is(err, jobs.ErrQueueFull):
			h.logger.Warn().Str("theme", req.Theme).Str("job_id", jobID).Msg("Job rejected, queue is full")
			WriteError(w, http.StatusServiceUnavailable, "Job queue is full, please try again later")
		default:
			h.logger.Error().Err(err).Str("theme", req.Theme).Msg("Failed to initiate job")
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to initiate job: %s", err.Error()))
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": "Job initiated successfully",
		"jobId":   jobID,
	})
}

// StatusHandler returns the job status record
// GET /status/{jobId}
func (h *JobHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathParam(r, "/status")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, ok := h.lookup(w, r, jobID)
	if !ok {
		return
	}

	WriteData(w, job)
}

// ResultsHandler returns the result of a completed job
// GET /results/{jobId}
func (h *JobHandler) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathParam(r, "/results")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, ok := h.lookup(w, r, jobID)
	if !ok {
		return
	}
	if job.Status != models.JobStatusCompleted {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Job is not yet completed. Current status: %s", job.Status))
		return
	}

	result, err := h.store.GetResult(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrResultNotFound) {
			WriteError(w, http.StatusNotFound, "Results not found for the completed job")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job results")
		WriteError(w, http.StatusInternalServerError, "Failed to get job results")
		return
	}

	WriteData(w, result)
}

// lookup writes the error response itself when the job cannot be returned
func (h *JobHandler) lookup(w http.ResponseWriter, r *http.Request, jobID string) (models.Job, bool) {
	job, err := h.store.GetStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return models.Job{}, false
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job status")
		WriteError(w, http.StatusInternalServerError, "Failed to get job status")
		return models.Job{}, false
	}
	return job, true
}
