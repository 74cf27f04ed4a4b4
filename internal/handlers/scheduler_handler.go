package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
)

// SchedulerHandler exposes the periodic theme submission
type SchedulerHandler struct {
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// NewSchedulerHandler creates a handler; scheduler may be nil when scheduling is disabled
func NewSchedulerHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// StatusHandler returns the schedule snapshot
// GET /api/scheduler
func (h *SchedulerHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		WriteData(w, map[string]interface{}{"enabled": false})
		return
	}

	status := h.scheduler.Status()
	WriteData(w, map[string]interface{}{
		"enabled":   h.scheduler.IsRunning(),
		"schedule":  status.Schedule,
		"themes":    status.Themes,
		"lastRun":   status.LastRun,
		"nextRun":   status.NextRun,
		"isRunning": status.IsRunning,
		"lastError": status.LastError,
	})
}

// TriggerHandler submits every scheduled theme now
// POST /api/scheduler
func (h *SchedulerHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		WriteError(w, http.StatusConflict, "Scheduler is not enabled")
		return
	}

	if err := h.scheduler.TriggerNow(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Manual scheduler trigger finished with errors")
		WriteError(w, http.StatusServiceUnavailable, "Some scheduled themes could not be submitted")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": "Scheduled themes submitted",
	})
}
