package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/jobs"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/storage/memory"
)

// stubSubmitter creates jobs in store without running them
type stubSubmitter struct {
	store *memory.JobStore
	err   error
	got   []string
}

func (s *stubSubmitter) Submit(ctx context.Context, topic string) (string, error) {
	s.got = append(s.got, topic)
	if s.err != nil {
		return "", s.err
	}
	return s.store.Create(ctx, topic)
}

func newTestJobHandler() (*JobHandler, *memory.JobStore, *stubSubmitter) {
	logger := arbor.NewLogger()
	store := memory.NewJobStore(logger)
	submitter := &stubSubmitter{store: store}
	return NewJobHandler(submitter, store, logger), store, submitter
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestScrapeHandler_Accepted(t *testing.T) {
	handler, store, submitter := newTestJobHandler()

	req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(`{"theme":"  mars "}`))
	rec := httptest.NewRecorder()
	handler.ScrapeHandler(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Job initiated successfully", body["message"])
	jobID, _ := body["jobId"].(string)
	require.NotEmpty(t, jobID)

	job, err := store.GetStatus(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, "mars", job.Topic)
	assert.Equal(t, []string{"mars"}, submitter.got)
}

func TestScrapeHandler_LongTheme(t *testing.T) {
	handler, store, _ := newTestJobHandler()
	theme := strings.Repeat("a", 1000)

	payload, err := json.Marshal(map[string]string{"theme": theme})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ScrapeHandler(rec, httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(string(payload))))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID, _ := decodeBody(t, rec)["jobId"].(string)
	job, err := store.GetStatus(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, theme, job.Topic)
}

func TestScrapeHandler_InvalidTheme(t *testing.T) {
	bodies := []string{
		``,
		`not json`,
		`{}`,
		`{"theme":""}`,
		`{"theme":"   "}`,
		`{"theme":42}`,
	}

	for _, payload := range bodies {
		t.Run(payload, func(t *testing.T) {
			handler, _, submitter := newTestJobHandler()

			req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			handler.ScrapeHandler(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, "A valid theme is required", body["message"])
			assert.Empty(t, submitter.got)
		})
	}
}

func TestScrapeHandler_SubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"queue full", jobs.ErrQueueFull, http.StatusServiceUnavailable, "Job queue is full, please try again later"},
		{"other", errors.New("store unavailable"), http.StatusInternalServerError, "Failed to initiate job: store unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, submitter := newTestJobHandler()
			submitter.err = tt.err

			req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(`{"theme":"mars"}`))
			rec := httptest.NewRecorder()
			handler.ScrapeHandler(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["message"])
		})
	}
}

func TestScrapeHandler_MethodNotAllowed(t *testing.T) {
	handler, _, _ := newTestJobHandler()

	rec := httptest.NewRecorder()
	handler.ScrapeHandler(rec, httptest.NewRequest(http.MethodGet, "/scrape", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestStatusHandler(t *testing.T) {
	handler, store, _ := newTestJobHandler()
	ctx := context.Background()

	jobID, err := store.Create(ctx, "mars")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/status/"+jobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, jobID, data["id"])
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "mars", data["theme"])
	assert.NotContains(t, data, "completedAt")

	rec = httptest.NewRecorder()
	handler.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/status/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", decodeBody(t, rec)["message"])

	rec = httptest.NewRecorder()
	handler.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/status/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Job ID is required", decodeBody(t, rec)["message"])
}

func TestResultsHandler(t *testing.T) {
	handler, store, _ := newTestJobHandler()
	ctx := context.Background()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ResultsHandler(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/results/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job not found", decodeBody(t, rec)["message"])

	rec = get("/results/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	jobID, err := store.Create(ctx, "mars")
	require.NoError(t, err)
	_, err = store.SetStatus(ctx, jobID, models.JobStatusProcessing, "Enriching books with AI analysis...")
	require.NoError(t, err)

	rec = get("/results/" + jobID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Job is not yet completed. Current status: processing", decodeBody(t, rec)["message"])

	_, err = store.SetStatus(ctx, jobID, models.JobStatusCompleted, "Job completed successfully")
	require.NoError(t, err)

	rec = get("/results/" + jobID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Results not found for the completed job", decodeBody(t, rec)["message"])

	require.NoError(t, store.PutResult(ctx, jobID, models.JobResult{
		JobID:     jobID,
		Topic:     "mars",
		Books:     []models.ScoredBook{models.NewScoredBook(models.Book{Title: "The Martian", CurrentPrice: 10}, "Survival.", 80)},
		Timestamp: time.Now().UTC(),
		Metadata:  models.ResultMetadata{TotalBooks: 1, MostRelevantBook: "The Martian", BestValueBook: "The Martian"},
	}))

	rec = get("/results/" + jobID)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, jobID, data["jobId"])
	assert.Equal(t, "mars", data["theme"])
	books := data["books"].([]interface{})
	require.Len(t, books, 1)
	assert.Equal(t, 8.0, books[0].(map[string]interface{})["valueScore"])
	assert.Equal(t, "The Martian", data["metadata"].(map[string]interface{})["bestValueBook"])
}

func TestAPIHandler(t *testing.T) {
	handler := NewAPIHandler(arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Service is healthy", body["message"])

	rec = httptest.NewRecorder()
	handler.VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "version")

	rec = httptest.NewRecorder()
	handler.HealthHandler(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type stubScheduler struct {
	triggered int
	err       error
}

func (s *stubScheduler) Start(cronExpr string) error { return nil }
func (s *stubScheduler) Stop() error                 { return nil }
func (s *stubScheduler) IsRunning() bool             { return true }

func (s *stubScheduler) Status() interfaces.ScheduleStatus {
	return interfaces.ScheduleStatus{Schedule: "0 * * * *", Themes: []string{"mars"}}
}

func (s *stubScheduler) TriggerNow(ctx context.Context) error {
	s.triggered++
	return s.err
}

func TestSchedulerHandler(t *testing.T) {
	scheduler := &stubScheduler{}
	handler := NewSchedulerHandler(scheduler, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/scheduler", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "0 * * * *", data["schedule"])
	assert.Equal(t, true, data["enabled"])

	rec = httptest.NewRecorder()
	handler.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, scheduler.triggered)

	disabled := NewSchedulerHandler(nil, arbor.NewLogger())
	rec = httptest.NewRecorder()
	disabled.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
