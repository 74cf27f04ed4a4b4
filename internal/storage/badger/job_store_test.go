package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

func newTestStore(t *testing.T) *JobStore {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger)
	require.NoError(t, err)
	store := NewJobStore(db, logger)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestJobStore_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "mars")
	require.NoError(t, err)

	job, err := store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "mars", job.Topic)
	assert.Nil(t, job.CompletedAt)

	job, err = store.SetStatus(ctx, id, models.JobStatusProcessing, "Starting the web scraping process")
	require.NoError(t, err)
	assert.Equal(t, "Starting the web scraping process", job.Message)

	_, err = store.SetStatus(ctx, id, models.JobStatusCompleted, "Job completed successfully")
	require.NoError(t, err)

	job, err = store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)

	_, err = store.SetStatus(ctx, id, models.JobStatusFailed, "late failure")
	assert.ErrorIs(t, err, interfaces.ErrJobTerminal)

	job, err = store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, "Job completed successfully", job.Message)
}

func TestJobStore_CreateRetriesCollidingIDs(t *testing.T) {
	store := newTestStore(t)
	ids := []string{"fixed", "fixed", "fresh"}
	store.newID = func() string {
		next := ids[0]
		ids = ids[1:]
		return next
	}

	ctx := context.Background()
	first, err := store.Create(ctx, "a")
	require.NoError(t, err)
	second, err := store.Create(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, "fixed", first)
	assert.Equal(t, "fresh", second)
}

func TestJobStore_UnknownID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)

	_, err = store.SetStatus(ctx, "missing", models.JobStatusProcessing, "")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)

	_, err = store.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrResultNotFound)
}

func TestJobStore_Results(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "mars")
	require.NoError(t, err)

	_, err = store.GetResult(ctx, id)
	assert.ErrorIs(t, err, interfaces.ErrResultNotFound)

	book := models.NewScoredBook(models.Book{
		Title:         "Red Planet",
		Author:        "Jane Doe",
		CurrentPrice:  15,
		OriginalPrice: models.Float64(20),
	}, "A trip to Mars.", 90)

	require.NoError(t, store.PutResult(ctx, id, models.JobResult{
		JobID:     id,
		Topic:     "mars",
		Books:     []models.ScoredBook{book},
		Timestamp: time.Now().UTC(),
		Metadata: models.ResultMetadata{
			TotalBooks:       1,
			AveragePrice:     15,
			AverageRelevance: 90,
			MostRelevantBook: "Red Planet",
			BestValueBook:    "Red Planet",
		},
	}))

	got, err := store.GetResult(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "Red Planet", got.Books[0].Title)
	require.NotNil(t, got.Books[0].DiscountAmount)
	assert.InDelta(t, 5.0, *got.Books[0].DiscountAmount, 1e-9)
	assert.Equal(t, "Red Planet", got.Metadata.BestValueBook)

	// Empty result round-trips as an empty list
	require.NoError(t, store.PutResult(ctx, id, models.JobResult{JobID: id, Metadata: models.EmptyMetadata()}))
	got, err = store.GetResult(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, got.Books)
	assert.Empty(t, got.Books)
	assert.Equal(t, models.NoneTitle, got.Metadata.MostRelevantBook)
}

func TestJobStore_ConcurrentJobs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const jobs = 20
	var wg sync.WaitGroup
	ids := make([]string, jobs)
	errs := make(chan error, jobs*3)

	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.Create(ctx, "theme")
			if err != nil {
				errs <- err
				return
			}
			ids[i] = id
			if _, err := store.SetStatus(ctx, id, models.JobStatusProcessing, "working"); err != nil {
				errs <- err
			}
			if _, err := store.SetStatus(ctx, id, models.JobStatusFailed, "Job failed: boom"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	for _, id := range ids {
		job, err := store.GetStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusFailed, job.Status)
	}
}

func TestJobStore_IDsDoNotShareLocks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	held, err := store.Create(ctx, "mars")
	require.NoError(t, err)
	free, err := store.Create(ctx, "ocean")
	require.NoError(t, err)

	mu := store.lockFor(held)
	mu.Lock()

	heldDone := make(chan struct{})
	go func() {
		defer close(heldDone)
		_, _ = store.SetStatus(ctx, held, models.JobStatusProcessing, "working")
	}()

	_, err = store.SetStatus(ctx, free, models.JobStatusProcessing, "working")
	require.NoError(t, err)

	select {
	case <-heldDone:
		t.Fatal("update for a locked id must wait")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Unlock()
	select {
	case <-heldDone:
	case <-time.After(2 * time.Second):
		t.Fatal("update did not resume after unlock")
	}

	job, err := store.GetStatus(ctx, held)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, job.Status)
}
