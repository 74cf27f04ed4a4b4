package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type recordingSubmitter struct {
	mu     sync.Mutex
	topics []string
	fail   map[string]bool
}

func (r *recordingSubmitter) Submit(ctx context.Context, topic string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	if r.fail[topic] {
		return "", errors.New("job queue is full")
	}
	return "job-" + topic, nil
}

func TestService_TriggerNow(t *testing.T) {
	submitter := &recordingSubmitter{fail: map[string]bool{"space": true}}
	service := NewService(submitter, []string{"mars", "space", "ocean"}, arbor.NewLogger())

	err := service.TriggerNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `theme "space"`)

	assert.Equal(t, []string{"mars", "space", "ocean"}, submitter.topics)

	status := service.Status()
	require.NotNil(t, status.LastRun)
	assert.Contains(t, status.LastError, "job queue is full")
	assert.False(t, status.IsRunning)
}

func TestService_StartStop(t *testing.T) {
	service := NewService(&recordingSubmitter{}, []string{"mars"}, arbor.NewLogger())

	require.NoError(t, service.Start("0 */6 * * *"))
	assert.True(t, service.IsRunning())
	assert.Error(t, service.Start("0 */6 * * *"))

	status := service.Status()
	assert.Equal(t, "0 */6 * * *", status.Schedule)
	assert.NotNil(t, status.NextRun)

	require.NoError(t, service.Stop())
	assert.False(t, service.IsRunning())
	assert.NoError(t, service.Stop())
}

func TestService_StartInvalidExpression(t *testing.T) {
	service := NewService(&recordingSubmitter{}, []string{"mars"}, arbor.NewLogger())

	assert.Error(t, service.Start("not a cron"))
	assert.Error(t, service.Start(""))
	assert.False(t, service.IsRunning())
}
