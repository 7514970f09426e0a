package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// waitForStatus polls until the job reaches a finished status.
func waitForStatus(t *testing.T, manager *Manager, jobID string) *model.Job {
	t.Helper()
	var job *model.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = manager.GetJob(jobID)
		require.NoError(t, err)
		return job.CompletedAt != nil
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestJobManager_CreateJob(t *testing.T) {
	manager := NewManager(2, nil)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeTrain, "test-dict", map[string]string{
		"operation": "test",
	})
	if jobID == "" {
		t.Error("Expected non-empty job ID")
	}

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get created job: %v", err)
	}
	if job.Type != model.JobTypeTrain {
		t.Errorf("Expected job type %s, got %s", model.JobTypeTrain, job.Type)
	}
	if job.Status != model.JobStatusPending {
		t.Errorf("Expected job status %s, got %s", model.JobStatusPending, job.Status)
	}
	if job.DictionaryName != "test-dict" {
		t.Errorf("Expected dictionary name 'test-dict', got %s", job.DictionaryName)
	}
}

func TestJobManager_ExecuteJob(t *testing.T) {
	manager := NewManager(2, nil)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeTrain, "test-dict", nil)
	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		manager.UpdateJobProgress(jobID, 50, 100, "Halfway done")
		manager.UpdateJobProgress(jobID, 100, 100, "Completed")
		return nil
	})
	require.NoError(t, err)

	job := waitForStatus(t, manager, jobID)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 100, job.Progress.Current)
	assert.Equal(t, 100.0, job.Progress.GetProgressPercentage())
	assert.NotNil(t, job.StartedAt)

	err = manager.ExecuteJob(jobID, func(context.Context, *model.Job) error { return nil })
	assert.Error(t, err, "a finished job cannot run again")
}

func TestJobManager_FailedJob(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeImportPhrases, "test-dict", nil)
	require.NoError(t, manager.ExecuteJob(jobID, func(context.Context, *model.Job) error {
		return errors.New("boom")
	}))

	job := waitForStatus(t, manager, jobID)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.Error)

	metrics := manager.GetMetrics()
	assert.Equal(t, int64(1), metrics.JobsFailed)
	assert.Equal(t, 0.0, manager.GetJobSuccessRate())
}

func TestJobManager_UnknownJob(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	_, err := manager.GetJob("missing")
	assert.True(t, errors.Is(err, internalErrors.ErrJobNotFound))
	err = manager.ExecuteJob("missing", func(context.Context, *model.Job) error { return nil })
	assert.True(t, errors.Is(err, internalErrors.ErrJobNotFound))
}

func TestJobManager_StopCancelsRunningJobs(t *testing.T) {
	manager := NewManager(1, nil)
	manager.Start()

	started := make(chan struct{})
	running := manager.CreateJob(model.JobTypeTrain, "test-dict", nil)
	require.NoError(t, manager.ExecuteJob(running, func(ctx context.Context, _ *model.Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started

	queued := manager.CreateJob(model.JobTypeTrain, "test-dict", nil)
	require.NoError(t, manager.ExecuteJob(queued, func(context.Context, *model.Job) error { return nil }))

	manager.Stop()

	job, err := manager.GetJob(running)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)

	job, err = manager.GetJob(queued)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, job.Status)

	late := manager.CreateJob(model.JobTypeTrain, "test-dict", nil)
	assert.Error(t, manager.ExecuteJob(late, func(context.Context, *model.Job) error { return nil }))
}

func TestJobManager_ListJobs(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	first := manager.CreateJob(model.JobTypeTrain, "a", nil)
	manager.CreateJob(model.JobTypeTrain, "b", nil)
	second := manager.CreateJob(model.JobTypeImportBigrams, "a", nil)

	jobs := manager.ListJobs("a", nil)
	require.Len(t, jobs, 2)
	ids := []string{jobs[0].ID, jobs[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)

	pending := model.JobStatusPending
	assert.Len(t, manager.ListJobs("a", &pending), 2)
	completed := model.JobStatusCompleted
	assert.Empty(t, manager.ListJobs("a", &completed))
}
