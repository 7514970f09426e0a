// Package testing provides utilities and helpers for testing the pinyin engine.
package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-pinyin-engine/config"
	"github.com/gcbaptista/go-pinyin-engine/internal/engine"
	"github.com/gcbaptista/go-pinyin-engine/internal/matrix"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

// CreateTestEngine creates an engine in a temporary directory. The engine
// is closed when the test ends.
func CreateTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.NewEngine(engine.Options{
		DataDir:          t.TempDir(),
		BatchConcurrency: 2,
		MaxWorkers:       2,
	})
	t.Cleanup(func() {
		assert.NoError(t, eng.Close())
	})
	return eng
}

// Pronunciation builds a pronunciation with frequency 1.
func Pronunciation(keys ...string) model.Pronunciation {
	return model.Pronunciation{Keys: keys, Frequency: 1}
}

// TestPhrases are the phrases loaded by CreateTestDictionary. Tokens are
// assigned in order from model.FirstPhraseToken.
var TestPhrases = []model.PhraseItem{
	model.NewPhraseItem(0, "你", 100, Pronunciation("ni")),
	model.NewPhraseItem(0, "好", 100, Pronunciation("hao")),
	model.NewPhraseItem(0, "你好", 100, Pronunciation("ni", "hao")),
	model.NewPhraseItem(0, "泥", 100, Pronunciation("ni")),
	model.NewPhraseItem(0, "吗", 50, Pronunciation("ma")),
}

// CreateTestDictionary creates a dictionary with default settings and the
// TestPhrases loaded.
func CreateTestDictionary(t *testing.T, eng *engine.Engine, name string) services.DictionaryAccessor {
	t.Helper()
	require.NoError(t, eng.CreateDictionary(config.DictionarySettings{Name: name}), "Failed to create test dictionary")

	dict, err := eng.GetDictionary(name)
	require.NoError(t, err, "Failed to get dictionary accessor")

	phrases := make([]model.PhraseItem, len(TestPhrases))
	copy(phrases, TestPhrases)
	tokens, err := dict.AddPhrases(phrases)
	require.NoError(t, err, "Failed to add test phrases")
	require.Len(t, tokens, len(TestPhrases))

	return dict
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
	}
}

// WaitForJobCompletion polls a job until it reaches a terminal status or
// times out, and returns it.
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not finish within %v", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled:
				return job
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID,
						job.Progress.Current,
						job.Progress.Total,
						job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedDictionary string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed: %s", job.Error)
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedDictionary, job.DictionaryName, "Job dictionary name should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// DecodeTestCase is one expected conversion of a pinyin input.
type DecodeTestCase struct {
	Name         string
	Input        string
	ExpectedText string
	ValidateFunc func(t *testing.T, result services.DecodeResult)
}

// RunDecodeTests runs a suite of decode tests against a dictionary.
func RunDecodeTests(t *testing.T, dict services.DictionaryAccessor, tests []DecodeTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			m, err := matrix.Parse(tt.Input)
			require.NoError(t, err)

			result, err := dict.Decode(context.Background(), services.DecodeRequest{Matrix: m})
			require.NoError(t, err, "Decode should not fail")
			assert.Equal(t, tt.ExpectedText, result.Text)

			if tt.ValidateFunc != nil {
				tt.ValidateFunc(t, result)
			}
		})
	}
}
