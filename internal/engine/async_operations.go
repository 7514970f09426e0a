package engine

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/store"
)

// TrainAsync trains a committed result in the background and returns the job ID.
func (e *Engine) TrainAsync(name string, result model.MatchResult) (string, error) {
	instance, err := e.instance(name)
	if err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeTrain, name, map[string]string{
		"operation": "train",
		"pairs":     strconv.Itoa(len(result.Matches)),
	})

	err = e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		e.jobManager.UpdateJobProgress(job.ID, 0, len(result.Matches), "Training started")
		if err := instance.Train(ctx, result); err != nil {
			return fmt.Errorf("failed to train dictionary '%s': %w", name, err)
		}
		e.jobManager.UpdateJobProgress(job.ID, len(result.Matches), len(result.Matches), "Training committed")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start train job: %w", err)
	}
	return jobID, nil
}

// AddPhrasesAsync imports phrases in the background, persists the
// dictionary, and returns the job ID.
func (e *Engine) AddPhrasesAsync(name string, items []model.PhraseItem) (string, error) {
	instance, err := e.instance(name)
	if err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeImportPhrases, name, map[string]string{
		"operation":    "import_phrases",
		"phrase_count": strconv.Itoa(len(items)),
	})

	err = e.jobManager.ExecuteJob(jobID, func(_ context.Context, job *model.Job) error {
		e.jobManager.UpdateJobProgress(job.ID, 0, len(items), "Starting phrase import")
		if _, err := instance.AddPhrases(items); err != nil {
			return fmt.Errorf("failed to add phrases to dictionary '%s': %w", name, err)
		}
		e.jobManager.UpdateJobProgress(job.ID, len(items), len(items), "Phrases imported")
		return e.persistAfterImport(name)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start import phrases job: %w", err)
	}
	return jobID, nil
}

// AddBigramsAsync imports system bigrams in the background, persists the
// dictionary, and returns the job ID.
func (e *Engine) AddBigramsAsync(name string, entries []store.BigramEntry) (string, error) {
	instance, err := e.instance(name)
	if err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeImportBigrams, name, map[string]string{
		"operation":    "import_bigrams",
		"bigram_count": strconv.Itoa(len(entries)),
	})

	err = e.jobManager.ExecuteJob(jobID, func(_ context.Context, job *model.Job) error {
		e.jobManager.UpdateJobProgress(job.ID, 0, len(entries), "Starting bigram import")
		if err := instance.AddBigrams(entries); err != nil {
			return fmt.Errorf("failed to add bigrams to dictionary '%s': %w", name, err)
		}
		e.jobManager.UpdateJobProgress(job.ID, len(entries), len(entries), "Bigrams imported")
		return e.persistAfterImport(name)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start import bigrams job: %w", err)
	}
	return jobID, nil
}

func (e *Engine) persistAfterImport(name string) error {
	if err := e.PersistDictionaryData(name); err != nil {
		return fmt.Errorf("failed to persist dictionary '%s': %w", name, err)
	}
	e.logger.Debug("Dictionary persisted after import", zap.String("dictionary", name))
	return nil
}
