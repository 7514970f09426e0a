// Package engine manages named pinyin dictionaries on disk and serves
// decode and training requests against them.
package engine

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/config"
	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/internal/jobs"
	"github.com/gcbaptista/go-pinyin-engine/internal/observe"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

// Options configures an Engine.
type Options struct {
	DataDir          string
	Defaults         config.DictionarySettings // applied to dictionaries created without explicit settings
	BatchConcurrency int
	MaxWorkers       int
	Logger           *zap.Logger
	Metrics          *observe.Metrics // may be nil
}

// Engine manages multiple dictionaries.
// It implements the services.DictionaryManagerWithAsyncTraining interface.
type Engine struct {
	mu           sync.RWMutex
	dictionaries map[string]*DictionaryInstance
	dataDir      string
	defaults     config.DictionarySettings
	batchLimit   int
	logger       *zap.Logger
	metrics      *observe.Metrics
	jobManager   *jobs.Manager
}

var _ services.DictionaryManagerWithAsyncTraining = (*Engine)(nil)

// NewEngine creates an engine and loads every dictionary found in the data
// directory.
func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BatchConcurrency < 1 {
		opts.BatchConcurrency = 1
	}
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}

	eng := &Engine{
		dictionaries: make(map[string]*DictionaryInstance),
		dataDir:      opts.DataDir,
		defaults:     opts.Defaults,
		batchLimit:   opts.BatchConcurrency,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		jobManager:   jobs.NewManager(opts.MaxWorkers, opts.Logger.Named("jobs")),
	}
	eng.jobManager.Start()
	eng.loadDictionariesFromDisk()
	return eng
}

// Close stops background jobs and releases every dictionary.
func (e *Engine) Close() error {
	e.jobManager.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for name, instance := range e.dictionaries {
		if err := instance.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dictionary %s: %w", name, err))
		}
	}
	e.dictionaries = make(map[string]*DictionaryInstance)
	return errors.Join(errs...)
}

// GetDictionary retrieves a dictionary by its name.
func (e *Engine) GetDictionary(name string) (services.DictionaryAccessor, error) {
	instance, err := e.instance(name)
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (e *Engine) instance(name string) (*DictionaryInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.dictionaries[name]
	if !exists {
		return nil, internalErrors.NewDictionaryNotFoundError(name)
	}
	return instance, nil
}

// ListDictionaries returns the names of all loaded dictionaries, sorted.
func (e *Engine) ListDictionaries() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.dictionaries))
}

// GetJob retrieves a job by its ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs lists the jobs of a dictionary, optionally filtered by status.
func (e *Engine) ListJobs(dictionaryName string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(dictionaryName, status)
}

// GetJobMetrics returns job performance metrics.
func (e *Engine) GetJobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}

// GetCurrentWorkload returns the number of jobs currently running.
func (e *Engine) GetCurrentWorkload() int64 {
	return e.jobManager.GetCurrentWorkload()
}

func ensureDataDir(dir string, logger *zap.Logger) {
	if err := os.MkdirAll(dir, dataDirPerm); err != nil {
		logger.Warn("Could not create data directory; new dictionaries will not persist",
			zap.String("data_dir", dir), zap.Error(err))
	}
}
