package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-pinyin-engine/config"
	"github.com/gcbaptista/go-pinyin-engine/index"
	"github.com/gcbaptista/go-pinyin-engine/internal/decoder"
	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/internal/lexicon"
	"github.com/gcbaptista/go-pinyin-engine/internal/observe"
	"github.com/gcbaptista/go-pinyin-engine/internal/training"
	"github.com/gcbaptista/go-pinyin-engine/internal/userstats"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
	"github.com/gcbaptista/go-pinyin-engine/store"
)

// instanceOptions carries the engine-wide dependencies of an instance.
type instanceOptions struct {
	logger     *zap.Logger
	metrics    *observe.Metrics
	batchLimit int
}

func (e *Engine) instanceOptions() instanceOptions {
	return instanceOptions{logger: e.logger, metrics: e.metrics, batchLimit: e.batchLimit}
}

// DictionaryInstance holds all components and services of one dictionary.
// It implements the services.DictionaryAccessor interface.
type DictionaryInstance struct {
	settingsMu sync.RWMutex
	settings   config.DictionarySettings

	PhraseIndex *index.PhraseIndex
	BigramStore *store.BigramStore
	UserStats   *userstats.Store

	decoder    *decoder.Decoder
	trainer    *training.Trainer
	logger     *zap.Logger
	batchLimit int
}

var _ services.DictionaryAccessor = (*DictionaryInstance)(nil)

// NewDictionaryInstance creates an empty dictionary whose user statistics
// live under dir.
func NewDictionaryInstance(dir string, settings config.DictionarySettings, opts instanceOptions) (*DictionaryInstance, error) {
	return newDictionaryInstance(dir, settings, index.NewPhraseIndex(), store.NewBigramStore(), opts)
}

func newDictionaryInstance(dir string, settings config.DictionarySettings, phrases *index.PhraseIndex, bigrams *store.BigramStore, opts instanceOptions) (*DictionaryInstance, error) {
	if settings.Name == "" {
		return nil, fmt.Errorf("dictionary name cannot be empty in settings")
	}
	logger := opts.logger.With(zap.String("dictionary", settings.Name))

	user, err := userstats.Open(filepath.Join(dir, userStatsFile), logger)
	if err != nil {
		return nil, err
	}

	dec, err := decoder.New(lexicon.New(phrases, bigrams, user), logger, opts.metrics)
	if err != nil {
		_ = user.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &DictionaryInstance{
		settings:    settings,
		PhraseIndex: phrases,
		BigramStore: bigrams,
		UserStats:   user,
		decoder:     dec,
		trainer:     training.New(user, logger, opts.metrics),
		logger:      logger,
		batchLimit:  max(opts.batchLimit, 1),
	}, nil
}

// Settings returns the configuration settings for this dictionary.
func (d *DictionaryInstance) Settings() config.DictionarySettings {
	d.settingsMu.RLock()
	defer d.settingsMu.RUnlock()
	return d.settings
}

func (d *DictionaryInstance) setSettings(settings config.DictionarySettings) {
	d.settingsMu.Lock()
	defer d.settingsMu.Unlock()
	d.settings = settings
}

// AddPhrases imports phrase items into the system phrase index.
func (d *DictionaryInstance) AddPhrases(items []model.PhraseItem) ([]model.Token, error) {
	tokens, err := d.PhraseIndex.AddPhrases(items)
	if err != nil {
		return nil, internalErrors.NewValidationError("phrases", err.Error())
	}
	return tokens, nil
}

// AddBigrams imports system bigram counts.
func (d *DictionaryInstance) AddBigrams(entries []store.BigramEntry) error {
	if err := d.BigramStore.AddBigrams(entries); err != nil {
		return internalErrors.NewValidationError("bigrams", err.Error())
	}
	return nil
}

// decodeOptions resolves the options of req against the current settings.
func (d *DictionaryInstance) decodeOptions(req services.DecodeRequest) decoder.Options {
	settings := d.Settings()
	opts := decoder.Options{
		BigramLambda:    settings.Lambda(),
		BeamWidth:       settings.BeamWidth,
		MaxPhraseLength: settings.MaxPhraseLength,
		Timeout:         settings.DecodeTimeout(),
	}
	if req.BigramLambda != nil {
		opts.BigramLambda = *req.BigramLambda
	}
	if req.BeamWidth != 0 {
		opts.BeamWidth = req.BeamWidth
	}
	return opts
}

// Decode finds the best phrase sequence for req and resolves its text.
func (d *DictionaryInstance) Decode(ctx context.Context, req services.DecodeRequest) (services.DecodeResult, error) {
	start := time.Now()
	result, err := d.decoder.Decode(ctx, req.Matrix, req.Prefixes, d.decodeOptions(req))
	if err != nil {
		return services.DecodeResult{}, err
	}

	phrases := make([]services.DecodedPhrase, len(result.Matches))
	var text strings.Builder
	d.PhraseIndex.Mu.RLock()
	for i, m := range result.Matches {
		item, _ := d.PhraseIndex.Item(m.Token)
		phrases[i] = services.DecodedPhrase{Match: m, Phrase: item.Phrase}
		text.WriteString(item.Phrase)
	}
	d.PhraseIndex.Mu.RUnlock()

	return services.DecodeResult{
		Result:  result,
		Phrases: phrases,
		Text:    text.String(),
		Took:    time.Since(start).Milliseconds(),
	}, nil
}

// DecodeBatch decodes reqs in parallel, each in its own lattice. The i-th
// result and error belong to the i-th request.
func (d *DictionaryInstance) DecodeBatch(ctx context.Context, reqs []services.DecodeRequest) ([]services.DecodeResult, []error) {
	results := make([]services.DecodeResult, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(d.batchLimit)
	for i, req := range reqs {
		g.Go(func() error {
			results[i], errs[i] = d.Decode(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

// Train reinforces a committed result. Every matched token must be a phrase
// of this dictionary.
func (d *DictionaryInstance) Train(ctx context.Context, result model.MatchResult) error {
	d.PhraseIndex.Mu.RLock()
	for i, m := range result.Matches {
		if _, ok := d.PhraseIndex.Item(m.Token); !ok {
			d.PhraseIndex.Mu.RUnlock()
			return internalErrors.NewValidationError("matches", fmt.Sprintf("match %d uses unknown token %d", i, m.Token))
		}
	}
	d.PhraseIndex.Mu.RUnlock()

	return d.trainer.Train(ctx, result)
}

// Stats summarizes the system and learned statistics of the dictionary.
func (d *DictionaryInstance) Stats() model.DictionaryStats {
	d.PhraseIndex.Mu.RLock()
	phraseCount := len(d.PhraseIndex.Items)
	keyCount := len(d.PhraseIndex.Keys)
	systemTotal := d.PhraseIndex.TotalFrequency
	d.PhraseIndex.Mu.RUnlock()

	userDelta := d.UserStats.UnigramTotal()
	return model.DictionaryStats{
		DictionaryName:        d.Settings().Name,
		PhraseCount:           phraseCount,
		PhoneticKeyCount:      keyCount,
		TotalUnigramFrequency: systemTotal + userDelta,
		SystemBigramContexts:  d.BigramStore.Len(),
		UserBigramContexts:    d.UserStats.Contexts(),
		UserUnigramDelta:      userDelta,
	}
}

// Close releases the user statistics database.
func (d *DictionaryInstance) Close() error {
	return d.UserStats.Close()
}
