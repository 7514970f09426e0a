// Package training folds a committed phrase sequence back into the user
// statistics of a dictionary.
package training

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/internal/observe"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

// Reinforcement constants.
const (
	// InitialSeed is the increment of a context's first observed continuation.
	InitialSeed uint32 = 69
	// ExpandFactor grows the increment on every further observation.
	ExpandFactor uint32 = 2
	// UnigramFactor scales the unigram frequency increment.
	UnigramFactor uint32 = 7
	// PinyinFactor scales the pronunciation increment.
	PinyinFactor uint32 = 1
	// CeilingSeed caps the increment.
	CeilingSeed uint32 = 22080
)

// NextSeed returns the increment applied when a continuation already
// counted existing times is observed again. A context never seen before
// (isNew) starts at InitialSeed.
func NextSeed(existing uint32, isNew bool) uint32 {
	if isNew {
		return InitialSeed
	}
	seed := max(existing, InitialSeed)
	if seed > CeilingSeed/ExpandFactor {
		return CeilingSeed
	}
	return min(seed*ExpandFactor, CeilingSeed)
}

// Trainer applies committed results to a TrainingStore.
type Trainer struct {
	store   services.TrainingStore
	logger  *zap.Logger
	metrics *observe.Metrics
}

var _ services.Trainer = (*Trainer)(nil)

// New creates a Trainer. metrics may be nil.
func New(store services.TrainingStore, logger *zap.Logger, metrics *observe.Metrics) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{store: store, logger: logger, metrics: metrics}
}

// Train reinforces every consecutive token pair of result, starting with
// (Prefix, first match). Each pair commits in its own transaction; on the
// first failure the pair is rolled back and a *errors.TrainingError is
// returned, leaving earlier pairs committed.
func (t *Trainer) Train(ctx context.Context, result model.MatchResult) error {
	if len(result.Matches) == 0 {
		return nil
	}
	if result.Prefix == model.NullToken {
		return internalErrors.NewValidationError("prefix", "the null token cannot be trained")
	}

	prev := result.Prefix
	for i, m := range result.Matches {
		if err := ctx.Err(); err != nil {
			return internalErrors.NewTrainingError(i, prev, m.Token, err)
		}
		if err := t.trainPair(ctx, prev, m); err != nil {
			t.metrics.RecordTrainingPair(ctx, false)
			t.logger.Warn("Training pair failed",
				zap.Int("pair", i),
				zap.Uint32("prev", uint32(prev)),
				zap.Uint32("cur", uint32(m.Token)),
				zap.Error(err))
			return internalErrors.NewTrainingError(i, prev, m.Token, err)
		}
		t.metrics.RecordTrainingPair(ctx, true)
		prev = m.Token
	}

	t.logger.Debug("Training committed", zap.Int("pairs", len(result.Matches)))
	return nil
}

func (t *Trainer) trainPair(ctx context.Context, prev model.Token, cur model.Match) (err error) {
	if cur.Token == model.NullToken {
		return fmt.Errorf("match uses the null token")
	}

	tx, err := t.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				t.logger.Error("Failed to roll back training pair", zap.Error(rbErr))
			}
		}
	}()

	gram, err := tx.LoadOrCreateGram(prev)
	if err != nil {
		return fmt.Errorf("load gram: %w", err)
	}
	existing, seen := gram.Frequency(cur.Token)
	seed := NextSeed(existing, !seen)

	gram.Total = model.AddSaturating(gram.Total, seed)
	gram.SetFrequency(cur.Token, model.AddSaturating(existing, seed))
	if err = tx.StoreGram(prev, gram); err != nil {
		return fmt.Errorf("store gram: %w", err)
	}
	if err = tx.IncreasePronunciation(cur.Token, cur.Keys, seed*PinyinFactor); err != nil {
		return fmt.Errorf("increase pronunciation: %w", err)
	}
	if err = tx.AddUnigramFrequency(cur.Token, seed*UnigramFactor); err != nil {
		return fmt.Errorf("add unigram frequency: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
