// Package decoder finds the most plausible phrase sequence for a phonetic
// key matrix with a beam-limited dynamic program over a candidate lattice.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/config"
	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/internal/lattice"
	"github.com/gcbaptista/go-pinyin-engine/internal/matrix"
	"github.com/gcbaptista/go-pinyin-engine/internal/observe"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

// Options tunes one decode call.
type Options struct {
	BigramLambda    float64
	BeamWidth       int
	MaxPhraseLength int
	Timeout         time.Duration // zero means no deadline beyond ctx
}

// DefaultOptions returns the options used when a dictionary sets nothing.
func DefaultOptions() Options {
	return Options{
		BigramLambda:    config.DefaultBigramLambda,
		BeamWidth:       config.DefaultBeamWidth,
		MaxPhraseLength: config.DefaultMaxPhraseLength,
		Timeout:         config.DefaultDecodeTimeoutMs * time.Millisecond,
	}
}

// Validate rejects options that would make decoding meaningless.
func (o Options) Validate() error {
	if msg := config.ValidateLambda(o.BigramLambda); msg != "" {
		return internalErrors.NewValidationError("bigram_lambda", msg)
	}
	if o.BeamWidth < 1 {
		return internalErrors.NewValidationError("beam_width", fmt.Sprintf("must be at least 1, got %d", o.BeamWidth))
	}
	if o.MaxPhraseLength < 1 {
		return internalErrors.NewValidationError("max_phrase_length", fmt.Sprintf("must be at least 1, got %d", o.MaxPhraseLength))
	}
	if o.Timeout < 0 {
		return internalErrors.NewValidationError("timeout", "cannot be negative")
	}
	return nil
}

// Decoder runs decodes against views handed out by a ModelProvider. It
// holds no per-call state and is safe for concurrent use.
type Decoder struct {
	provider services.ModelProvider
	logger   *zap.Logger
	metrics  *observe.Metrics
}

// New creates a Decoder. metrics may be nil.
func New(provider services.ModelProvider, logger *zap.Logger, metrics *observe.Metrics) (*Decoder, error) {
	if provider == nil {
		return nil, fmt.Errorf("model provider cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{provider: provider, logger: logger, metrics: metrics}, nil
}

// spanPhrase is a phrase readable over one span, with the factors of its
// score that do not depend on the candidate being extended.
type spanPhrase struct {
	token         model.Token
	length        int
	pronunciation float64
	unigram       float64
}

// span groups the phrases readable over [start, end) with given keys.
type span struct {
	end     int
	keys    []string
	phrases []spanPhrase
}

// Decode returns the best phrase sequence covering the whole matrix.
// prefixes seed position 0; SentenceStart is used when none are given.
func (d *Decoder) Decode(ctx context.Context, m *matrix.Matrix, prefixes []model.Token, opts Options) (result model.MatchResult, err error) {
	if err := opts.Validate(); err != nil {
		return model.MatchResult{}, err
	}
	if m == nil || m.Size() < 2 {
		return model.MatchResult{}, internalErrors.NewValidationError("matrix", "must contain at least one syllable")
	}
	if len(prefixes) == 0 {
		prefixes = []model.Token{model.SentenceStart}
	}
	if slices.Contains(prefixes, model.NullToken) {
		return model.MatchResult{}, internalErrors.NewValidationError("prefixes", "the null token cannot seed a decode")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		d.metrics.RecordDecode(ctx, time.Since(start), outcome(err))
	}()

	nstep := m.Size()
	if !m.Covered() {
		return model.MatchResult{}, internalErrors.NewNoMatchError(nstep)
	}

	view, release := d.provider.Acquire()
	defer release()

	lat := lattice.New(nstep)
	for _, prefix := range prefixes {
		if err := lat.Seed(lattice.NewSeed(prefix)); err != nil {
			return model.MatchResult{}, err
		}
	}

	totalUnigram := view.TotalUnigramFrequency()
	if totalUnigram == 0 {
		d.logger.Debug("Phrase index has no unigram frequency; nothing can be decoded")
		return model.MatchResult{}, internalErrors.NewNoMatchError(nstep)
	}

	expanded := 0
	for i := 0; i < nstep-1; i++ {
		if err := ctx.Err(); err != nil {
			return model.MatchResult{}, timeoutError(err, i, nstep)
		}
		if lat.Len(i) == 0 {
			continue
		}

		spans := d.collectSpans(view, m, i, opts.MaxPhraseLength, totalUnigram)
		if len(spans) == 0 {
			continue
		}

		for _, idx := range lat.Beam(i, opts.BeamWidth) {
			if err := ctx.Err(); err != nil {
				return model.MatchResult{}, timeoutError(err, i, nstep)
			}
			cur := lat.At(i, idx)
			expanded += d.expand(view, lat, cur, i, idx, spans, opts.BigramLambda)
		}
	}
	d.metrics.RecordExpanded(ctx, expanded)

	final, ok := SelectFinal(lat.Candidates(nstep - 1))
	if !ok {
		return model.MatchResult{}, internalErrors.NewNoMatchError(nstep)
	}
	result = Backtrace(lat, nstep-1, final)

	d.logger.Debug("Decode finished",
		zap.Int("steps", nstep),
		zap.Int("expanded", expanded),
		zap.Int("phrases", len(result.Matches)),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

// collectSpans gathers the phrases readable over every span from pos,
// dropping those whose pronunciation or unigram probability is negligible.
func (d *Decoder) collectSpans(view services.LanguageModel, m *matrix.Matrix, pos, maxLen int, totalUnigram uint64) []span {
	var spans []span
	for _, s := range m.Spans(pos, maxLen) {
		tokens := view.Lookup(s.Keys)
		if len(tokens) == 0 {
			continue
		}
		sp := span{end: s.End, keys: s.Keys}
		for _, token := range tokens {
			item, ok := view.PhraseItem(token)
			if !ok {
				continue
			}
			pron := view.PronunciationProbability(m, pos, s.End, s.Keys, item)
			if negligible(pron) {
				continue
			}
			sp.phrases = append(sp.phrases, spanPhrase{
				token:         token,
				length:        item.Length,
				pronunciation: pron,
				unigram:       float64(view.UnigramFrequency(token)) / float64(totalUnigram),
			})
		}
		if len(sp.phrases) > 0 {
			spans = append(spans, sp)
		}
	}
	return spans
}

// expand inserts every extension of cur (held at (pos, idx)) into the
// lattice: bigram continuations first, then unigram readings, per span.
// It returns the number of candidates offered to the merge policy.
func (d *Decoder) expand(view services.LanguageModel, lat *lattice.Lattice, cur lattice.Candidate, pos, idx int, spans []span, bigramLambda float64) int {
	unigramLambda := 1 - bigramLambda
	contextTotal := view.ContextTotal(cur.LastToken())

	var continuations map[model.Token]uint32
	if contextTotal > 0 {
		continuations = make(map[model.Token]uint32)
		for next, count := range view.Continuations(cur.LastToken()) {
			continuations[next] = count
		}
	}

	offered := 0
	for _, sp := range spans {
		for _, p := range sp.phrases {
			count, seen := continuations[p.token]
			if !seen {
				continue
			}
			bigram := float64(count) / float64(contextTotal)
			if negligible(Interpolate(bigram, p.unigram, bigramLambda)) {
				continue
			}
			score := BigramScore(cur.Score, bigram, p.unigram, p.pronunciation, bigramLambda)
			if !finite(score) {
				continue
			}
			lat.Insert(sp.end, p.token, cur.Extend(p.token, p.length, score, pos, idx, sp.keys))
			offered++
		}

		for _, p := range sp.phrases {
			if negligible(p.unigram) {
				continue
			}
			score := UnigramScore(cur.Score, p.unigram, p.pronunciation, unigramLambda)
			if !finite(score) {
				continue
			}
			lat.Insert(sp.end, p.token, cur.Extend(p.token, p.length, score, pos, idx, sp.keys))
			offered++
		}
	}
	return offered
}

// SelectFinal picks the winning candidate of the last position: the
// shortest accumulated length, then the highest score. Exact ties keep the
// earlier candidate. This deliberately inverts the merge policy's length
// preference.
func SelectFinal(candidates []lattice.Candidate) (int, bool) {
	best := -1
	for i, c := range candidates {
		if best < 0 {
			best = i
			continue
		}
		b := candidates[best]
		if c.Length < b.Length || (c.Length == b.Length && c.Score > b.Score) {
			best = i
		}
	}
	return best, best >= 0
}

// Backtrace follows backpointers from (pos, idx) to a seed and returns the
// phrase sequence in input order.
func Backtrace(lat *lattice.Lattice, pos, idx int) model.MatchResult {
	var matches []model.Match
	c := lat.At(pos, idx)
	for !c.IsSeed() {
		matches = append(matches, model.Match{
			Token: c.LastToken(),
			Start: c.OriginPosition,
			End:   pos,
			Keys:  c.Keys,
		})
		pos, idx = c.OriginPosition, c.OriginIndex
		c = lat.At(pos, idx)
	}
	slices.Reverse(matches)
	return model.MatchResult{Prefix: c.LastToken(), Matches: matches}
}

func timeoutError(err error, pos, nstep int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w at position %d of %d: %w", internalErrors.ErrDecodeTimeout, pos, nstep, err)
	}
	return fmt.Errorf("decode cancelled at position %d of %d: %w", pos, nstep, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, internalErrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, internalErrors.ErrDecodeTimeout):
		return "timeout"
	case errors.Is(err, internalErrors.ErrInvalidInput):
		return "invalid"
	}
	return "error"
}
