// Package lexicon layers the user statistics of a dictionary over its
// system phrase index and bigram store, and hands out consistent read
// views for decoding.
package lexicon

import (
	"iter"
	"sync"

	"github.com/gcbaptista/go-pinyin-engine/index"
	"github.com/gcbaptista/go-pinyin-engine/internal/matrix"
	"github.com/gcbaptista/go-pinyin-engine/internal/userstats"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
	"github.com/gcbaptista/go-pinyin-engine/store"
)

// Lexicon is the ModelProvider of one dictionary.
type Lexicon struct {
	phrases *index.PhraseIndex
	bigrams *store.BigramStore
	user    *userstats.Store
}

var _ services.ModelProvider = (*Lexicon)(nil)

// New creates a Lexicon. user may be nil for a dictionary without learning.
func New(phrases *index.PhraseIndex, bigrams *store.BigramStore, user *userstats.Store) *Lexicon {
	return &Lexicon{phrases: phrases, bigrams: bigrams, user: user}
}

// Acquire read-locks the phrase index, the bigram store and the user
// snapshot until release is called. Writers must take at most one of
// these locks at a time.
func (l *Lexicon) Acquire() (services.LanguageModel, func()) {
	l.phrases.Mu.RLock()
	l.bigrams.Mu.RLock()
	if l.user != nil {
		l.user.Mu.RLock()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if l.user != nil {
				l.user.Mu.RUnlock()
			}
			l.bigrams.Mu.RUnlock()
			l.phrases.Mu.RUnlock()
		})
	}
	return &view{l: l}, release
}

// view implements services.LanguageModel. Its methods assume the locks
// taken by Acquire are held.
type view struct {
	l *Lexicon
}

func (v *view) Lookup(keys []string) []model.Token {
	return v.l.phrases.Lookup(keys)
}

func (v *view) PhraseItem(token model.Token) (model.PhraseItem, bool) {
	return v.l.phrases.Item(token)
}

func (v *view) UnigramFrequency(token model.Token) uint32 {
	item, ok := v.l.phrases.Item(token)
	if !ok {
		return 0
	}
	freq := uint64(item.Frequency)
	if v.l.user != nil {
		freq += v.l.user.UnigramDelta(token)
	}
	return saturate(freq)
}

func (v *view) TotalUnigramFrequency() uint64 {
	total := v.l.phrases.TotalFrequency
	if v.l.user != nil {
		total += v.l.user.TotalUnigramDelta()
	}
	return total
}

// merged returns the system and user records of context summed.
func (v *view) merged(context model.Token) *model.SingleGram {
	system := v.l.bigrams.Gram(context)
	var user *model.SingleGram
	if v.l.user != nil {
		user = v.l.user.Gram(context)
	}
	switch {
	case user == nil:
		return system
	case system == nil:
		return user
	}
	return system.Merge(user)
}

func (v *view) Continuations(context model.Token) iter.Seq2[model.Token, uint32] {
	gram := v.merged(context)
	return func(yield func(model.Token, uint32) bool) {
		for _, e := range gram.Entries() {
			if !yield(e.Token, e.Frequency) {
				return
			}
		}
	}
}

func (v *view) ContextTotal(context model.Token) uint64 {
	var total uint64
	if g := v.l.bigrams.Gram(context); g != nil {
		total += uint64(g.Total)
	}
	if v.l.user != nil {
		if g := v.l.user.Gram(context); g != nil {
			total += uint64(g.Total)
		}
	}
	return total
}

// PronunciationProbability is the share of the phrase's observed readings,
// system and learned, that used keys. The matrix only locates the span;
// fuzzy readings are not scored.
func (v *view) PronunciationProbability(_ *matrix.Matrix, _, _ int, keys []string, item model.PhraseItem) float64 {
	key := model.JoinKeys(keys)
	freq, total := item.PronunciationFrequency(key)
	num := uint64(freq)
	if v.l.user != nil {
		delta, deltaTotal := v.l.user.PronunciationDelta(item.Token, key)
		num += delta
		total += deltaTotal
	}
	if total == 0 {
		return 0
	}
	return float64(num) / float64(total)
}

func saturate(v uint64) uint32 {
	if v > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}
