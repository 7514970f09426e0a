package decoder

import (
	"context"
	"errors"
	"iter"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/internal/lattice"
	"github.com/gcbaptista/go-pinyin-engine/internal/matrix"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

const (
	tokNi    model.Token = 20
	tokHao   model.Token = 21
	tokNiHao model.Token = 22
	tokMa    model.Token = 23
)

// fakeModel is an in-memory LanguageModel with fixed pronunciation
// probabilities (1 unless overridden).
type fakeModel struct {
	items   map[model.Token]model.PhraseItem
	keys    map[string][]model.Token
	total   uint64
	bigrams map[model.Token]*model.SingleGram
	pron    map[model.Token]float64
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		items:   make(map[model.Token]model.PhraseItem),
		keys:    make(map[string][]model.Token),
		bigrams: make(map[model.Token]*model.SingleGram),
		pron:    make(map[model.Token]float64),
	}
}

// add registers phrases in ascending token order.
func (f *fakeModel) add(token model.Token, phrase string, freq uint32, keys ...string) {
	f.items[token] = model.NewPhraseItem(token, phrase, freq, model.Pronunciation{Keys: keys, Frequency: 1})
	key := model.JoinKeys(keys)
	f.keys[key] = append(f.keys[key], token)
	f.total += uint64(freq)
}

func (f *fakeModel) bigram(context, next model.Token, freq uint32) {
	g, ok := f.bigrams[context]
	if !ok {
		g = model.NewSingleGram()
		f.bigrams[context] = g
	}
	g.SetFrequency(next, freq)
	g.Total += freq
}

func (f *fakeModel) Acquire() (services.LanguageModel, func()) { return f, func() {} }

func (f *fakeModel) Lookup(keys []string) []model.Token { return f.keys[model.JoinKeys(keys)] }

func (f *fakeModel) PhraseItem(t model.Token) (model.PhraseItem, bool) {
	item, ok := f.items[t]
	return item, ok
}

func (f *fakeModel) UnigramFrequency(t model.Token) uint32 { return f.items[t].Frequency }

func (f *fakeModel) TotalUnigramFrequency() uint64 { return f.total }

func (f *fakeModel) Continuations(context model.Token) iter.Seq2[model.Token, uint32] {
	entries := f.bigrams[context].Entries()
	return func(yield func(model.Token, uint32) bool) {
		for _, e := range entries {
			if !yield(e.Token, e.Frequency) {
				return
			}
		}
	}
}

func (f *fakeModel) ContextTotal(context model.Token) uint64 {
	if g := f.bigrams[context]; g != nil {
		return uint64(g.Total)
	}
	return 0
}

func (f *fakeModel) PronunciationProbability(_ *matrix.Matrix, _, _ int, _ []string, item model.PhraseItem) float64 {
	if p, ok := f.pron[item.Token]; ok {
		return p
	}
	return 1
}

// niHaoModel reads "ni hao" as 你, 好 or 你好, with equal unigram frequencies.
func niHaoModel() *fakeModel {
	f := newFakeModel()
	f.add(tokNi, "你", 100, "ni")
	f.add(tokHao, "好", 100, "hao")
	f.add(tokNiHao, "你好", 100, "ni", "hao")
	f.add(tokMa, "吗", 100, "ma")
	return f
}

func mustMatrix(t *testing.T, syllables ...string) *matrix.Matrix {
	t.Helper()
	m, err := matrix.FromSyllables(syllables)
	require.NoError(t, err)
	return m
}

func newTestDecoder(t *testing.T, f *fakeModel) *Decoder {
	t.Helper()
	d, err := New(f, zap.NewNop(), nil)
	require.NoError(t, err)
	return d
}

func unigramOnly() Options {
	opts := DefaultOptions()
	opts.BigramLambda = 0
	return opts
}

func TestScoringExactness(t *testing.T) {
	got := UnigramScore(0, 0.5, 0.8, 0.3)
	want := math.Log(0.5 * 0.8 * 0.3)
	if got != want {
		t.Errorf("UnigramScore = %v, want exactly %v", got, want)
	}

	got = BigramScore(-1, 0.25, 0.5, 0.8, 0.6)
	want = -1 + math.Log(Interpolate(0.25, 0.5, 0.6)*0.8)
	if got != want {
		t.Errorf("BigramScore = %v, want exactly %v", got, want)
	}

	if got := Interpolate(1, 0, 1); got != 1 {
		t.Errorf("Interpolate with lambda 1 = %v, want 1", got)
	}
	if got := Interpolate(1, 0.25, 0); got != 0.25 {
		t.Errorf("Interpolate with lambda 0 = %v, want 0.25", got)
	}
}

func TestNegligible(t *testing.T) {
	assert.True(t, negligible(0))
	assert.True(t, negligible(epsilon/2))
	assert.True(t, negligible(math.NaN()))
	assert.False(t, negligible(epsilon))
	assert.False(t, negligible(0.5))
}

func TestSelectFinal(t *testing.T) {
	c := func(length int, score float64) lattice.Candidate {
		return lattice.Candidate{Length: length, Score: score}
	}
	tests := []struct {
		name       string
		candidates []lattice.Candidate
		want       int
		wantOK     bool
	}{
		{"empty", nil, -1, false},
		{"shorter wins over higher score", []lattice.Candidate{c(3, -5), c(2, -1)}, 1, true},
		{"shorter wins even with lower score", []lattice.Candidate{c(2, -9), c(3, -1)}, 0, true},
		{"equal length prefers higher score", []lattice.Candidate{c(2, -5), c(2, -1)}, 1, true},
		{"exact tie keeps earlier", []lattice.Candidate{c(2, -1), c(2, -1)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectFinal(tt.candidates)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SelectFinal() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDecode_UnigramPrefersFewerPhrases(t *testing.T) {
	d := newTestDecoder(t, niHaoModel())

	result, err := d.Decode(context.Background(), mustMatrix(t, "ni", "hao"), nil, unigramOnly())
	require.NoError(t, err)

	want := model.MatchResult{
		Prefix:  model.SentenceStart,
		Matches: []model.Match{{Token: tokNiHao, Start: 0, End: 2, Keys: []string{"ni", "hao"}}},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_BigramsSteerSegmentation(t *testing.T) {
	f := niHaoModel()
	f.bigram(model.SentenceStart, tokNi, 10)
	f.bigram(tokNi, tokHao, 10)
	d := newTestDecoder(t, f)

	opts := DefaultOptions()
	opts.BigramLambda = 0.9
	result, err := d.Decode(context.Background(), mustMatrix(t, "ni", "hao"), nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []model.Token{tokNi, tokHao}, result.Tokens())

}

func TestDecode_ResultTilesInput(t *testing.T) {
	d := newTestDecoder(t, niHaoModel())
	m := mustMatrix(t, "ni", "hao", "ma", "ni")

	result, err := d.Decode(context.Background(), m, nil, DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)

	pos := 0
	for _, match := range result.Matches {
		assert.Equal(t, pos, match.Start)
		assert.Greater(t, match.End, match.Start)
		pos = match.End
	}
	assert.Equal(t, m.Size()-1, pos)
}

func TestDecode_Deterministic(t *testing.T) {
	f := niHaoModel()
	f.add(24, "妮", 100, "ni")
	f.add(25, "号", 100, "hao")
	f.bigram(tokNi, tokMa, 3)
	f.bigram(tokHao, tokMa, 3)
	d := newTestDecoder(t, f)
	m := mustMatrix(t, "ni", "hao", "ma")

	opts := DefaultOptions()
	opts.BeamWidth = 2
	first, err := d.Decode(context.Background(), m, nil, opts)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := d.Decode(context.Background(), m, nil, opts)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("decode %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestDecode_PrefixSelection(t *testing.T) {
	f := niHaoModel()
	f.bigram(7, tokNiHao, 50)
	d := newTestDecoder(t, f)

	result, err := d.Decode(context.Background(), mustMatrix(t, "ni", "hao"), []model.Token{model.SentenceStart, 7}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, model.Token(7), result.Prefix)
	assert.Equal(t, []model.Token{tokNiHao}, result.Tokens())
}

func TestDecode_NegligiblePronunciationDropped(t *testing.T) {
	f := niHaoModel()
	f.pron[tokNiHao] = epsilon / 4
	d := newTestDecoder(t, f)

	result, err := d.Decode(context.Background(), mustMatrix(t, "ni", "hao"), nil, unigramOnly())
	require.NoError(t, err)
	assert.Equal(t, []model.Token{tokNi, tokHao}, result.Tokens())
}

func TestExpand_ZeroCountContinuationKeepsBigramPath(t *testing.T) {
	f := niHaoModel()
	f.bigram(model.SentenceStart, tokNi, 0)
	f.bigram(model.SentenceStart, tokHao, 10)
	d := newTestDecoder(t, f)

	m := mustMatrix(t, "ni")
	lat := lattice.New(m.Size())
	require.NoError(t, lat.Seed(lattice.NewSeed(model.SentenceStart)))
	spans := d.collectSpans(f, m, 0, DefaultOptions().MaxPhraseLength, f.total)
	require.Len(t, spans, 1)

	offered := d.expand(f, lat, lat.At(0, 0), 0, 0, spans, 0.5)
	assert.Equal(t, 2, offered, "the interpolated estimate is not negligible")

	require.Equal(t, 1, lat.Len(1))
	want := BigramScore(0, 0, 0.25, 1, 0.5)
	assert.Equal(t, want, lat.At(1, 0).Score)
	assert.Equal(t, UnigramScore(0, 0.25, 1, 0.5), want)
}

func TestDecode_UncoveredMatrixIsNoMatch(t *testing.T) {
	d := newTestDecoder(t, niHaoModel())
	m := matrix.New(4)
	require.NoError(t, m.AddSyllable(0, 1, "ni"))
	require.NoError(t, m.AddSyllable(2, 3, "hao"))

	_, err := d.Decode(context.Background(), m, nil, DefaultOptions())
	assert.True(t, errors.Is(err, internalErrors.ErrNotFound))
}

func TestDecode_NoMatch(t *testing.T) {
	d := newTestDecoder(t, niHaoModel())

	_, err := d.Decode(context.Background(), mustMatrix(t, "ni", "xyz"), nil, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalErrors.ErrNotFound))

	var noMatch *internalErrors.NoMatchError
	require.True(t, errors.As(err, &noMatch))
	assert.Equal(t, 3, noMatch.Steps)
}

func TestDecode_EmptyModelIsNoMatch(t *testing.T) {
	d := newTestDecoder(t, newFakeModel())

	_, err := d.Decode(context.Background(), mustMatrix(t, "ni"), nil, DefaultOptions())
	assert.True(t, errors.Is(err, internalErrors.ErrNotFound))
}

func TestDecode_InvalidInput(t *testing.T) {
	d := newTestDecoder(t, niHaoModel())
	m := mustMatrix(t, "ni")

	tests := []struct {
		name     string
		m        *matrix.Matrix
		prefixes []model.Token
		mutate   func(*Options)
	}{
		{"lambda above one", m, nil, func(o *Options) { o.BigramLambda = 1.5 }},
		{"negative lambda", m, nil, func(o *Options) { o.BigramLambda = -0.1 }},
		{"NaN lambda", m, nil, func(o *Options) { o.BigramLambda = math.NaN() }},
		{"zero beam", m, nil, func(o *Options) { o.BeamWidth = 0 }},
		{"nil matrix", nil, nil, func(*Options) {}},
		{"empty matrix", matrix.New(1), nil, func(*Options) {}},
		{"null prefix", m, []model.Token{model.NullToken}, func(*Options) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			_, err := d.Decode(context.Background(), tt.m, tt.prefixes, opts)
			assert.True(t, errors.Is(err, internalErrors.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestDecode_DeadlineExceeded(t *testing.T) {
	d := newTestDecoder(t, niHaoModel())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := d.Decode(ctx, mustMatrix(t, "ni", "hao"), nil, DefaultOptions())
	assert.True(t, errors.Is(err, internalErrors.ErrDecodeTimeout), "got %v", err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDecode_Cancelled(t *testing.T) {
	d := newTestDecoder(t, niHaoModel())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Decode(ctx, mustMatrix(t, "ni", "hao"), nil, DefaultOptions())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, internalErrors.ErrDecodeTimeout))
}

func TestDecode_NarrowBeamStillCovers(t *testing.T) {
	d := newTestDecoder(t, niHaoModel())
	opts := DefaultOptions()
	opts.BeamWidth = 1

	result, err := d.Decode(context.Background(), mustMatrix(t, "ni", "hao", "ma"), nil, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Matches[len(result.Matches)-1].End)
}
