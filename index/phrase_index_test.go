package index

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

func pron(freq uint32, keys ...string) model.Pronunciation {
	return model.Pronunciation{Keys: keys, Frequency: freq}
}

func TestPhraseIndex_AddAndLookup(t *testing.T) {
	pi := NewPhraseIndex()

	tokens, err := pi.AddPhrases([]model.PhraseItem{
		{Phrase: "你好", Frequency: 100, Pronunciations: []model.Pronunciation{pron(10, "ni", "hao")}},
		{Phrase: "你", Frequency: 50, Pronunciations: []model.Pronunciation{pron(10, "ni")}},
		{Phrase: "泥", Frequency: 5, Pronunciations: []model.Pronunciation{pron(10, "ni")}},
	})
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, model.FirstPhraseToken, tokens[0])

	pi.Mu.RLock()
	defer pi.Mu.RUnlock()

	assert.Equal(t, []model.Token{tokens[1], tokens[2]}, pi.Lookup([]string{"ni"}))
	assert.Equal(t, []model.Token{tokens[0]}, pi.Lookup([]string{"ni", "hao"}))
	assert.Empty(t, pi.Lookup([]string{"hao"}))
	assert.Equal(t, uint64(155), pi.TotalFrequency)

	item, ok := pi.Item(tokens[0])
	require.True(t, ok)
	assert.Equal(t, 2, item.Length, "length counts characters, not bytes")
}

func TestPhraseIndex_ReplaceKeepsTotalsConsistent(t *testing.T) {
	pi := NewPhraseIndex()
	_, err := pi.AddPhrases([]model.PhraseItem{
		{Token: 20, Phrase: "西安", Frequency: 30, Pronunciations: []model.Pronunciation{pron(1, "xi", "an")}},
	})
	require.NoError(t, err)

	_, err = pi.AddPhrases([]model.PhraseItem{
		{Token: 20, Phrase: "西安", Frequency: 40, Pronunciations: []model.Pronunciation{pron(1, "xian")}},
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(40), pi.TotalFrequency)
	assert.Empty(t, pi.Lookup([]string{"xi", "an"}))
	assert.Equal(t, []model.Token{20}, pi.Lookup([]string{"xian"}))
	assert.Equal(t, model.Token(21), pi.NextToken)
}

func TestPhraseIndex_RejectsInvalidItemsAtomically(t *testing.T) {
	pi := NewPhraseIndex()
	_, err := pi.AddPhrases([]model.PhraseItem{
		{Phrase: "好", Frequency: 1, Pronunciations: []model.Pronunciation{pron(1, "hao")}},
		{Phrase: "", Frequency: 1, Pronunciations: []model.Pronunciation{pron(1, "hao")}},
	})
	assert.Error(t, err)
	assert.Equal(t, 0, pi.Len(), "a rejected batch must not be partially applied")

	_, err = pi.AddPhrases([]model.PhraseItem{
		{Token: model.SentenceStart, Phrase: "好", Pronunciations: []model.Pronunciation{pron(1, "hao")}},
	})
	assert.Error(t, err, "reserved tokens cannot be assigned to phrases")
}

func TestPhraseIndex_TokenSpaceDoesNotWrap(t *testing.T) {
	pi := NewPhraseIndex()
	hao := []model.Pronunciation{pron(1, "hao")}

	_, err := pi.AddPhrases([]model.PhraseItem{{Token: ^model.Token(0), Phrase: "好", Pronunciations: hao}})
	assert.Error(t, err, "the largest token value is reserved")

	tokens, err := pi.AddPhrases([]model.PhraseItem{{Token: model.MaxPhraseToken, Phrase: "好", Pronunciations: hao}})
	require.NoError(t, err)
	assert.Equal(t, []model.Token{model.MaxPhraseToken}, tokens)

	_, err = pi.AddPhrases([]model.PhraseItem{
		{Token: 20, Phrase: "号", Pronunciations: hao},
		{Phrase: "豪", Pronunciations: hao},
	})
	assert.Error(t, err, "auto-assignment must not wrap into reserved tokens")
	assert.Equal(t, 1, pi.Len(), "a rejected batch must not be partially applied")
	assert.Equal(t, ^model.Token(0), pi.NextToken)

	pi.Mu.RLock()
	defer pi.Mu.RUnlock()
	_, ok := pi.Item(model.NullToken)
	assert.False(t, ok)
}

func TestPhraseIndex_GobRoundTrip(t *testing.T) {
	pi := NewPhraseIndex()
	_, err := pi.AddPhrases([]model.PhraseItem{
		{Phrase: "中国", Frequency: 7, Pronunciations: []model.Pronunciation{pron(3, "zhong", "guo")}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(pi))

	decoded := &PhraseIndex{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))

	assert.Equal(t, pi.Items, decoded.Items)
	assert.Equal(t, pi.Keys, decoded.Keys)
	assert.Equal(t, pi.TotalFrequency, decoded.TotalFrequency)
	assert.Equal(t, pi.NextToken, decoded.NextToken)
}
