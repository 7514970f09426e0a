package store

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

func TestBigramStore_AddBigramsAccumulates(t *testing.T) {
	bs := NewBigramStore()
	require.NoError(t, bs.AddBigrams([]BigramEntry{
		{Context: 20, Next: 21, Frequency: 3},
		{Context: 20, Next: 22, Frequency: 1},
		{Context: 20, Next: 21, Frequency: 2},
	}))

	gram := bs.Gram(20)
	require.NotNil(t, gram)
	freq, ok := gram.Frequency(21)
	assert.True(t, ok)
	assert.Equal(t, uint32(5), freq)
	assert.Equal(t, uint32(6), gram.Total)
	assert.Equal(t, []model.GramEntry{{Token: 21, Frequency: 5}, {Token: 22, Frequency: 1}}, gram.Entries())
	assert.Nil(t, bs.Gram(99))
}

func TestBigramStore_AddBigramsSaturates(t *testing.T) {
	bs := NewBigramStore()
	require.NoError(t, bs.AddBigrams([]BigramEntry{
		{Context: 20, Next: 21, Frequency: ^uint32(0) - 1},
		{Context: 20, Next: 21, Frequency: 5},
		{Context: 20, Next: 22, Frequency: 5},
	}))

	gram := bs.Gram(20)
	freq, _ := gram.Frequency(21)
	assert.Equal(t, ^uint32(0), freq)
	assert.Equal(t, ^uint32(0), gram.Total)
	assert.LessOrEqual(t, freq, gram.Total, "a count never exceeds its context total")
}

func TestBigramStore_RejectsNullToken(t *testing.T) {
	bs := NewBigramStore()
	err := bs.AddBigrams([]BigramEntry{
		{Context: 20, Next: 21, Frequency: 3},
		{Context: model.NullToken, Next: 21, Frequency: 3},
	})
	assert.Error(t, err)
	assert.Equal(t, 0, bs.Len(), "a rejected batch must not be partially applied")
}

func TestBigramStore_GobRoundTrip(t *testing.T) {
	bs := NewBigramStore()
	require.NoError(t, bs.AddBigrams([]BigramEntry{{Context: 1, Next: 30, Frequency: 9}}))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(bs))

	decoded := &BigramStore{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))
	assert.Equal(t, bs.Grams, decoded.Grams)
}
