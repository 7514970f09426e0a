package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

func candidate(last model.Token, length int, score float64) Candidate {
	return Candidate{
		Context:        [2]model.Token{model.SentenceStart, last},
		Length:         length,
		Score:          score,
		OriginPosition: 0,
		OriginIndex:    0,
	}
}

func TestInsert_Idempotent(t *testing.T) {
	l := New(2)
	c := candidate(20, 2, -1.25)

	assert.True(t, l.Insert(1, 20, c))
	assert.False(t, l.Insert(1, 20, c), "an identical copy must not replace the original")

	require.Equal(t, 1, l.Len(1))
	assert.Equal(t, c, l.At(1, 0))
}

func TestInsert_LongerWinsRegardlessOfScore(t *testing.T) {
	t.Run("longer arrives second", func(t *testing.T) {
		l := New(2)
		l.Insert(1, 20, candidate(20, 3, -0.5))
		l.Insert(1, 20, candidate(20, 5, -9.0))
		require.Equal(t, 1, l.Len(1))
		assert.Equal(t, 5, l.At(1, 0).Length)
	})

	t.Run("longer arrives first", func(t *testing.T) {
		l := New(2)
		l.Insert(1, 20, candidate(20, 5, -9.0))
		l.Insert(1, 20, candidate(20, 3, -0.5))
		require.Equal(t, 1, l.Len(1))
		assert.Equal(t, 5, l.At(1, 0).Length)
	})
}

func TestInsert_EqualLengthHigherScoreWins(t *testing.T) {
	l := New(2)
	l.Insert(1, 20, candidate(20, 4, -2.0))
	l.Insert(1, 20, candidate(20, 4, -1.5))
	require.Equal(t, 1, l.Len(1))
	assert.Equal(t, -1.5, l.At(1, 0).Score)

	l.Insert(1, 20, candidate(20, 4, -2.0))
	assert.Equal(t, -1.5, l.At(1, 0).Score)
}

func TestInsert_ExactTieKeepsFirstSeen(t *testing.T) {
	l := New(2)
	first := candidate(20, 4, -1.0)
	first.OriginIndex = 7
	second := candidate(20, 4, -1.0)
	second.OriginIndex = 8

	l.Insert(1, 20, first)
	assert.False(t, l.Insert(1, 20, second))
	assert.Equal(t, 7, l.At(1, 0).OriginIndex)
}

func TestInsert_ReplacementKeepsSlot(t *testing.T) {
	l := New(2)
	l.Insert(1, 20, candidate(20, 1, -1))
	l.Insert(1, 21, candidate(21, 1, -1))
	l.Insert(1, 20, candidate(20, 2, -3))

	require.Equal(t, 2, l.Len(1))
	assert.Equal(t, model.Token(20), l.At(1, 0).LastToken())
	assert.Equal(t, 2, l.At(1, 0).Length)
	assert.Equal(t, model.Token(21), l.At(1, 1).LastToken())
}

func TestSeed(t *testing.T) {
	l := New(3)
	require.NoError(t, l.Seed(NewSeed(model.SentenceStart)))
	assert.Equal(t, 1, l.Len(0))
	assert.True(t, l.At(0, 0).IsSeed())

	assert.Error(t, l.Seed(candidate(20, 1, 0)), "seeds cannot carry a backpointer")
	assert.Error(t, New(0).Seed(NewSeed(model.SentenceStart)))
}

func TestBeam_OrderAndBound(t *testing.T) {
	l := New(2)
	l.Insert(1, 30, candidate(30, 1, -3.0))
	l.Insert(1, 25, candidate(25, 1, -1.0))
	l.Insert(1, 40, candidate(40, 1, -1.0))
	l.Insert(1, 21, candidate(21, 1, -2.0))

	// -1.0 tie broken by ascending token: 25 (index 1) before 40 (index 2).
	assert.Equal(t, []int{1, 2, 3, 0}, l.Beam(1, 10))
	assert.Equal(t, []int{1, 2}, l.Beam(1, 2))
	assert.Nil(t, l.Beam(1, 0))
	assert.Nil(t, l.Beam(0, 4))
}

func TestBeam_Deterministic(t *testing.T) {
	build := func() *Lattice {
		l := New(2)
		for tok := model.Token(100); tok > 20; tok-- {
			l.Insert(1, tok, candidate(tok, 1, -float64(tok%5)))
		}
		return l
	}

	first := build().Beam(1, 32)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build().Beam(1, 32))
	}
}

func TestExtend(t *testing.T) {
	seed := NewSeed(model.SentenceStart)
	next := seed.Extend(20, 2, -0.7, 0, 0, []string{"ni", "hao"})

	assert.Equal(t, [2]model.Token{model.SentenceStart, 20}, next.Context)
	assert.Equal(t, 2, next.Length)
	assert.Equal(t, -0.7, next.Score)
	assert.False(t, next.IsSeed())
	assert.Equal(t, []string{"ni", "hao"}, next.Keys)
}
