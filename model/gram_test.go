package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddSaturating(t *testing.T) {
	assert.Equal(t, uint32(5), AddSaturating(2, 3))
	assert.Equal(t, ^uint32(0), AddSaturating(^uint32(0), 1))
	assert.Equal(t, ^uint32(0), AddSaturating(^uint32(0)-1, 1))
	assert.Equal(t, ^uint32(0), AddSaturating(1<<31, 1<<31))
}

func TestSingleGramMerge(t *testing.T) {
	system := &SingleGram{Total: 10, Freqs: map[Token]uint32{20: 6, 21: 4}}
	user := &SingleGram{Total: 69, Freqs: map[Token]uint32{21: 69}}

	merged := system.Merge(user)
	assert.Equal(t, uint32(79), merged.Total)
	assert.Equal(t, []GramEntry{{Token: 20, Frequency: 6}, {Token: 21, Frequency: 73}}, merged.Entries())
	assert.Equal(t, uint32(10), system.Total, "merge leaves its receiver untouched")

	full := &SingleGram{Total: ^uint32(0), Freqs: map[Token]uint32{20: ^uint32(0)}}
	saturated := full.Merge(user)
	assert.Equal(t, ^uint32(0), saturated.Total)
	freq, _ := saturated.Frequency(20)
	assert.Equal(t, ^uint32(0), freq)
	assert.Nil(t, (*SingleGram)(nil).Clone())
}
