package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

// BigramEntry is one imported (context, next) count.
type BigramEntry struct {
	Context   model.Token `json:"context"`
	Next      model.Token `json:"next"`
	Frequency uint32      `json:"frequency"`
}

// BigramStore holds the system bigram statistics: for each context token,
// the frequency record of its continuations. It is read-only while
// decoding; imports take the write lock.
type BigramStore struct {
	Mu    sync.RWMutex
	Grams map[model.Token]*model.SingleGram
}

// gobBigramStoreData is a helper struct for Gob encoding/decoding BigramStore data.
// It excludes the mutex.
type gobBigramStoreData struct {
	Grams map[model.Token]*model.SingleGram
}

// NewBigramStore creates an empty store.
func NewBigramStore() *BigramStore {
	return &BigramStore{Grams: make(map[model.Token]*model.SingleGram)}
}

// AddBigrams accumulates the given counts into the store.
func (bs *BigramStore) AddBigrams(entries []BigramEntry) error {
	for i, e := range entries {
		if e.Context == model.NullToken || e.Next == model.NullToken {
			return fmt.Errorf("bigram %d uses the null token", i)
		}
	}

	bs.Mu.Lock()
	defer bs.Mu.Unlock()

	for _, e := range entries {
		gram, ok := bs.Grams[e.Context]
		if !ok {
			gram = model.NewSingleGram()
			bs.Grams[e.Context] = gram
		}
		freq, _ := gram.Frequency(e.Next)
		gram.SetFrequency(e.Next, model.AddSaturating(freq, e.Frequency))
		gram.Total = model.AddSaturating(gram.Total, e.Frequency)
	}
	return nil
}

// Gram returns the record of context, or nil. Callers must hold Mu for reading.
func (bs *BigramStore) Gram(context model.Token) *model.SingleGram {
	return bs.Grams[context]
}

// Len returns the number of contexts with statistics.
func (bs *BigramStore) Len() int {
	bs.Mu.RLock()
	defer bs.Mu.RUnlock()
	return len(bs.Grams)
}

// GobEncode implements the gob.GobEncoder interface for BigramStore.
func (bs *BigramStore) GobEncode() ([]byte, error) {
	bs.Mu.RLock()
	defer bs.Mu.RUnlock()

	dataToEncode := gobBigramStoreData{Grams: bs.Grams}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, fmt.Errorf("failed to gob encode bigram store data: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for BigramStore.
func (bs *BigramStore) GobDecode(data []byte) error {
	decodedData := gobBigramStoreData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return fmt.Errorf("failed to gob decode bigram store data: %w", err)
	}

	bs.Mu.Lock()
	defer bs.Mu.Unlock()

	bs.Grams = decodedData.Grams

	// Ensure maps are initialized if they were nil after decoding
	if bs.Grams == nil {
		bs.Grams = make(map[model.Token]*model.SingleGram)
	}
	for _, gram := range bs.Grams {
		if gram.Freqs == nil {
			gram.Freqs = make(map[model.Token]uint32)
		}
	}
	return nil
}
