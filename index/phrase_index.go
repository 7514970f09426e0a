package index

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

// PhraseIndex maps a joined phonetic key to the phrases that can be read
// with it, and each phrase token to its item. It holds the system (shipped)
// statistics; user learning is layered on top elsewhere.
type PhraseIndex struct {
	Mu             sync.RWMutex
	Keys           map[string]PostingList
	Items          map[model.Token]model.PhraseItem
	TotalFrequency uint64
	NextToken      model.Token
}

// gobPhraseIndexData is a helper struct for Gob encoding/decoding PhraseIndex data.
// It excludes the mutex.
type gobPhraseIndexData struct {
	Keys           map[string]PostingList
	Items          map[model.Token]model.PhraseItem
	TotalFrequency uint64
	NextToken      model.Token
}

// NewPhraseIndex creates an empty phrase index.
func NewPhraseIndex() *PhraseIndex {
	return &PhraseIndex{
		Keys:      make(map[string]PostingList),
		Items:     make(map[model.Token]model.PhraseItem),
		NextToken: model.FirstPhraseToken,
	}
}

// AddPhrases inserts or replaces phrase items. Items with a zero token get
// the next free token. The assigned tokens are returned in input order.
func (pi *PhraseIndex) AddPhrases(items []model.PhraseItem) ([]model.Token, error) {
	pi.Mu.Lock()
	defer pi.Mu.Unlock()

	next := pi.NextToken
	for i, item := range items {
		if item.Phrase == "" {
			return nil, fmt.Errorf("phrase %d has no text", i)
		}
		if len(item.Pronunciations) == 0 {
			return nil, fmt.Errorf("phrase %q has no pronunciation", item.Phrase)
		}
		switch {
		case item.Token == model.NullToken:
			if next > model.MaxPhraseToken {
				return nil, fmt.Errorf("no free token left for phrase %q", item.Phrase)
			}
			next++
		case item.Token < model.FirstPhraseToken || item.Token > model.MaxPhraseToken:
			return nil, fmt.Errorf("phrase %q uses reserved token %d", item.Phrase, item.Token)
		case item.Token >= next:
			next = item.Token + 1
		}
	}

	tokens := make([]model.Token, 0, len(items))
	for _, item := range items {
		if item.Token == model.NullToken {
			item.Token = pi.NextToken
		}
		if item.Token >= pi.NextToken {
			pi.NextToken = item.Token + 1
		}
		item.Length = utf8.RuneCountInString(item.Phrase)

		if old, exists := pi.Items[item.Token]; exists {
			pi.removeUnsafe(old)
		}
		pi.Items[item.Token] = item
		pi.TotalFrequency += uint64(item.Frequency)
		for _, pron := range item.Pronunciations {
			key := pron.Key()
			pi.Keys[key] = pi.Keys[key].insert(item.Token)
		}
		tokens = append(tokens, item.Token)
	}
	return tokens, nil
}

// removeUnsafe drops an item's postings and frequency. Caller holds Mu.
func (pi *PhraseIndex) removeUnsafe(item model.PhraseItem) {
	pi.TotalFrequency -= uint64(item.Frequency)
	for _, pron := range item.Pronunciations {
		key := pron.Key()
		list := pi.Keys[key].remove(item.Token)
		if len(list) == 0 {
			delete(pi.Keys, key)
		} else {
			pi.Keys[key] = list
		}
	}
	delete(pi.Items, item.Token)
}

// Lookup returns the tokens readable with the given syllable keys, ascending.
// Callers must hold Mu for reading.
func (pi *PhraseIndex) Lookup(keys []string) []model.Token {
	return slices.Clone(pi.Keys[model.JoinKeys(keys)])
}

// Item returns the phrase item of token. Callers must hold Mu for reading.
func (pi *PhraseIndex) Item(token model.Token) (model.PhraseItem, bool) {
	item, ok := pi.Items[token]
	return item, ok
}

// Len returns the number of phrases.
func (pi *PhraseIndex) Len() int {
	pi.Mu.RLock()
	defer pi.Mu.RUnlock()
	return len(pi.Items)
}

// GobEncode implements the gob.GobEncoder interface for PhraseIndex.
func (pi *PhraseIndex) GobEncode() ([]byte, error) {
	pi.Mu.RLock() // Ensure consistent data during encoding
	defer pi.Mu.RUnlock()

	dataToEncode := gobPhraseIndexData{
		Keys:           pi.Keys,
		Items:          pi.Items,
		TotalFrequency: pi.TotalFrequency,
		NextToken:      pi.NextToken,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for PhraseIndex.
func (pi *PhraseIndex) GobDecode(data []byte) error {
	decodedData := gobPhraseIndexData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return err
	}

	pi.Mu.Lock() // Ensure exclusive access during decoding
	defer pi.Mu.Unlock()

	pi.Keys = decodedData.Keys
	pi.Items = decodedData.Items
	pi.TotalFrequency = decodedData.TotalFrequency
	pi.NextToken = decodedData.NextToken

	// Ensure maps are initialized if they were nil after decoding (e.g. from an empty index)
	if pi.Keys == nil {
		pi.Keys = make(map[string]PostingList)
	}
	if pi.Items == nil {
		pi.Items = make(map[model.Token]model.PhraseItem)
	}
	if pi.NextToken < model.FirstPhraseToken {
		pi.NextToken = model.FirstPhraseToken
	}
	return nil
}
