package index

import (
	"slices"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

// PostingList holds the tokens of every phrase readable with one phonetic
// key, sorted ascending so lookups enumerate in a fixed order.
type PostingList []model.Token

// insert adds token keeping the list sorted and free of duplicates.
func (pl PostingList) insert(token model.Token) PostingList {
	i, found := slices.BinarySearch(pl, token)
	if found {
		return pl
	}
	return slices.Insert(pl, i, token)
}

// remove deletes token if present.
func (pl PostingList) remove(token model.Token) PostingList {
	i, found := slices.BinarySearch(pl, token)
	if !found {
		return pl
	}
	return slices.Delete(pl, i, i+1)
}
