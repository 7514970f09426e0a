package model

// DictionaryStats summarizes the contents of a dictionary.
type DictionaryStats struct {
	DictionaryName        string `json:"dictionary_name"`
	PhraseCount           int    `json:"phrase_count"`
	PhoneticKeyCount      int    `json:"phonetic_key_count"`
	TotalUnigramFrequency uint64 `json:"total_unigram_frequency"`
	SystemBigramContexts  int    `json:"system_bigram_contexts"`
	UserBigramContexts    int    `json:"user_bigram_contexts"`
	UserUnigramDelta      uint64 `json:"user_unigram_delta"`
}
