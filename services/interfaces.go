package services

import (
	"context"
	"iter"

	"github.com/gcbaptista/go-pinyin-engine/config"
	"github.com/gcbaptista/go-pinyin-engine/internal/matrix"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/store"
)

// PhraseIndex answers phonetic-key queries and unigram statistics.
type PhraseIndex interface {
	// Lookup returns the tokens readable with keys, ascending.
	Lookup(keys []string) []model.Token
	PhraseItem(token model.Token) (model.PhraseItem, bool)
	UnigramFrequency(token model.Token) uint32
	TotalUnigramFrequency() uint64
}

// BigramSource serves bigram continuations with system and user counts
// already summed.
type BigramSource interface {
	// Continuations yields (next, mergedCount) for context, ascending by next.
	Continuations(context model.Token) iter.Seq2[model.Token, uint32]
	// ContextTotal is the merged total count of context.
	ContextTotal(context model.Token) uint64
}

// PronunciationModel estimates how likely keys over [start, end) are a
// reading of item.
type PronunciationModel interface {
	PronunciationProbability(m *matrix.Matrix, start, end int, keys []string, item model.PhraseItem) float64
}

// LanguageModel is the read-only view a decode runs against.
type LanguageModel interface {
	PhraseIndex
	BigramSource
	PronunciationModel
}

// ModelProvider hands out consistent read views. The view must not change
// until release is called.
type ModelProvider interface {
	Acquire() (view LanguageModel, release func())
}

// TrainingTx is one atomic unit of training writes.
type TrainingTx interface {
	// LoadOrCreateGram returns the user record of prev, empty if absent.
	LoadOrCreateGram(prev model.Token) (*model.SingleGram, error)
	StoreGram(prev model.Token, gram *model.SingleGram) error
	IncreasePronunciation(token model.Token, keys []string, delta uint32) error
	AddUnigramFrequency(token model.Token, delta uint32) error
	Commit() error
	Rollback() error
}

// TrainingStore opens training transactions.
type TrainingStore interface {
	Begin(ctx context.Context) (TrainingTx, error)
}

// DecodeRequest is one decode call against a dictionary. Zero-valued
// options fall back to the dictionary settings.
type DecodeRequest struct {
	Matrix       *matrix.Matrix
	Prefixes     []model.Token
	BigramLambda *float64
	BeamWidth    int
}

// DecodedPhrase is a Match enriched with its phrase text.
type DecodedPhrase struct {
	model.Match
	Phrase string `json:"phrase"`
}

// DecodeResult is the outcome of a successful decode.
type DecodeResult struct {
	Result  model.MatchResult `json:"result"`
	Phrases []DecodedPhrase   `json:"phrases"`
	Text    string            `json:"text"`
	Took    int64             `json:"took"` // milliseconds
}

// Decoder defines decoding against a dictionary.
type Decoder interface {
	Decode(ctx context.Context, req DecodeRequest) (DecodeResult, error)
	DecodeBatch(ctx context.Context, reqs []DecodeRequest) ([]DecodeResult, []error)
}

// Trainer defines online learning from a committed result.
type Trainer interface {
	Train(ctx context.Context, result model.MatchResult) error
}

// Importer defines loading of system statistics.
type Importer interface {
	AddPhrases(items []model.PhraseItem) ([]model.Token, error)
	AddBigrams(entries []store.BigramEntry) error
}

// DictionaryAccessor combines everything that can be done with one dictionary.
type DictionaryAccessor interface {
	Importer
	Decoder
	Trainer
	Stats() model.DictionaryStats
	Settings() config.DictionarySettings
}

// DictionaryManager manages the lifecycle of dictionaries
type DictionaryManager interface {
	CreateDictionary(settings config.DictionarySettings) error
	GetDictionary(name string) (DictionaryAccessor, error)
	GetDictionarySettings(name string) (config.DictionarySettings, error)
	UpdateDictionarySettings(name string, settings config.DictionarySettings) error
	DeleteDictionary(name string) error
	ListDictionaries() []string
	PersistDictionaryData(name string) error
}

// DictionaryManagerWithAsyncTraining extends DictionaryManager with background training
type DictionaryManagerWithAsyncTraining interface {
	DictionaryManager
	TrainAsync(name string, result model.MatchResult) (string, error) // Returns job ID
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(dictionaryName string, status *model.JobStatus) []*model.Job
}
