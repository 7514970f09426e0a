// Package userstats persists what the engine learns from committed results:
// user bigram records, unigram frequency deltas, and pronunciation deltas.
//
// SQLite is the source of truth. A read-mostly in-memory snapshot mirrors
// every committed transaction so decodes never touch the database.
package userstats

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/gcbaptista/go-pinyin-engine/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_gram_total (
	prev  INTEGER PRIMARY KEY,
	total INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS user_bigram (
	prev INTEGER NOT NULL,
	next INTEGER NOT NULL,
	freq INTEGER NOT NULL,
	PRIMARY KEY (prev, next)
);
CREATE TABLE IF NOT EXISTS user_unigram (
	token INTEGER PRIMARY KEY,
	delta INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS user_pronunciation (
	token INTEGER NOT NULL,
	keys  TEXT NOT NULL,
	delta INTEGER NOT NULL,
	PRIMARY KEY (token, keys)
);`

// Store is the user statistics store of one dictionary.
//
// Mu guards the in-memory snapshot only. Readers of Gram, UnigramDelta,
// TotalUnigramDelta and PronunciationDelta must hold Mu for reading.
type Store struct {
	Mu sync.RWMutex
	// commitMu orders database commits and their snapshot mirrors alike.
	commitMu sync.Mutex

	db     *sql.DB
	path   string
	logger *zap.Logger

	grams          map[model.Token]*model.SingleGram
	unigram        map[model.Token]uint64
	unigramTotal   uint64
	pronunciations map[model.Token]map[string]uint64
	pronTotals     map[model.Token]uint64
}

// Open opens (creating if needed) the database at path and loads the snapshot.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user stats database: %w", err)
	}
	// One connection serializes training transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Debug("Failed to apply sqlite pragma", zap.String("pragma", pragma), zap.Error(err))
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize user stats schema: %w", err)
	}

	s := &Store{
		db:             db,
		path:           path,
		logger:         logger,
		grams:          make(map[model.Token]*model.SingleGram),
		unigram:        make(map[model.Token]uint64),
		pronunciations: make(map[model.Token]map[string]uint64),
		pronTotals:     make(map[model.Token]uint64),
	}
	if err := s.load(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("User stats store opened",
		zap.String("path", path),
		zap.Int("contexts", len(s.grams)),
		zap.Uint64("unigram_delta", s.unigramTotal))
	return s, nil
}

// load rebuilds the snapshot from the database.
func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT prev, total FROM user_gram_total`)
	if err != nil {
		return fmt.Errorf("failed to load user gram totals: %w", err)
	}
	for rows.Next() {
		var prev, total int64
		if err := rows.Scan(&prev, &total); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan user gram total: %w", err)
		}
		gram := model.NewSingleGram()
		gram.Total = uint32(total)
		s.grams[model.Token(prev)] = gram
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT prev, next, freq FROM user_bigram`)
	if err != nil {
		return fmt.Errorf("failed to load user bigrams: %w", err)
	}
	for rows.Next() {
		var prev, next, freq int64
		if err := rows.Scan(&prev, &next, &freq); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan user bigram: %w", err)
		}
		gram, ok := s.grams[model.Token(prev)]
		if !ok {
			gram = model.NewSingleGram()
			s.grams[model.Token(prev)] = gram
		}
		gram.SetFrequency(model.Token(next), uint32(freq))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT token, delta FROM user_unigram`)
	if err != nil {
		return fmt.Errorf("failed to load user unigrams: %w", err)
	}
	for rows.Next() {
		var token, delta int64
		if err := rows.Scan(&token, &delta); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan user unigram: %w", err)
		}
		s.unigram[model.Token(token)] = uint64(delta)
		s.unigramTotal += uint64(delta)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT token, keys, delta FROM user_pronunciation`)
	if err != nil {
		return fmt.Errorf("failed to load user pronunciations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var token, delta int64
		var keys string
		if err := rows.Scan(&token, &keys, &delta); err != nil {
			return fmt.Errorf("failed to scan user pronunciation: %w", err)
		}
		s.addPronunciationUnsafe(model.Token(token), keys, uint64(delta))
	}
	return rows.Err()
}

func (s *Store) addPronunciationUnsafe(token model.Token, key string, delta uint64) {
	byKey, ok := s.pronunciations[token]
	if !ok {
		byKey = make(map[string]uint64)
		s.pronunciations[token] = byKey
	}
	byKey[key] += delta
	s.pronTotals[token] += delta
}

// Gram returns the user record of context, or nil.
func (s *Store) Gram(context model.Token) *model.SingleGram {
	return s.grams[context]
}

// UnigramDelta returns the learned unigram frequency of token.
func (s *Store) UnigramDelta(token model.Token) uint64 {
	return s.unigram[token]
}

// TotalUnigramDelta returns the sum of all learned unigram frequencies.
func (s *Store) TotalUnigramDelta() uint64 {
	return s.unigramTotal
}

// PronunciationDelta returns the learned frequency of reading token with
// key, and the learned total over all its readings.
func (s *Store) PronunciationDelta(token model.Token, key string) (delta, total uint64) {
	return s.pronunciations[token][key], s.pronTotals[token]
}

// Contexts returns the number of contexts with a user record.
func (s *Store) Contexts() int {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return len(s.grams)
}

// UnigramTotal locks and returns TotalUnigramDelta.
func (s *Store) UnigramTotal() uint64 {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.unigramTotal
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
