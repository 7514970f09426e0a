package userstats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

// Tx is a training transaction. Its writes reach the snapshot only after
// the database commit succeeds.
type Tx struct {
	store *Store
	tx    *sql.Tx
	done  bool

	grams          map[model.Token]*model.SingleGram
	unigram        map[model.Token]uint64
	pronunciations map[model.Token]map[string]uint64
}

var _ services.TrainingTx = (*Tx)(nil)

// Begin opens a training transaction. Transactions are serialized by the
// single database connection.
func (s *Store) Begin(ctx context.Context) (services.TrainingTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin training transaction: %w", err)
	}
	return &Tx{
		store:          s,
		tx:             tx,
		grams:          make(map[model.Token]*model.SingleGram),
		unigram:        make(map[model.Token]uint64),
		pronunciations: make(map[model.Token]map[string]uint64),
	}, nil
}

// LoadOrCreateGram reads the user record of prev from the database.
func (t *Tx) LoadOrCreateGram(prev model.Token) (*model.SingleGram, error) {
	if gram, ok := t.grams[prev]; ok {
		return gram.Clone(), nil
	}

	gram := model.NewSingleGram()
	var total int64
	err := t.tx.QueryRow(`SELECT total FROM user_gram_total WHERE prev = ?`, int64(prev)).Scan(&total)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return gram, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load gram total of %d: %w", prev, err)
	}
	gram.Total = uint32(total)

	rows, err := t.tx.Query(`SELECT next, freq FROM user_bigram WHERE prev = ?`, int64(prev))
	if err != nil {
		return nil, fmt.Errorf("failed to load gram of %d: %w", prev, err)
	}
	defer rows.Close()
	for rows.Next() {
		var next, freq int64
		if err := rows.Scan(&next, &freq); err != nil {
			return nil, fmt.Errorf("failed to scan gram of %d: %w", prev, err)
		}
		gram.SetFrequency(model.Token(next), uint32(freq))
	}
	return gram, rows.Err()
}

// StoreGram replaces the user record of prev.
func (t *Tx) StoreGram(prev model.Token, gram *model.SingleGram) error {
	if gram == nil {
		return fmt.Errorf("cannot store a nil gram for %d", prev)
	}
	if _, err := t.tx.Exec(
		`INSERT INTO user_gram_total (prev, total) VALUES (?, ?)
		 ON CONFLICT(prev) DO UPDATE SET total = excluded.total`,
		int64(prev), int64(gram.Total)); err != nil {
		return fmt.Errorf("failed to store gram total of %d: %w", prev, err)
	}
	if _, err := t.tx.Exec(`DELETE FROM user_bigram WHERE prev = ?`, int64(prev)); err != nil {
		return fmt.Errorf("failed to clear gram of %d: %w", prev, err)
	}
	for _, e := range gram.Entries() {
		if _, err := t.tx.Exec(
			`INSERT INTO user_bigram (prev, next, freq) VALUES (?, ?, ?)`,
			int64(prev), int64(e.Token), int64(e.Frequency)); err != nil {
			return fmt.Errorf("failed to store bigram %d -> %d: %w", prev, e.Token, err)
		}
	}
	t.grams[prev] = gram.Clone()
	return nil
}

// IncreasePronunciation adds delta to the frequency of reading token with keys.
func (t *Tx) IncreasePronunciation(token model.Token, keys []string, delta uint32) error {
	key := model.JoinKeys(keys)
	if _, err := t.tx.Exec(
		`INSERT INTO user_pronunciation (token, keys, delta) VALUES (?, ?, ?)
		 ON CONFLICT(token, keys) DO UPDATE SET delta = delta + excluded.delta`,
		int64(token), key, int64(delta)); err != nil {
		return fmt.Errorf("failed to increase pronunciation %q of %d: %w", key, token, err)
	}
	byKey, ok := t.pronunciations[token]
	if !ok {
		byKey = make(map[string]uint64)
		t.pronunciations[token] = byKey
	}
	byKey[key] += uint64(delta)
	return nil
}

// AddUnigramFrequency adds delta to the learned unigram frequency of token.
func (t *Tx) AddUnigramFrequency(token model.Token, delta uint32) error {
	if _, err := t.tx.Exec(
		`INSERT INTO user_unigram (token, delta) VALUES (?, ?)
		 ON CONFLICT(token) DO UPDATE SET delta = delta + excluded.delta`,
		int64(token), int64(delta)); err != nil {
		return fmt.Errorf("failed to add unigram frequency of %d: %w", token, err)
	}
	t.unigram[token] += uint64(delta)
	return nil
}

// Commit commits the transaction and mirrors it into the snapshot.
func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true

	s := t.store
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit training transaction: %w", err)
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()
	for prev, gram := range t.grams {
		s.grams[prev] = gram
	}
	for token, delta := range t.unigram {
		s.unigram[token] += delta
		s.unigramTotal += delta
	}
	for token, byKey := range t.pronunciations {
		for key, delta := range byKey {
			s.addPronunciationUnsafe(token, key, delta)
		}
	}
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
