package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/config"
	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/index"
	"github.com/gcbaptista/go-pinyin-engine/internal/persistence"
	"github.com/gcbaptista/go-pinyin-engine/store"
)

const (
	dataDirPerm      = 0755
	settingsFile     = "settings.gob"
	phraseIndexFile  = "phrase_index.gob"
	systemBigramFile = "system_bigram.gob"
	userStatsFile    = "user_stats.db"
)

// loadDictionariesFromDisk loads all dictionaries from the data directory.
func (e *Engine) loadDictionariesFromDisk() {
	ensureDataDir(e.dataDir, e.logger)

	items, err := os.ReadDir(e.dataDir)
	if err != nil {
		e.logger.Warn("Failed to read data directory; no dictionaries loaded", zap.String("data_dir", e.dataDir), zap.Error(err))
		return
	}

	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		name := item.Name()
		instance, err := e.loadDictionary(name)
		if err != nil {
			e.logger.Warn("Skipping dictionary", zap.String("dictionary", name), zap.Error(err))
			continue
		}
		e.dictionaries[name] = instance
		e.logger.Info("Dictionary loaded",
			zap.String("dictionary", name),
			zap.Int("phrases", instance.PhraseIndex.Len()))
	}
}

func (e *Engine) loadDictionary(name string) (*DictionaryInstance, error) {
	dir := filepath.Join(e.dataDir, name)

	var settings config.DictionarySettings
	if err := persistence.LoadGob(filepath.Join(dir, settingsFile), &settings); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.Name != name {
		return nil, fmt.Errorf("settings name '%s' does not match directory name '%s'", settings.Name, name)
	}

	phrases := index.NewPhraseIndex()
	if err := persistence.LoadGob(filepath.Join(dir, phraseIndexFile), phrases); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load phrase index: %w", err)
		}
		e.logger.Info("Phrase index not found; starting empty", zap.String("dictionary", name))
	}

	bigrams := store.NewBigramStore()
	if err := persistence.LoadGob(filepath.Join(dir, systemBigramFile), bigrams); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load system bigrams: %w", err)
		}
		e.logger.Info("System bigrams not found; starting empty", zap.String("dictionary", name))
	}

	return newDictionaryInstance(dir, settings, phrases, bigrams, e.instanceOptions())
}

// PersistDictionaryData saves the system statistics and settings of a
// dictionary. User statistics are committed by training itself.
func (e *Engine) PersistDictionaryData(name string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.dictionaries[name]
	if !exists {
		return internalErrors.NewDictionaryNotFoundError(name)
	}
	return e.persistDictionaryUnsafe(name, instance)
}

// persistDictionaryUnsafe writes a dictionary to disk.
// This method assumes the caller holds e.mu.
func (e *Engine) persistDictionaryUnsafe(name string, instance *DictionaryInstance) error {
	dir := filepath.Join(e.dataDir, name)
	if err := os.MkdirAll(dir, dataDirPerm); err != nil {
		return fmt.Errorf("failed to create directory for dictionary %s: %w", name, err)
	}

	if err := persistence.SaveGob(filepath.Join(dir, settingsFile), instance.Settings()); err != nil {
		return fmt.Errorf("failed to save settings for dictionary %s: %w", name, err)
	}
	// PhraseIndex and BigramStore take their read locks in GobEncode
	if err := persistence.SaveGob(filepath.Join(dir, phraseIndexFile), instance.PhraseIndex); err != nil {
		return fmt.Errorf("failed to save phrase index for %s: %w", name, err)
	}
	if err := persistence.SaveGob(filepath.Join(dir, systemBigramFile), instance.BigramStore); err != nil {
		return fmt.Errorf("failed to save system bigrams for %s: %w", name, err)
	}
	return nil
}
