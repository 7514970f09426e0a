package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/config"
	"github.com/gcbaptista/go-pinyin-engine/internal/errors"
)

// CreateDictionary creates a new dictionary with the given settings and persists it.
// Unset settings are taken from the engine defaults.
func (e *Engine) CreateDictionary(settings config.DictionarySettings) error {
	if problems := e.withDefaults(&settings).Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.dictionaries[settings.Name]; exists {
		return errors.NewDictionaryAlreadyExistsError(settings.Name)
	}

	dir := filepath.Join(e.dataDir, settings.Name)
	instance, err := NewDictionaryInstance(dir, settings, e.instanceOptions())
	if err != nil {
		return fmt.Errorf("failed to create dictionary '%s': %w", settings.Name, err)
	}
	if err := e.persistDictionaryUnsafe(settings.Name, instance); err != nil {
		_ = instance.Close()
		_ = os.RemoveAll(dir)
		return fmt.Errorf("failed to persist new dictionary '%s': %w", settings.Name, err)
	}

	e.dictionaries[settings.Name] = instance
	e.logger.Info("Dictionary created", zap.String("dictionary", settings.Name))
	return nil
}

// withDefaults fills the unset fields of settings from the engine defaults,
// then from the package defaults.
func (e *Engine) withDefaults(settings *config.DictionarySettings) *config.DictionarySettings {
	if settings.BigramLambda == nil && e.defaults.BigramLambda != nil {
		lambda := *e.defaults.BigramLambda
		settings.BigramLambda = &lambda
	}
	if settings.BeamWidth == 0 {
		settings.BeamWidth = e.defaults.BeamWidth
	}
	if settings.MaxPhraseLength == 0 {
		settings.MaxPhraseLength = e.defaults.MaxPhraseLength
	}
	if settings.DecodeTimeoutMs == 0 {
		settings.DecodeTimeoutMs = e.defaults.DecodeTimeoutMs
	}
	settings.ApplyDefaults()
	return settings
}

// DeleteDictionary deletes a dictionary and its data from disk.
func (e *Engine) DeleteDictionary(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.dictionaries[name]
	if !exists {
		return errors.NewDictionaryNotFoundError(name)
	}
	delete(e.dictionaries, name)

	if err := instance.Close(); err != nil {
		e.logger.Warn("Failed to close dictionary before deletion", zap.String("dictionary", name), zap.Error(err))
	}
	dir := filepath.Join(e.dataDir, name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove dictionary directory %s: %w", dir, err)
	}

	e.logger.Info("Dictionary deleted", zap.String("dictionary", name))
	return nil
}
