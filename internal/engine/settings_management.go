package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/config"
	"github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/internal/persistence"
)

// GetDictionarySettings retrieves the settings for a specific dictionary.
func (e *Engine) GetDictionarySettings(name string) (config.DictionarySettings, error) {
	instance, err := e.instance(name)
	if err != nil {
		return config.DictionarySettings{}, err
	}
	return instance.Settings(), nil
}

// UpdateDictionarySettings replaces the settings of a dictionary and persists
// them. The name cannot change. Decodes already running keep the settings
// they started with.
func (e *Engine) UpdateDictionarySettings(name string, newSettings config.DictionarySettings) error {
	if newSettings.Name != "" && newSettings.Name != name {
		return errors.NewValidationError("name", fmt.Sprintf("cannot change dictionary name from '%s' to '%s'", name, newSettings.Name))
	}
	newSettings.Name = name
	newSettings.ApplyDefaults()
	if problems := newSettings.Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.dictionaries[name]
	if !exists {
		return errors.NewDictionaryNotFoundError(name)
	}

	settingsPath := filepath.Join(e.dataDir, name, settingsFile)
	if err := persistence.SaveGob(settingsPath, newSettings); err != nil {
		return fmt.Errorf("failed to save updated settings for dictionary '%s': %w", name, err)
	}
	instance.setSettings(newSettings)

	e.logger.Info("Dictionary settings updated", zap.String("dictionary", name))
	return nil
}
