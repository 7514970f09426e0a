package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/config"
	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/store"
)

// SettingsPatch is a partial settings update; absent fields keep their value.
type SettingsPatch struct {
	Name            *string  `json:"name"`
	BigramLambda    *float64 `json:"bigram_lambda"`
	BeamWidth       *int     `json:"beam_width"`
	MaxPhraseLength *int     `json:"max_phrase_length"`
	DecodeTimeoutMs *int     `json:"decode_timeout_ms"`
}

// apply copies the present fields onto settings and reports whether any was set.
func (p SettingsPatch) apply(settings *config.DictionarySettings) bool {
	updated := false
	if p.Name != nil {
		settings.Name = *p.Name
		updated = true
	}
	if p.BigramLambda != nil {
		lambda := *p.BigramLambda
		settings.BigramLambda = &lambda
		updated = true
	}
	if p.BeamWidth != nil {
		settings.BeamWidth = *p.BeamWidth
		updated = true
	}
	if p.MaxPhraseLength != nil {
		settings.MaxPhraseLength = *p.MaxPhraseLength
		updated = true
	}
	if p.DecodeTimeoutMs != nil {
		settings.DecodeTimeoutMs = *p.DecodeTimeoutMs
		updated = true
	}
	return updated
}

// CreateDictionaryHandler handles the creation of a new dictionary.
func (api *API) CreateDictionaryHandler(c *gin.Context) {
	var settings config.DictionarySettings

	if result := ValidateJSONBinding(c, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateDictionarySettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.CreateDictionary(settings); err != nil {
		if errors.Is(err, internalErrors.ErrDictionaryAlreadyExists) {
			SendDictionaryExistsError(c, settings.Name)
			return
		}
		SendEngineError(c, err)
		return
	}

	created, err := api.engine.GetDictionarySettings(settings.Name)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Dictionary '" + settings.Name + "' created successfully",
		"settings": created,
	})
}

// ListDictionariesHandler lists all available dictionaries.
func (api *API) ListDictionariesHandler(c *gin.Context) {
	names := api.engine.ListDictionaries()
	c.JSON(http.StatusOK, gin.H{"dictionaries": names, "count": len(names)})
}

// GetDictionaryHandler retrieves the settings of a specific dictionary.
func (api *API) GetDictionaryHandler(c *gin.Context) {
	name := c.Param("name")
	settings, err := api.engine.GetDictionarySettings(name)
	if err != nil {
		if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
			SendDictionaryNotFoundError(c, name)
			return
		}
		SendInternalError(c, "get dictionary", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// DeleteDictionaryHandler handles deleting a dictionary and its learned statistics.
func (api *API) DeleteDictionaryHandler(c *gin.Context) {
	name := c.Param("name")
	if err := api.engine.DeleteDictionary(name); err != nil {
		if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
			SendDictionaryNotFoundError(c, name)
			return
		}
		SendInternalError(c, "delete dictionary", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dictionary '" + name + "' deleted"})
}

// UpdateDictionarySettingsHandler applies a partial settings update.
func (api *API) UpdateDictionarySettingsHandler(c *gin.Context) {
	name := c.Param("name")

	settings, err := api.engine.GetDictionarySettings(name)
	if err != nil {
		if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
			SendDictionaryNotFoundError(c, name)
			return
		}
		SendInternalError(c, "get settings", err)
		return
	}

	var patch SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if !patch.apply(&settings) {
		c.JSON(http.StatusOK, gin.H{"message": "No settings changed", "settings": settings})
		return
	}

	if err := api.engine.UpdateDictionarySettings(name, settings); err != nil {
		SendEngineError(c, err)
		return
	}

	updated, err := api.engine.GetDictionarySettings(name)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated", "settings": updated})
}

// GetDictionaryStatsHandler returns statistics for a specific dictionary.
func (api *API) GetDictionaryStatsHandler(c *gin.Context) {
	name := c.Param("name")
	dict, err := api.engine.GetDictionary(name)
	if err != nil {
		if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
			SendDictionaryNotFoundError(c, name)
			return
		}
		SendInternalError(c, "get dictionary", err)
		return
	}
	c.JSON(http.StatusOK, dict.Stats())
}

// AddPhrasesHandler imports phrases. The import runs as a background job
// when the manager supports it, otherwise inline.
func (api *API) AddPhrasesHandler(c *gin.Context) {
	name := c.Param("name")

	var items []model.PhraseItem
	if err := c.ShouldBindJSON(&items); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if result := ValidatePhrases(items); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if async, ok := api.engine.(AsyncImporter); ok {
		jobID, err := async.AddPhrasesAsync(name, items)
		if err != nil {
			api.sendImportError(c, name, "phrase import", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Phrase import started for dictionary '" + name + "'",
			"job_id":  jobID,
		})
		return
	}

	dict, err := api.engine.GetDictionary(name)
	if err != nil {
		api.sendImportError(c, name, "phrase import", err)
		return
	}
	tokens, err := dict.AddPhrases(items)
	if err != nil {
		SendEngineError(c, err)
		return
	}
	if err := api.engine.PersistDictionaryData(name); err != nil {
		SendError(c, http.StatusInternalServerError, ErrorCodePersistenceFailed, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Phrases imported", "tokens": tokens})
}

// AddBigramsHandler imports system bigram counts.
func (api *API) AddBigramsHandler(c *gin.Context) {
	name := c.Param("name")

	var entries []store.BigramEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if result := ValidateBigrams(entries); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if async, ok := api.engine.(AsyncImporter); ok {
		jobID, err := async.AddBigramsAsync(name, entries)
		if err != nil {
			api.sendImportError(c, name, "bigram import", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Bigram import started for dictionary '" + name + "'",
			"job_id":  jobID,
		})
		return
	}

	dict, err := api.engine.GetDictionary(name)
	if err != nil {
		api.sendImportError(c, name, "bigram import", err)
		return
	}
	if err := dict.AddBigrams(entries); err != nil {
		SendEngineError(c, err)
		return
	}
	if err := api.engine.PersistDictionaryData(name); err != nil {
		SendError(c, http.StatusInternalServerError, ErrorCodePersistenceFailed, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bigrams imported", "count": len(entries)})
}

func (api *API) sendImportError(c *gin.Context, name, operation string, err error) {
	if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
		SendDictionaryNotFoundError(c, name)
		return
	}
	api.logger.Error("Import failed to start", zap.String("dictionary", name), zap.String("operation", operation), zap.Error(err))
	SendJobExecutionError(c, operation, err)
}
