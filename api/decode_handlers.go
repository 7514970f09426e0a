package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	internalErrors "github.com/gcbaptista/go-pinyin-engine/internal/errors"
	"github.com/gcbaptista/go-pinyin-engine/internal/matrix"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

// DecodeRequestBody is the JSON body of a decode call. Exactly one of Input
// ("ni'hao", "ni hao") or Syllables must be given.
type DecodeRequestBody struct {
	Input        string        `json:"input"`
	Syllables    []string      `json:"syllables"`
	Prefixes     []model.Token `json:"prefixes"`
	BigramLambda *float64      `json:"bigram_lambda"`
	BeamWidth    int           `json:"beam_width"`
}

// DecodeBatchRequestBody is the JSON body of a batch decode call.
type DecodeBatchRequestBody struct {
	Requests []DecodeRequestBody `json:"requests"`
}

// BatchItem is the outcome of one request of a batch.
type BatchItem struct {
	Result *services.DecodeResult `json:"result,omitempty"`
	Error  *APIError              `json:"error,omitempty"`
}

// toDecodeRequest builds the phonetic matrix of body.
func (body *DecodeRequestBody) toDecodeRequest() (services.DecodeRequest, error) {
	var (
		m   *matrix.Matrix
		err error
	)
	if len(body.Syllables) > 0 {
		m, err = matrix.FromSyllables(body.Syllables)
	} else {
		m, err = matrix.Parse(body.Input)
	}
	if err != nil {
		return services.DecodeRequest{}, internalErrors.NewValidationError("input", err.Error())
	}
	return services.DecodeRequest{
		Matrix:       m,
		Prefixes:     body.Prefixes,
		BigramLambda: body.BigramLambda,
		BeamWidth:    body.BeamWidth,
	}, nil
}

// inputKey is the syllable sequence of body joined with model.KeySeparator.
func (body *DecodeRequestBody) inputKey() string {
	if len(body.Syllables) > 0 {
		return model.JoinKeys(body.Syllables)
	}
	return model.JoinKeys(matrix.SplitSyllables(body.Input))
}

// outcomeOf classifies a decode error for analytics.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return model.OutcomeOK
	case errors.Is(err, internalErrors.ErrNotFound):
		return model.OutcomeNoMatch
	case errors.Is(err, internalErrors.ErrDecodeTimeout):
		return model.OutcomeTimeout
	case errors.Is(err, internalErrors.ErrInvalidInput):
		return model.OutcomeInvalid
	default:
		return model.OutcomeError
	}
}

func (api *API) trackDecode(name, input string, result services.DecodeResult, err error, took time.Duration) {
	api.analytics.TrackEvent(model.UsageEvent{
		DictionaryName: name,
		Kind:           model.EventKindDecode,
		Input:          input,
		Outcome:        outcomeOf(err),
		Text:           result.Text,
		ResponseTime:   took,
	})
}

// DecodeHandler converts one pinyin input into its most likely phrase sequence.
func (api *API) DecodeHandler(c *gin.Context) {
	name := c.Param("name")

	var body DecodeRequestBody
	if result := ValidateJSONBinding(c, &body); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateDecodeInput("request", &body); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	dict, err := api.engine.GetDictionary(name)
	if err != nil {
		if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
			SendDictionaryNotFoundError(c, name)
			return
		}
		SendInternalError(c, "get dictionary", err)
		return
	}

	req, err := body.toDecodeRequest()
	if err != nil {
		api.trackDecode(name, body.inputKey(), services.DecodeResult{}, err, 0)
		SendEngineError(c, err)
		return
	}

	start := time.Now()
	result, err := dict.Decode(c.Request.Context(), req)
	api.trackDecode(name, body.inputKey(), result, err, time.Since(start))
	if err != nil {
		api.logger.Debug("Decode failed", zap.String("dictionary", name), zap.Error(err))
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DecodeBatchHandler decodes several inputs in parallel. Each item reports
// its own result or error; the response is 200 as long as the batch itself
// was valid.
func (api *API) DecodeBatchHandler(c *gin.Context) {
	name := c.Param("name")

	var body DecodeBatchRequestBody
	if result := ValidateJSONBinding(c, &body); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateDecodeBatch(&body); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	dict, err := api.engine.GetDictionary(name)
	if err != nil {
		if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
			SendDictionaryNotFoundError(c, name)
			return
		}
		SendInternalError(c, "get dictionary", err)
		return
	}

	items := make([]BatchItem, len(body.Requests))
	var (
		reqs    []services.DecodeRequest
		indexes []int
	)
	for i := range body.Requests {
		req, err := body.Requests[i].toDecodeRequest()
		if err != nil {
			api.trackDecode(name, body.Requests[i].inputKey(), services.DecodeResult{}, err, 0)
			_, code := errorStatus(err)
			items[i].Error = APIErrorResponse(code, err.Error())
			continue
		}
		reqs = append(reqs, req)
		indexes = append(indexes, i)
	}

	results, errs := dict.DecodeBatch(c.Request.Context(), reqs)
	succeeded := 0
	for j, i := range indexes {
		api.trackDecode(name, body.Requests[i].inputKey(), results[j], errs[j], time.Duration(results[j].Took)*time.Millisecond)
		if errs[j] != nil {
			_, code := errorStatus(errs[j])
			items[i].Error = APIErrorResponse(code, errs[j].Error())
			continue
		}
		items[i].Result = &results[j]
		succeeded++
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   items,
		"total":     len(items),
		"succeeded": succeeded,
	})
}

// TrainHandler reinforces a result the user committed. With ?async=true the
// training runs as a background job and the job ID is returned.
func (api *API) TrainHandler(c *gin.Context) {
	name := c.Param("name")

	var result model.MatchResult
	if vr := ValidateJSONBinding(c, &result); vr.HasErrors() {
		SendValidationError(c, vr)
		return
	}
	if vr := ValidateTrainRequest(&result); vr.HasErrors() {
		SendValidationError(c, vr)
		return
	}
	if result.Prefix == model.NullToken {
		result.Prefix = model.SentenceStart
	}

	async, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))
	if async {
		manager, ok := api.engine.(services.DictionaryManagerWithAsyncTraining)
		if !ok {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "Asynchronous training not supported by this engine"})
			return
		}
		jobID, err := manager.TrainAsync(name, result)
		if err != nil {
			if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
				SendDictionaryNotFoundError(c, name)
				return
			}
			SendJobExecutionError(c, "train", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Training started for dictionary '" + name + "'",
			"job_id":  jobID,
		})
		return
	}

	dict, err := api.engine.GetDictionary(name)
	if err != nil {
		if errors.Is(err, internalErrors.ErrDictionaryNotFound) {
			SendDictionaryNotFoundError(c, name)
			return
		}
		SendInternalError(c, "get dictionary", err)
		return
	}

	keys := make([]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		keys = append(keys, m.Keys...)
	}
	start := time.Now()
	err = dict.Train(c.Request.Context(), result)
	api.analytics.TrackEvent(model.UsageEvent{
		DictionaryName: name,
		Kind:           model.EventKindTrain,
		Input:          model.JoinKeys(keys),
		Outcome:        outcomeOf(err),
		ResponseTime:   time.Since(start),
	})
	if err != nil {
		var trainErr *internalErrors.TrainingError
		if errors.As(err, &trainErr) {
			api.logger.Warn("Training failed", zap.String("dictionary", name), zap.Int("pair", trainErr.PairIndex), zap.Error(err))
			SendError(c, http.StatusInternalServerError, ErrorCodeTrainingFailed, err.Error(), ErrorDetail{
				Field:   "matches",
				Message: "pairs before index " + strconv.Itoa(trainErr.PairIndex) + " were committed",
			})
			return
		}
		SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Training committed",
		"pairs":   len(result.Matches),
	})
}
