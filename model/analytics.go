package model

import "time"

// Event kinds tracked by analytics.
const (
	EventKindDecode = "decode"
	EventKindTrain  = "train"
)

// Decode outcomes tracked by analytics.
const (
	OutcomeOK      = "ok"
	OutcomeNoMatch = "no_match"
	OutcomeTimeout = "timeout"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// UsageEvent is one decode or training request served by the API.
type UsageEvent struct {
	DictionaryName string        `json:"dictionary_name"`
	Kind           string        `json:"kind"`  // EventKindDecode or EventKindTrain
	Input          string        `json:"input"` // syllables joined by KeySeparator
	Outcome        string        `json:"outcome"`
	Text           string        `json:"text,omitempty"` // decoded text when Outcome is OutcomeOK
	ResponseTime   time.Duration `json:"response_time"`
	Timestamp      time.Time     `json:"timestamp"`
}

// PopularInput is an input decoded often, with the text it last produced.
type PopularInput struct {
	Input       string `json:"input"`
	DecodeCount int    `json:"decode_count"`
	LastText    string `json:"last_text,omitempty"`
}

// DictionaryUsage represents request counts for a specific dictionary
type DictionaryUsage struct {
	DictionaryName string `json:"dictionary_name"`
	PhraseCount    int    `json:"phrase_count"`
	DecodeCount    int    `json:"decode_count"`
	TrainCount     int    `json:"train_count"`
}

// HourlyPerformance represents decode performance for one hour of the day
type HourlyPerformance struct {
	Hour            int   `json:"hour"`
	DecodeCount     int   `json:"decode_count"`
	AvgResponseTime int64 `json:"avg_response_time"` // in milliseconds
}

// ResponseTimeDistribution represents the distribution of decode response times
type ResponseTimeDistribution struct {
	Bucket0To5ms      int     `json:"bucket_0_5ms"`
	Bucket5To25ms     int     `json:"bucket_5_25ms"`
	Bucket25To100ms   int     `json:"bucket_25_100ms"`
	Bucket100msPlus   int     `json:"bucket_100ms_plus"`
	Percentage0To5    float64 `json:"percentage_0_5"`
	Percentage5To25   float64 `json:"percentage_5_25"`
	Percentage25To100 float64 `json:"percentage_25_100"`
	Percentage100Plus float64 `json:"percentage_100_plus"`
}

// OutcomeStats counts decode outcomes
type OutcomeStats struct {
	OK      int `json:"ok"`
	NoMatch int `json:"no_match"`
	Timeout int `json:"timeout"`
	Invalid int `json:"invalid"`
	Error   int `json:"error"`
}

// SystemHealth reports process-level resource usage
type SystemHealth struct {
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	HeapSysMB   float64 `json:"heap_sys_mb"`
	Goroutines  int     `json:"goroutines"`
}

// AnalyticsDashboard represents the complete analytics dashboard data
type AnalyticsDashboard struct {
	// Summary metrics
	TotalDecodes         int     `json:"total_decodes"`
	DecodesChangePercent float64 `json:"decodes_change_percent"` // against the previous 24h
	TotalTrainings       int     `json:"total_trainings"`
	AvgResponseTime      int64   `json:"avg_response_time"` // in milliseconds
	ResponseTimeChange   string  `json:"response_time_change"`
	TotalPhrases         int     `json:"total_phrases"`
	ActiveDictionaries   int     `json:"active_dictionaries"`

	// Detailed analytics
	DecodePerformance24h     []HourlyPerformance      `json:"decode_performance_24h"`
	PopularInputs            []PopularInput           `json:"popular_inputs"`
	DictionaryUsage          []DictionaryUsage        `json:"dictionary_usage"`
	ResponseTimeDistribution ResponseTimeDistribution `json:"response_time_distribution"`
	Outcomes                 OutcomeStats             `json:"outcomes"`
	SystemHealth             SystemHealth             `json:"system_health"`
}
