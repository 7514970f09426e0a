package analytics

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-pinyin-engine/config"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

// MockDictionaryManager is a simple mock for testing
type MockDictionaryManager struct {
	dictionaries []string
}

func (m *MockDictionaryManager) CreateDictionary(_ config.DictionarySettings) error { return nil }
func (m *MockDictionaryManager) GetDictionary(_ string) (services.DictionaryAccessor, error) {
	return nil, errors.New("not loaded")
}
func (m *MockDictionaryManager) GetDictionarySettings(_ string) (config.DictionarySettings, error) {
	return config.DictionarySettings{}, nil
}
func (m *MockDictionaryManager) UpdateDictionarySettings(_ string, _ config.DictionarySettings) error {
	return nil
}
func (m *MockDictionaryManager) DeleteDictionary(_ string) error      { return nil }
func (m *MockDictionaryManager) ListDictionaries() []string           { return m.dictionaries }
func (m *MockDictionaryManager) PersistDictionaryData(_ string) error { return nil }

func newTestService(t *testing.T, now time.Time, dictionaries ...string) *Service {
	t.Helper()
	service := NewService(&MockDictionaryManager{dictionaries: dictionaries}, "", nil)
	service.now = func() time.Time { return now }
	return service
}

func TestAnalyticsService_TrackEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service := newTestService(t, now, "pinyin")

	service.TrackEvent(model.UsageEvent{
		DictionaryName: "pinyin",
		Kind:           model.EventKindDecode,
		Input:          "ni'hao",
		Outcome:        model.OutcomeOK,
		Text:           "你好",
		ResponseTime:   3 * time.Millisecond,
	})

	require.Len(t, service.events, 1)
	assert.Equal(t, now, service.events[0].Timestamp)
	assert.Equal(t, "ni'hao", service.events[0].Input)
}

func TestAnalyticsService_EventsAreBounded(t *testing.T) {
	service := newTestService(t, time.Now())
	for range maxEventsToKeep + 10 {
		service.TrackEvent(model.UsageEvent{Kind: model.EventKindDecode})
	}
	assert.Len(t, service.events, maxEventsToKeep)
}

func TestAnalyticsService_GetDashboardData(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service := newTestService(t, now, "a", "b")

	events := []model.UsageEvent{
		{DictionaryName: "a", Kind: model.EventKindDecode, Input: "ni'hao", Outcome: model.OutcomeOK, Text: "你好", ResponseTime: 2 * time.Millisecond, Timestamp: now.Add(-time.Hour)},
		{DictionaryName: "a", Kind: model.EventKindDecode, Input: "ni'hao", Outcome: model.OutcomeOK, Text: "你好", ResponseTime: 4 * time.Millisecond, Timestamp: now.Add(-2 * time.Hour)},
		{DictionaryName: "b", Kind: model.EventKindDecode, Input: "ma", Outcome: model.OutcomeOK, Text: "吗", ResponseTime: 30 * time.Millisecond, Timestamp: now.Add(-3 * time.Hour)},
		{DictionaryName: "b", Kind: model.EventKindDecode, Input: "zhong", Outcome: model.OutcomeNoMatch, ResponseTime: 200 * time.Millisecond, Timestamp: now.Add(-3 * time.Hour)},
		{DictionaryName: "a", Kind: model.EventKindTrain, Input: "ni'hao", Outcome: model.OutcomeOK, Timestamp: now.Add(-time.Hour)},
		// previous day
		{DictionaryName: "a", Kind: model.EventKindDecode, Input: "ni", Outcome: model.OutcomeOK, ResponseTime: time.Millisecond, Timestamp: now.Add(-30 * time.Hour)},
		// too old for either window
		{DictionaryName: "a", Kind: model.EventKindDecode, Input: "ni", Outcome: model.OutcomeOK, Timestamp: now.Add(-72 * time.Hour)},
	}
	for _, e := range events {
		service.TrackEvent(e)
	}

	dashboard := service.GetDashboardData()

	assert.Equal(t, 4, dashboard.TotalDecodes)
	assert.Equal(t, 1, dashboard.TotalTrainings)
	assert.InDelta(t, 300.0, dashboard.DecodesChangePercent, 1e-9)
	assert.Equal(t, int64(59), dashboard.AvgResponseTime)
	assert.Equal(t, "up", dashboard.ResponseTimeChange)
	assert.Equal(t, 2, dashboard.ActiveDictionaries)
	assert.Len(t, dashboard.DecodePerformance24h, 24)
	assert.Equal(t, 2, dashboard.DecodePerformance24h[9].DecodeCount)

	require.Len(t, dashboard.PopularInputs, 2)
	assert.Equal(t, model.PopularInput{Input: "ni'hao", DecodeCount: 2, LastText: "你好"}, dashboard.PopularInputs[0])
	assert.Equal(t, "ma", dashboard.PopularInputs[1].Input)

	assert.Equal(t, []model.DictionaryUsage{
		{DictionaryName: "a", DecodeCount: 2, TrainCount: 1},
		{DictionaryName: "b", DecodeCount: 2},
	}, dashboard.DictionaryUsage)

	assert.Equal(t, model.OutcomeStats{OK: 3, NoMatch: 1}, dashboard.Outcomes)
	assert.Equal(t, 2, dashboard.ResponseTimeDistribution.Bucket0To5ms)
	assert.Equal(t, 1, dashboard.ResponseTimeDistribution.Bucket25To100ms)
	assert.Equal(t, 1, dashboard.ResponseTimeDistribution.Bucket100msPlus)
	assert.InDelta(t, 50.0, dashboard.ResponseTimeDistribution.Percentage0To5, 1e-9)
	assert.Positive(t, dashboard.SystemHealth.Goroutines)
}

func TestAnalyticsService_FlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.gob")
	manager := &MockDictionaryManager{}

	service := NewService(manager, path, nil)
	service.TrackEvent(model.UsageEvent{DictionaryName: "a", Kind: model.EventKindDecode, Input: "ma", Outcome: model.OutcomeOK})
	require.NoError(t, service.Flush())

	reloaded := NewService(manager, path, nil)
	require.Len(t, reloaded.events, 1)
	assert.Equal(t, "ma", reloaded.events[0].Input)
}
