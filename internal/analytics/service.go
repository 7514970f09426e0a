// Package analytics records decode and training requests served by the API
// and aggregates them into a dashboard.
package analytics

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/internal/persistence"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

const (
	maxEventsToKeep  = 10000 // Keep last 10k events for performance
	popularInputsTop = 5
)

// Service implements analytics tracking and reporting
type Service struct {
	mutex        sync.RWMutex
	events       []model.UsageEvent
	manager      services.DictionaryManager
	dataFilePath string // empty keeps events in memory only
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a new analytics service. Events are loaded from
// dataFilePath when it exists.
func NewService(manager services.DictionaryManager, dataFilePath string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		events:       make([]model.UsageEvent, 0),
		manager:      manager,
		dataFilePath: dataFilePath,
		logger:       logger,
		now:          time.Now,
	}

	if err := service.loadData(); err != nil {
		logger.Warn("Failed to load analytics data", zap.String("path", dataFilePath), zap.Error(err))
	}

	return service
}

// TrackEvent records a new event, stamping it with the current time when
// it carries none.
func (s *Service) TrackEvent(event model.UsageEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > maxEventsToKeep {
		s.events = slices.Clone(s.events[len(s.events)-maxEventsToKeep:])
	}
}

// Flush persists the recorded events.
func (s *Service) Flush() error {
	if s.dataFilePath == "" {
		return nil
	}
	s.mutex.RLock()
	events := slices.Clone(s.events)
	s.mutex.RUnlock()

	if err := persistence.SaveGob(s.dataFilePath, events); err != nil {
		return fmt.Errorf("failed to save analytics data: %w", err)
	}
	return nil
}

// GetDashboardData returns complete analytics dashboard data
func (s *Service) GetDashboardData() model.AnalyticsDashboard {
	s.mutex.RLock()
	events := slices.Clone(s.events)
	s.mutex.RUnlock()

	now := s.now()
	yesterday := now.Add(-24 * time.Hour)
	dayBefore := yesterday.Add(-24 * time.Hour)

	last24h := filterEventsByTime(events, yesterday, now.Add(time.Nanosecond))
	prev24h := filterEventsByTime(events, dayBefore, yesterday)
	decodes := filterKind(last24h, model.EventKindDecode)
	prevDecodes := filterKind(prev24h, model.EventKindDecode)

	usage := s.getDictionaryUsage(last24h)
	totalPhrases := 0
	for _, u := range usage {
		totalPhrases += u.PhraseCount
	}

	return model.AnalyticsDashboard{
		TotalDecodes:             len(decodes),
		DecodesChangePercent:     calculateChangePercent(len(decodes), len(prevDecodes)),
		TotalTrainings:           len(filterKind(last24h, model.EventKindTrain)),
		AvgResponseTime:          calculateAvgResponseTime(decodes),
		ResponseTimeChange:       calculateResponseTimeChange(decodes, prevDecodes),
		TotalPhrases:             totalPhrases,
		ActiveDictionaries:       len(usage),
		DecodePerformance24h:     getHourlyPerformance(decodes),
		PopularInputs:            getPopularInputs(decodes),
		DictionaryUsage:          usage,
		ResponseTimeDistribution: getResponseTimeDistribution(decodes),
		Outcomes:                 getOutcomeStats(decodes),
		SystemHealth:             getSystemHealth(),
	}
}

// filterEventsByTime returns events within [start, end)
func filterEventsByTime(events []model.UsageEvent, start, end time.Time) []model.UsageEvent {
	var filtered []model.UsageEvent
	for _, event := range events {
		if !event.Timestamp.Before(start) && event.Timestamp.Before(end) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func filterKind(events []model.UsageEvent, kind string) []model.UsageEvent {
	var filtered []model.UsageEvent
	for _, event := range events {
		if event.Kind == kind {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// calculateChangePercent calculates percentage change between current and previous values
func calculateChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100.0
}

// calculateAvgResponseTime calculates average response time for events in milliseconds
func calculateAvgResponseTime(events []model.UsageEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return (total / time.Duration(len(events))).Milliseconds()
}

// calculateResponseTimeChange compares average response times: "up" or
// "down" beyond a 10% change, "stable" otherwise.
func calculateResponseTimeChange(current, previous []model.UsageEvent) string {
	if len(current) == 0 || len(previous) == 0 {
		return "stable"
	}
	var cur, prev time.Duration
	for _, e := range current {
		cur += e.ResponseTime
	}
	for _, e := range previous {
		prev += e.ResponseTime
	}
	currentAvg := float64(cur) / float64(len(current))
	previousAvg := float64(prev) / float64(len(previous))
	if previousAvg == 0 {
		return "stable"
	}

	change := (currentAvg - previousAvg) / previousAvg
	switch {
	case change > 0.1:
		return "up"
	case change < -0.1:
		return "down"
	default:
		return "stable"
	}
}

// getHourlyPerformance returns hourly decode performance for the last 24 hours
func getHourlyPerformance(events []model.UsageEvent) []model.HourlyPerformance {
	hourlyData := make(map[int][]model.UsageEvent)
	for _, event := range events {
		hour := event.Timestamp.Hour()
		hourlyData[hour] = append(hourlyData[hour], event)
	}

	performance := make([]model.HourlyPerformance, 0, 24)
	for hour := range 24 {
		performance = append(performance, model.HourlyPerformance{
			Hour:            hour,
			DecodeCount:     len(hourlyData[hour]),
			AvgResponseTime: calculateAvgResponseTime(hourlyData[hour]),
		})
	}
	return performance
}

// getPopularInputs returns the most decoded inputs among successful decodes.
// Ties are ordered by input.
func getPopularInputs(events []model.UsageEvent) []model.PopularInput {
	counts := make(map[string]*model.PopularInput)
	for _, event := range events {
		if event.Outcome != model.OutcomeOK || event.Input == "" {
			continue
		}
		p, ok := counts[event.Input]
		if !ok {
			p = &model.PopularInput{Input: event.Input}
			counts[event.Input] = p
		}
		p.DecodeCount++
		p.LastText = event.Text
	}

	popular := make([]model.PopularInput, 0, len(counts))
	for _, p := range counts {
		popular = append(popular, *p)
	}
	slices.SortFunc(popular, func(a, b model.PopularInput) int {
		if a.DecodeCount != b.DecodeCount {
			return b.DecodeCount - a.DecodeCount
		}
		if a.Input < b.Input {
			return -1
		}
		if a.Input > b.Input {
			return 1
		}
		return 0
	})
	if len(popular) > popularInputsTop {
		popular = popular[:popularInputsTop]
	}
	return popular
}

// getDictionaryUsage returns request counts for each loaded dictionary
func (s *Service) getDictionaryUsage(events []model.UsageEvent) []model.DictionaryUsage {
	decodeCounts := make(map[string]int)
	trainCounts := make(map[string]int)
	for _, event := range events {
		switch event.Kind {
		case model.EventKindDecode:
			decodeCounts[event.DictionaryName]++
		case model.EventKindTrain:
			trainCounts[event.DictionaryName]++
		}
	}

	if s.manager == nil {
		return nil
	}
	names := s.manager.ListDictionaries()
	usage := make([]model.DictionaryUsage, 0, len(names))
	for _, name := range names {
		phraseCount := 0
		if dict, err := s.manager.GetDictionary(name); err == nil {
			phraseCount = dict.Stats().PhraseCount
		}
		usage = append(usage, model.DictionaryUsage{
			DictionaryName: name,
			PhraseCount:    phraseCount,
			DecodeCount:    decodeCounts[name],
			TrainCount:     trainCounts[name],
		})
	}
	return usage
}

// getResponseTimeDistribution returns response time distribution
func getResponseTimeDistribution(events []model.UsageEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)
	if total == 0 {
		return dist
	}

	for _, event := range events {
		switch ms := event.ResponseTime.Milliseconds(); {
		case ms <= 5:
			dist.Bucket0To5ms++
		case ms <= 25:
			dist.Bucket5To25ms++
		case ms <= 100:
			dist.Bucket25To100ms++
		default:
			dist.Bucket100msPlus++
		}
	}

	dist.Percentage0To5 = float64(dist.Bucket0To5ms) / float64(total) * 100
	dist.Percentage5To25 = float64(dist.Bucket5To25ms) / float64(total) * 100
	dist.Percentage25To100 = float64(dist.Bucket25To100ms) / float64(total) * 100
	dist.Percentage100Plus = float64(dist.Bucket100msPlus) / float64(total) * 100
	return dist
}

func getOutcomeStats(events []model.UsageEvent) model.OutcomeStats {
	stats := model.OutcomeStats{}
	for _, event := range events {
		switch event.Outcome {
		case model.OutcomeOK:
			stats.OK++
		case model.OutcomeNoMatch:
			stats.NoMatch++
		case model.OutcomeTimeout:
			stats.Timeout++
		case model.OutcomeInvalid:
			stats.Invalid++
		default:
			stats.Error++
		}
	}
	return stats
}

// getSystemHealth returns current process memory and goroutine figures
func getSystemHealth() model.SystemHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return model.SystemHealth{
		HeapAllocMB: float64(m.HeapAlloc) / (1 << 20),
		HeapSysMB:   float64(m.HeapSys) / (1 << 20),
		Goroutines:  runtime.NumGoroutine(),
	}
}

// loadData loads analytics data from file
func (s *Service) loadData() error {
	if s.dataFilePath == "" {
		return nil
	}
	var events []model.UsageEvent
	if err := persistence.LoadGob(s.dataFilePath, &events); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // File doesn't exist yet, that's okay
		}
		return err
	}
	s.events = events
	return nil
}
