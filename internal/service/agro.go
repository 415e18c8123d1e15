package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/farmville-istec/farmville/internal/cache"
	"github.com/farmville-istec/farmville/internal/circuitbreaker"
	"github.com/farmville-istec/farmville/internal/client"
	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/observability"
)

// defaultPressure is used by QuickAnalyze, which takes no pressure input.
const defaultPressure = 1013.0

// AgroService generates agricultural suggestions for weather conditions via
// the language-model provider, with cache-aside on a key summarizing the
// inputs that matter to the suggestion. Like WeatherService, concurrent
// misses on the same key may issue redundant provider calls.
type AgroService struct {
	ai      client.CompletionClient
	cache   cache.Store[models.SuggestionReport]
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker // nil when disabled
	events  Subject
}

// NewAgroService creates an AgroService. breaker may be nil to disable
// circuit breaking around the model provider.
func NewAgroService(ai client.CompletionClient, cache cache.Store[models.SuggestionReport], ttl time.Duration, breaker *circuitbreaker.CircuitBreaker) *AgroService {
	return &AgroService{
		ai:      ai,
		cache:   cache,
		ttl:     ttl,
		breaker: breaker,
	}
}

// Attach registers an observer for agro events.
func (s *AgroService) Attach(o Observer) {
	s.events.Attach(o)
}

// Detach removes a registered observer.
func (s *AgroService) Detach(o Observer) {
	s.events.Detach(o)
}

// agroCacheKey summarizes the weather inputs the suggestion depends on:
// normalized location, temperature rounded to the nearest degree, humidity,
// and the normalized description. Materially identical weather re-analyzed
// within the TTL is served from cache.
func agroCacheKey(w models.WeatherRecord) string {
	return fmt.Sprintf("agro:%s:%d:%d:%s",
		normalizeLocation(w.Location),
		int(math.Round(w.Temperature)),
		w.Humidity,
		normalizeLocation(w.Description))
}

// Analyze generates suggestions for the weather record. Only provider
// transport/auth failures return an error; a response that cannot be parsed
// as structured data yields the deterministic medium-priority fallback.
func (s *AgroService) Analyze(ctx context.Context, weather models.WeatherRecord) (models.SuggestionReport, error) {
	key := agroCacheKey(weather)
	logger := loggerFromContext(ctx)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		if logger != nil {
			logger.Warn("agro cache get failed", zap.String("key", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("agro").Inc()
		if logger != nil {
			logger.Debug("agro cache hit", zap.String("key", key))
		}
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues("agro").Inc()

	raw, err := s.complete(ctx, weather)
	if err != nil {
		s.events.Notify(Event{Type: EventAIError, Location: weather.Location, Err: err})
		return models.SuggestionReport{}, fmt.Errorf("analyze weather for %s: %w", weather.Location, err)
	}

	suggestions, priority, confidence, reasoning, fellBack := parseSuggestion(raw)
	if fellBack {
		observability.AIFallbacksTotal.Inc()
		if logger != nil {
			logger.Warn("unparseable AI response, using fallback", zap.String("location", weather.Location))
		}
	}

	report := models.SuggestionReport{
		Location:    weather.Location,
		Suggestions: suggestions,
		Priority:    priority,
		Confidence:  confidence,
		Reasoning:   reasoning,
		GeneratedAt: time.Now(),
	}

	if setErr := s.cache.Set(ctx, key, report, s.ttl); setErr != nil && logger != nil {
		logger.Warn("agro cache set failed", zap.String("key", key), zap.Error(setErr))
	}

	s.events.Notify(Event{Type: EventSuggestionGenerated, Location: weather.Location, Suggestion: &report})
	if report.Priority == models.PriorityHigh || report.Priority == models.PriorityUrgent {
		s.events.Notify(Event{Type: EventHighPriorityAlert, Location: weather.Location, Suggestion: &report})
	}

	return report, nil
}

// complete calls the model provider, through the circuit breaker when one is
// configured. An open circuit reads as provider unavailability.
func (s *AgroService) complete(ctx context.Context, weather models.WeatherRecord) (string, error) {
	prompt := buildPrompt(weather)
	if s.breaker == nil {
		return s.ai.Complete(ctx, systemPrompt, prompt)
	}

	var raw string
	err := s.breaker.Call(func() error {
		var callErr error
		raw, callErr = s.ai.Complete(ctx, systemPrompt, prompt)
		return callErr
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "", fmt.Errorf("%w: %v", client.ErrProviderUnavailable, err)
	}
	return raw, err
}

// QuickAnalyze runs the same pipeline from scalar inputs, skipping the
// WeatherRecord indirection. Pressure defaults to 1013.0 hPa.
func (s *AgroService) QuickAnalyze(ctx context.Context, temperature float64, humidity int, description, location string) (models.SuggestionReport, error) {
	return s.Analyze(ctx, models.WeatherRecord{
		Location:    location,
		Temperature: temperature,
		Humidity:    humidity,
		Pressure:    defaultPressure,
		Description: description,
		FetchedAt:   time.Now(),
	})
}

// AnalyzeMany resolves suggestions for all records concurrently with the same
// all-complete, ordered, partial-failure semantics as WeatherService.FetchMany.
func (s *AgroService) AnalyzeMany(ctx context.Context, weatherList []models.WeatherRecord) []models.SuggestionOutcome {
	start := time.Now()
	observability.BatchSize.WithLabelValues("analyze_many").Observe(float64(len(weatherList)))

	outcomes := make([]models.SuggestionOutcome, len(weatherList))
	var wg sync.WaitGroup
	for i, weather := range weatherList {
		wg.Add(1)
		go func(i int, weather models.WeatherRecord) {
			defer wg.Done()
			report, err := s.Analyze(ctx, weather)
			if err != nil {
				observability.BatchFailuresTotal.WithLabelValues(models.StageSuggestion).Inc()
				outcomes[i] = models.SuggestionOutcome{Location: weather.Location, Failure: failureFromError(err)}
				return
			}
			outcomes[i] = models.SuggestionOutcome{Location: weather.Location, Suggestion: &report}
		}(i, weather)
	}
	wg.Wait()

	observability.BatchDuration.WithLabelValues("analyze_many").Observe(time.Since(start).Seconds())
	return outcomes
}

// ClearCache removes all cached suggestion reports.
func (s *AgroService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// CacheStats reports entry count and keys when the backend supports
// introspection (in-memory does; memcached reports -1, nil).
func (s *AgroService) CacheStats() (int, []string) {
	if m, ok := s.cache.(*cache.InMemory[models.SuggestionReport]); ok {
		return m.Stats()
	}
	return -1, nil
}
