package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/farmville-istec/farmville/internal/cache"
	"github.com/farmville-istec/farmville/internal/client"
	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/observability"
)

// WeatherService retrieves current conditions using the cache-aside pattern
// with upstream API fallback.
//
// Two concurrent misses on the same key both call the provider and both write
// the cache. That is a deliberate choice, not an oversight: the redundant call
// is harmless (last write wins, both writes carry equivalent data) and the
// surrounding system is far too small for a single-flight layer to pay for
// its complexity.
type WeatherService struct {
	client client.WeatherClient
	cache  cache.Store[models.WeatherRecord]
	ttl    time.Duration
}

// NewWeatherService creates a WeatherService. ttl is the cache expiration for
// fetched records.
func NewWeatherService(client client.WeatherClient, cache cache.Store[models.WeatherRecord], ttl time.Duration) *WeatherService {
	return &WeatherService{
		client: client,
		cache:  cache,
		ttl:    ttl,
	}
}

// weatherCacheKey builds the cache key from the normalized location name and
// coordinates rounded to 4 decimals (~11m), so nearby queries for the same
// farm share an entry.
func weatherCacheKey(location string, lat, lon float64) string {
	return fmt.Sprintf("%s@%.4f,%.4f", normalizeLocation(location), lat, lon)
}

// FetchOne returns current conditions for the location. Cache hits return
// immediately; misses call the upstream provider and populate the cache.
// Provider failures are returned without populating the cache.
func (s *WeatherService) FetchOne(ctx context.Context, spec models.LocationSpec) (models.WeatherRecord, error) {
	key := weatherCacheKey(spec.Name, spec.Latitude, spec.Longitude)
	logger := loggerFromContext(ctx)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		// Backend trouble reads as a miss; the fetch below recovers.
		if logger != nil {
			logger.Warn("weather cache get failed", zap.String("key", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("weather").Inc()
		if logger != nil {
			logger.Debug("weather cache hit", zap.String("key", key))
		}
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues("weather").Inc()

	if logger != nil {
		logger.Debug("weather cache miss, fetching upstream", zap.String("key", key))
	}

	record, err := s.client.CurrentConditions(ctx, spec.Name, spec.Latitude, spec.Longitude)
	if err != nil {
		return models.WeatherRecord{}, fmt.Errorf("fetch weather for %s: %w", spec.Name, err)
	}

	if setErr := s.cache.Set(ctx, key, record, s.ttl); setErr != nil && logger != nil {
		logger.Warn("weather cache set failed", zap.String("key", key), zap.Error(setErr))
	}
	return record, nil
}

// FetchMany resolves all locations concurrently, one goroutine per location,
// and waits for every one to finish. The result has exactly one outcome per
// input, in input order; a failed location yields a failure entry without
// aborting its siblings.
func (s *WeatherService) FetchMany(ctx context.Context, specs []models.LocationSpec) []models.WeatherOutcome {
	start := time.Now()
	observability.BatchSize.WithLabelValues("fetch_many").Observe(float64(len(specs)))

	outcomes := make([]models.WeatherOutcome, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec models.LocationSpec) {
			defer wg.Done()
			record, err := s.FetchOne(ctx, spec)
			if err != nil {
				observability.BatchFailuresTotal.WithLabelValues(models.StageWeather).Inc()
				outcomes[i] = models.WeatherOutcome{Location: spec.Name, Failure: failureFromError(err)}
				return
			}
			outcomes[i] = models.WeatherOutcome{Location: spec.Name, Weather: &record}
		}(i, spec)
	}
	wg.Wait()

	observability.BatchDuration.WithLabelValues("fetch_many").Observe(time.Since(start).Seconds())
	return outcomes
}

// ClearCache removes all cached weather records.
func (s *WeatherService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// CacheStats reports entry count and keys when the backend supports
// introspection (in-memory does; memcached reports -1, nil).
func (s *WeatherService) CacheStats() (int, []string) {
	if m, ok := s.cache.(*cache.InMemory[models.WeatherRecord]); ok {
		return m.Stats()
	}
	return -1, nil
}
