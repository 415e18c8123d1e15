package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/farmville-istec/farmville/internal/models"
)

// WeatherFetcher is implemented by the service layer. Declared here so the
// warmer does not depend on the service package.
type WeatherFetcher interface {
	FetchOne(ctx context.Context, spec models.LocationSpec) (models.WeatherRecord, error)
}

// Warmer prefetches weather for a fixed set of locations so the first user
// request after startup hits a warm cache.
type Warmer struct {
	fetcher WeatherFetcher
	logger  *zap.Logger
}

// NewWarmer creates a Warmer using the given fetcher and logger.
func NewWarmer(fetcher WeatherFetcher, logger *zap.Logger) *Warmer {
	return &Warmer{fetcher: fetcher, logger: logger}
}

// Warm fetches weather for each location concurrently. Returns an aggregated
// error if any location failed.
func (w *Warmer) Warm(ctx context.Context, locations []models.LocationSpec) error {
	start := time.Now()
	if w.logger != nil {
		w.logger.Info("warming weather cache", zap.Int("locations", len(locations)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(locations))
	for _, loc := range locations {
		wg.Add(1)
		go func(loc models.LocationSpec) {
			defer wg.Done()
			if _, err := w.fetcher.FetchOne(ctx, loc); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", loc.Name, err)
			}
		}(loc)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if w.logger != nil {
		w.logger.Info("cache warming complete",
			zap.Int("locations", len(locations)),
			zap.Int("errors", len(errs)),
			zap.Duration("duration", time.Since(start)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, locations []models.LocationSpec, interval time.Duration) error {
	if err := w.Warm(ctx, locations); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, locations); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
