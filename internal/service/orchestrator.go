package service

import (
	"context"
	"sync"
	"time"

	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/observability"
)

// Orchestrator composes the weather and suggestion services for the bulk
// analysis use case.
type Orchestrator struct {
	weather *WeatherService
	agro    *AgroService
}

// NewOrchestrator creates an Orchestrator over the two services.
func NewOrchestrator(weather *WeatherService, agro *AgroService) *Orchestrator {
	return &Orchestrator{weather: weather, agro: agro}
}

// BulkAnalyze resolves weather for all locations concurrently, then resolves
// suggestions concurrently for the locations whose weather succeeded. A
// weather-stage failure produces one failure entry and no suggestion attempt;
// a suggestion-stage failure keeps the weather record. The report has exactly
// one entry per input location, in input order.
func (o *Orchestrator) BulkAnalyze(ctx context.Context, specs []models.LocationSpec) []models.FarmAnalysis {
	start := time.Now()
	observability.BatchSize.WithLabelValues("bulk_analyze").Observe(float64(len(specs)))

	weatherOutcomes := o.weather.FetchMany(ctx, specs)

	report := make([]models.FarmAnalysis, len(specs))
	var wg sync.WaitGroup
	for i, outcome := range weatherOutcomes {
		if outcome.Failure != nil {
			report[i] = models.FarmAnalysis{
				Location:    outcome.Location,
				FailedStage: models.StageWeather,
				Failure:     outcome.Failure,
			}
			continue
		}

		wg.Add(1)
		go func(i int, location string, weather *models.WeatherRecord) {
			defer wg.Done()
			suggestion, err := o.agro.Analyze(ctx, *weather)
			if err != nil {
				observability.BatchFailuresTotal.WithLabelValues(models.StageSuggestion).Inc()
				report[i] = models.FarmAnalysis{
					Location:    location,
					Weather:     weather,
					FailedStage: models.StageSuggestion,
					Failure:     failureFromError(err),
				}
				return
			}
			report[i] = models.FarmAnalysis{
				Location:   location,
				Weather:    weather,
				Suggestion: &suggestion,
			}
		}(i, outcome.Location, outcome.Weather)
	}
	wg.Wait()

	observability.BatchDuration.WithLabelValues("bulk_analyze").Observe(time.Since(start).Seconds())
	return report
}
