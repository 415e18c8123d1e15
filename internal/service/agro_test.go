package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/farmville-istec/farmville/internal/cache"
	"github.com/farmville-istec/farmville/internal/circuitbreaker"
	"github.com/farmville-istec/farmville/internal/client"
	"github.com/farmville-istec/farmville/internal/models"
)

// fakeCompletionClient returns a canned response or error, counting calls.
type fakeCompletionClient struct {
	calls    atomic.Int32
	response string
	err      error
}

func (f *fakeCompletionClient) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// recordingObserver collects events for assertions.
type recordingObserver struct {
	events []Event
}

func (r *recordingObserver) HandleEvent(e Event) {
	r.events = append(r.events, e)
}

func newTestAgroService(ai client.CompletionClient, breaker *circuitbreaker.CircuitBreaker) *AgroService {
	return NewAgroService(ai, cache.NewInMemory[models.SuggestionReport](), time.Minute, breaker)
}

func mildWeather() models.WeatherRecord {
	return models.WeatherRecord{
		Location:    "Porto",
		Temperature: 18.0,
		Humidity:    65,
		Pressure:    1013.0,
		Description: "clear sky",
		FetchedAt:   time.Now(),
	}
}

const validCompletion = `{"suggestions": ["water early", "check soil"], "priority": "high", "confidence": 0.8, "reasoning": "warm and dry"}`

func TestAgroService_Analyze_Success(t *testing.T) {
	fake := &fakeCompletionClient{response: validCompletion}
	svc := newTestAgroService(fake, nil)

	report, err := svc.Analyze(context.Background(), mildWeather())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.Location != "Porto" {
		t.Errorf("Location = %q, want Porto", report.Location)
	}
	if len(report.Suggestions) != 2 {
		t.Errorf("Suggestions = %v, want 2 entries", report.Suggestions)
	}
	if report.Priority != models.PriorityHigh {
		t.Errorf("Priority = %q, want high", report.Priority)
	}
	if report.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", report.Confidence)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("GeneratedAt is zero")
	}
}

func TestAgroService_Analyze_CachesBySummarizedInputs(t *testing.T) {
	fake := &fakeCompletionClient{response: validCompletion}
	svc := newTestAgroService(fake, nil)
	ctx := context.Background()

	w := mildWeather()
	if _, err := svc.Analyze(ctx, w); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// Sub-degree temperature movement rounds to the same key.
	w.Temperature = 18.3
	if _, err := svc.Analyze(ctx, w); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if fake.calls.Load() != 1 {
		t.Errorf("provider calls = %d, want 1 (materially identical weather is cached)", fake.calls.Load())
	}

	// A humidity change is a different key.
	w.Humidity = 90
	if _, err := svc.Analyze(ctx, w); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if fake.calls.Load() != 2 {
		t.Errorf("provider calls = %d, want 2 after humidity change", fake.calls.Load())
	}
}

func TestAgroService_Analyze_UnparseableUsesFallback(t *testing.T) {
	fake := &fakeCompletionClient{response: "sorry, I cannot produce JSON today"}
	svc := newTestAgroService(fake, nil)

	report, err := svc.Analyze(context.Background(), mildWeather())
	if err != nil {
		t.Fatalf("Analyze() error = %v, parse failures must not surface", err)
	}
	if report.Priority != models.PriorityMedium {
		t.Errorf("Priority = %q, want medium fallback", report.Priority)
	}
	if report.Confidence != fallbackConfidence {
		t.Errorf("Confidence = %v, want %v", report.Confidence, fallbackConfidence)
	}
	if report.Reasoning != fallbackReasoning {
		t.Errorf("Reasoning = %q, want %q", report.Reasoning, fallbackReasoning)
	}
}

func TestAgroService_Analyze_ProviderErrorSurfaces(t *testing.T) {
	fake := &fakeCompletionClient{err: client.ErrProviderUnavailable}
	svc := newTestAgroService(fake, nil)

	_, err := svc.Analyze(context.Background(), mildWeather())
	if !errors.Is(err, client.ErrProviderUnavailable) {
		t.Fatalf("Analyze() error = %v, want %v", err, client.ErrProviderUnavailable)
	}

	// Failures are not cached.
	if count, _ := svc.CacheStats(); count != 0 {
		t.Errorf("cache entries = %d, want 0", count)
	}
}

func TestAgroService_Analyze_OpenBreakerReadsAsUnavailable(t *testing.T) {
	fake := &fakeCompletionClient{err: client.ErrProviderUnavailable}
	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})
	svc := newTestAgroService(fake, breaker)
	ctx := context.Background()

	// First failure trips the breaker.
	if _, err := svc.Analyze(ctx, mildWeather()); err == nil {
		t.Fatal("Analyze() expected error")
	}

	w := mildWeather()
	w.Humidity = 90 // avoid the cache key of the first call
	_, err := svc.Analyze(ctx, w)
	if !errors.Is(err, client.ErrProviderUnavailable) {
		t.Fatalf("Analyze() error = %v, want %v while breaker is open", err, client.ErrProviderUnavailable)
	}
	if fake.calls.Load() != 1 {
		t.Errorf("provider calls = %d, want 1 (open breaker short-circuits)", fake.calls.Load())
	}
}

func TestAgroService_Analyze_EmitsEvents(t *testing.T) {
	fake := &fakeCompletionClient{response: validCompletion} // high priority
	svc := newTestAgroService(fake, nil)
	rec := &recordingObserver{}
	svc.Attach(rec)

	if _, err := svc.Analyze(context.Background(), mildWeather()); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	var types []string
	for _, e := range rec.events {
		types = append(types, e.Type)
	}
	if len(types) != 2 || types[0] != EventSuggestionGenerated || types[1] != EventHighPriorityAlert {
		t.Errorf("event types = %v, want [suggestion_generated high_priority_alert]", types)
	}
}

func TestAgroService_Analyze_ErrorEvent(t *testing.T) {
	fake := &fakeCompletionClient{err: client.ErrRateLimited}
	svc := newTestAgroService(fake, nil)
	rec := &recordingObserver{}
	svc.Attach(rec)

	_, err := svc.Analyze(context.Background(), mildWeather())
	if !errors.Is(err, client.ErrRateLimited) {
		t.Fatalf("Analyze() error = %v, want %v", err, client.ErrRateLimited)
	}
	if len(rec.events) != 1 || rec.events[0].Type != EventAIError {
		t.Errorf("events = %v, want single ai_error", rec.events)
	}
	if !errors.Is(rec.events[0].Err, client.ErrRateLimited) {
		t.Errorf("event error = %v, want rate limited", rec.events[0].Err)
	}
}

func TestAgroService_QuickAnalyze(t *testing.T) {
	fake := &fakeCompletionClient{response: validCompletion}
	svc := newTestAgroService(fake, nil)

	report, err := svc.QuickAnalyze(context.Background(), 25.0, 40, "sunny", "Faro")
	if err != nil {
		t.Fatalf("QuickAnalyze() error = %v", err)
	}
	if report.Location != "Faro" {
		t.Errorf("Location = %q, want Faro", report.Location)
	}
	if fake.calls.Load() != 1 {
		t.Errorf("provider calls = %d, want 1", fake.calls.Load())
	}
}

func TestAgroService_AnalyzeMany_PartialFailure(t *testing.T) {
	fake := &fakeCompletionClient{response: validCompletion}
	svc := newTestAgroService(fake, nil)

	a := mildWeather()
	b := mildWeather()
	b.Location = "Braga"
	b.Humidity = 90

	outcomes := svc.AnalyzeMany(context.Background(), []models.WeatherRecord{a, b})
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Suggestion == nil || o.Failure != nil {
			t.Errorf("outcomes[%d] = %+v, want success", i, o)
		}
	}
	if outcomes[0].Location != "Porto" || outcomes[1].Location != "Braga" {
		t.Errorf("locations = %q, %q, want input order", outcomes[0].Location, outcomes[1].Location)
	}
}
