package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/farmville-istec/farmville/internal/models"
)

// Agro event types published by AgroService.
const (
	EventSuggestionGenerated = "suggestion_generated"
	EventHighPriorityAlert   = "high_priority_alert"
	EventAIError             = "ai_error"
)

// Event carries what happened for one location.
type Event struct {
	Type       string
	Location   string
	Suggestion *models.SuggestionReport // set for suggestion events
	Err        error                    // set for EventAIError
}

// Observer receives agro events. Handlers run synchronously on the goroutine
// that produced the event and must not block.
type Observer interface {
	HandleEvent(e Event)
}

// Subject keeps the observer list and fans events out to it.
type Subject struct {
	mu        sync.RWMutex
	observers []Observer
}

// Attach registers an observer. Duplicates are ignored.
func (s *Subject) Attach(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.observers {
		if existing == o {
			return
		}
	}
	s.observers = append(s.observers, o)
}

// Detach removes an observer if registered.
func (s *Subject) Detach(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.observers {
		if existing == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify delivers the event to every observer.
func (s *Subject) Notify(e Event) {
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, o := range observers {
		o.HandleEvent(e)
	}
}

// AlertObserver logs agro events and keeps per-type counts for the stats
// endpoint. High-priority alerts log at WARN.
type AlertObserver struct {
	logger *zap.Logger

	mu     sync.Mutex
	counts map[string]int
}

// NewAlertObserver creates an AlertObserver logging to logger.
func NewAlertObserver(logger *zap.Logger) *AlertObserver {
	return &AlertObserver{
		logger: logger,
		counts: make(map[string]int),
	}
}

// HandleEvent implements Observer.
func (o *AlertObserver) HandleEvent(e Event) {
	o.mu.Lock()
	o.counts[e.Type]++
	o.mu.Unlock()

	switch e.Type {
	case EventSuggestionGenerated:
		if e.Suggestion != nil {
			o.logger.Info("agro suggestions generated",
				zap.String("location", e.Location),
				zap.Int("count", len(e.Suggestion.Suggestions)),
				zap.String("priority", string(e.Suggestion.Priority)))
		}
	case EventHighPriorityAlert:
		if e.Suggestion != nil {
			o.logger.Warn("high priority agro alert",
				zap.String("location", e.Location),
				zap.String("priority", string(e.Suggestion.Priority)),
				zap.Strings("suggestions", e.Suggestion.Suggestions))
		}
	case EventAIError:
		o.logger.Error("agro analysis failed",
			zap.String("location", e.Location),
			zap.Error(e.Err))
	}
}

// Stats returns total events and the per-type breakdown.
func (o *AlertObserver) Stats() (int, map[string]int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	total := 0
	breakdown := make(map[string]int, len(o.counts))
	for k, v := range o.counts {
		total += v
		breakdown[k] = v
	}
	return total, breakdown
}
