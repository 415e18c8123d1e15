package service

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/farmville-istec/farmville/internal/models"
)

func TestSubject_AttachNotifyDetach(t *testing.T) {
	var subject Subject
	a := &recordingObserver{}
	b := &recordingObserver{}

	subject.Attach(a)
	subject.Attach(b)
	subject.Attach(a) // duplicate, ignored

	subject.Notify(Event{Type: EventSuggestionGenerated, Location: "Porto"})
	if len(a.events) != 1 {
		t.Errorf("a received %d events, want 1 (duplicate attach ignored)", len(a.events))
	}
	if len(b.events) != 1 {
		t.Errorf("b received %d events, want 1", len(b.events))
	}

	subject.Detach(a)
	subject.Notify(Event{Type: EventAIError, Location: "Porto", Err: errors.New("boom")})
	if len(a.events) != 1 {
		t.Errorf("a received %d events after detach, want 1", len(a.events))
	}
	if len(b.events) != 2 {
		t.Errorf("b received %d events, want 2", len(b.events))
	}
}

func TestSubject_DetachUnknownObserver(t *testing.T) {
	var subject Subject
	subject.Detach(&recordingObserver{}) // no-op, must not panic
	subject.Notify(Event{Type: EventSuggestionGenerated})
}

func TestAlertObserver_Stats(t *testing.T) {
	obs := NewAlertObserver(zap.NewNop())
	report := models.SuggestionReport{
		Location:    "Porto",
		Suggestions: []string{"water early"},
		Priority:    models.PriorityUrgent,
	}

	obs.HandleEvent(Event{Type: EventSuggestionGenerated, Location: "Porto", Suggestion: &report})
	obs.HandleEvent(Event{Type: EventHighPriorityAlert, Location: "Porto", Suggestion: &report})
	obs.HandleEvent(Event{Type: EventSuggestionGenerated, Location: "Braga", Suggestion: &report})
	obs.HandleEvent(Event{Type: EventAIError, Location: "Faro", Err: errors.New("boom")})

	total, breakdown := obs.Stats()
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if breakdown[EventSuggestionGenerated] != 2 {
		t.Errorf("suggestion_generated = %d, want 2", breakdown[EventSuggestionGenerated])
	}
	if breakdown[EventHighPriorityAlert] != 1 {
		t.Errorf("high_priority_alert = %d, want 1", breakdown[EventHighPriorityAlert])
	}
	if breakdown[EventAIError] != 1 {
		t.Errorf("ai_error = %d, want 1", breakdown[EventAIError])
	}
}

func TestAlertObserver_NilSuggestionDoesNotPanic(t *testing.T) {
	obs := NewAlertObserver(zap.NewNop())
	obs.HandleEvent(Event{Type: EventSuggestionGenerated, Location: "Porto"})
	obs.HandleEvent(Event{Type: EventHighPriorityAlert, Location: "Porto"})

	total, _ := obs.Stats()
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}
