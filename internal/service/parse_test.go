package service

import (
	"reflect"
	"testing"

	"github.com/farmville-istec/farmville/internal/models"
)

func TestParseSuggestion_WellFormed(t *testing.T) {
	raw := `{"suggestions": ["water early", "check drainage"], "priority": "high", "confidence": 0.85, "reasoning": "heavy rain expected"}`

	suggestions, priority, confidence, reasoning, fellBack := parseSuggestion(raw)
	if fellBack {
		t.Fatal("fellBack = true, want false for well-formed payload")
	}
	if !reflect.DeepEqual(suggestions, []string{"water early", "check drainage"}) {
		t.Errorf("suggestions = %v", suggestions)
	}
	if priority != models.PriorityHigh {
		t.Errorf("priority = %q, want %q", priority, models.PriorityHigh)
	}
	if confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", confidence)
	}
	if reasoning != "heavy rain expected" {
		t.Errorf("reasoning = %q", reasoning)
	}
}

func TestParseSuggestion_JSONWrappedInProse(t *testing.T) {
	raw := "Sure! Here is the analysis:\n```json\n" +
		`{"suggestions": ["irrigate at dawn"], "priority": "low", "confidence": 0.9, "reasoning": "mild conditions"}` +
		"\n```\nLet me know if you need more."

	suggestions, priority, _, _, fellBack := parseSuggestion(raw)
	if fellBack {
		t.Fatal("fellBack = true, want extraction between first '{' and last '}'")
	}
	if len(suggestions) != 1 || suggestions[0] != "irrigate at dawn" {
		t.Errorf("suggestions = %v", suggestions)
	}
	if priority != models.PriorityLow {
		t.Errorf("priority = %q, want %q", priority, models.PriorityLow)
	}
}

func TestParseSuggestion_Fallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain prose", raw: "water your crops regularly and watch for frost"},
		{name: "empty string", raw: ""},
		{name: "broken JSON", raw: `{"suggestions": ["water early"`},
		{name: "braces around non-JSON", raw: "consider {more water} today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions, priority, confidence, reasoning, fellBack := parseSuggestion(tt.raw)
			if !fellBack {
				t.Fatal("fellBack = false, want fallback")
			}
			if suggestions != nil {
				t.Errorf("suggestions = %v, want nil", suggestions)
			}
			if priority != models.PriorityMedium {
				t.Errorf("priority = %q, want %q", priority, models.PriorityMedium)
			}
			if confidence != fallbackConfidence {
				t.Errorf("confidence = %v, want %v", confidence, fallbackConfidence)
			}
			if reasoning != fallbackReasoning {
				t.Errorf("reasoning = %q, want %q", reasoning, fallbackReasoning)
			}
		})
	}
}

func TestParseSuggestion_FieldSanitization(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantSuggestion []string
		wantPriority   models.Priority
		wantConfidence float64
		wantReasoning  string
	}{
		{
			name:           "unknown priority defaults to medium",
			raw:            `{"suggestions": ["mulch beds"], "priority": "catastrophic", "confidence": 0.7, "reasoning": "r"}`,
			wantSuggestion: []string{"mulch beds"},
			wantPriority:   models.PriorityMedium,
			wantConfidence: 0.7,
			wantReasoning:  "r",
		},
		{
			name:           "priority is case-insensitive",
			raw:            `{"suggestions": ["mulch beds"], "priority": "URGENT", "confidence": 0.7, "reasoning": "r"}`,
			wantSuggestion: []string{"mulch beds"},
			wantPriority:   models.PriorityUrgent,
			wantConfidence: 0.7,
			wantReasoning:  "r",
		},
		{
			name:           "out-of-range confidence resets",
			raw:            `{"suggestions": ["mulch beds"], "priority": "low", "confidence": 1.5, "reasoning": "r"}`,
			wantSuggestion: []string{"mulch beds"},
			wantPriority:   models.PriorityLow,
			wantConfidence: fallbackConfidence,
			wantReasoning:  "r",
		},
		{
			name:           "missing confidence resets",
			raw:            `{"suggestions": ["mulch beds"], "priority": "low", "reasoning": "r"}`,
			wantSuggestion: []string{"mulch beds"},
			wantPriority:   models.PriorityLow,
			wantConfidence: fallbackConfidence,
			wantReasoning:  "r",
		},
		{
			name:           "blank and duplicate suggestions drop",
			raw:            `{"suggestions": ["  water early  ", "", "water early"], "priority": "low", "confidence": 0.7, "reasoning": "r"}`,
			wantSuggestion: []string{"water early"},
			wantPriority:   models.PriorityLow,
			wantConfidence: 0.7,
			wantReasoning:  "r",
		},
		{
			name:           "empty reasoning gets default",
			raw:            `{"suggestions": ["mulch beds"], "priority": "low", "confidence": 0.7, "reasoning": "  "}`,
			wantSuggestion: []string{"mulch beds"},
			wantPriority:   models.PriorityLow,
			wantConfidence: 0.7,
			wantReasoning:  fallbackReasoning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions, priority, confidence, reasoning, fellBack := parseSuggestion(tt.raw)
			if fellBack {
				t.Fatal("fellBack = true, want field-level sanitization without fallback")
			}
			if !reflect.DeepEqual(suggestions, tt.wantSuggestion) {
				t.Errorf("suggestions = %v, want %v", suggestions, tt.wantSuggestion)
			}
			if priority != tt.wantPriority {
				t.Errorf("priority = %q, want %q", priority, tt.wantPriority)
			}
			if confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", confidence, tt.wantConfidence)
			}
			if reasoning != tt.wantReasoning {
				t.Errorf("reasoning = %q, want %q", reasoning, tt.wantReasoning)
			}
		})
	}
}
