package service

import (
	"encoding/json"
	"strings"

	"github.com/farmville-istec/farmville/internal/models"
)

// Deterministic fallback values used when the model's response cannot be
// parsed as structured data. A parse failure never reaches the caller.
const (
	fallbackConfidence = 0.5
	fallbackReasoning  = "AI analysis of weather conditions"
)

type suggestionPayload struct {
	Suggestions []string `json:"suggestions"`
	Priority    string   `json:"priority"`
	Confidence  *float64 `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
}

// parseSuggestion turns the raw completion text into suggestion fields. It is
// a pure function and never fails: any shape assumption about the model's
// output lives here, and a payload that defeats them yields the deterministic
// medium-priority fallback (fellBack=true, for metrics).
//
// Models wrap JSON in prose often enough that a direct unmarshal failure
// retries on the substring between the first '{' and the last '}'.
func parseSuggestion(raw string) (suggestions []string, priority models.Priority, confidence float64, reasoning string, fellBack bool) {
	payload, ok := decodePayload(raw)
	if !ok {
		return nil, models.PriorityMedium, fallbackConfidence, fallbackReasoning, true
	}

	for _, s := range payload.Suggestions {
		s = strings.TrimSpace(s)
		if s == "" || contains(suggestions, s) {
			continue
		}
		suggestions = append(suggestions, s)
	}

	priority, err := models.ParsePriority(strings.ToLower(strings.TrimSpace(payload.Priority)))
	if err != nil {
		priority = models.PriorityMedium
	}

	confidence = fallbackConfidence
	if payload.Confidence != nil && *payload.Confidence >= 0.0 && *payload.Confidence <= 1.0 {
		confidence = *payload.Confidence
	}

	reasoning = strings.TrimSpace(payload.Reasoning)
	if reasoning == "" {
		reasoning = fallbackReasoning
	}

	return suggestions, priority, confidence, reasoning, false
}

func decodePayload(raw string) (suggestionPayload, bool) {
	var payload suggestionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return payload, true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return suggestionPayload{}, false
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return suggestionPayload{}, false
	}
	return payload, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
