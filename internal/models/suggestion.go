package models

import (
	"fmt"
	"time"
)

// Priority classifies how urgently a suggestion set should be acted on.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a priority string. Unknown values are rejected.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	}
	return "", fmt.Errorf("invalid priority %q", s)
}

// SuggestionReport holds AI-generated agricultural recommendations for the
// weather at one location. Immutable once constructed.
type SuggestionReport struct {
	Location    string    `json:"location"`
	Suggestions []string  `json:"suggestions"`
	Priority    Priority  `json:"priority"`
	Confidence  float64   `json:"confidence"` // 0.0-1.0
	Reasoning   string    `json:"reasoning"`
	GeneratedAt time.Time `json:"generatedAt"`
}
