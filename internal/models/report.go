package models

// Failure describes why one entry of a batch operation did not produce data.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Failure kinds used in batch outcomes.
const (
	FailureProviderUnavailable     = "provider_unavailable"
	FailureProviderResponseInvalid = "provider_response_invalid"
	FailureLocationNotFound        = "location_not_found"
	FailureRateLimited             = "rate_limited"
	FailureInvalidAPIKey           = "invalid_api_key"
)

// Stages of the bulk analysis pipeline, recorded on partial failures.
const (
	StageWeather    = "weather"
	StageSuggestion = "suggestion"
)

// WeatherOutcome is one entry of a batch weather fetch. Exactly one of
// Weather or Failure is set.
type WeatherOutcome struct {
	Location string         `json:"location"`
	Weather  *WeatherRecord `json:"weather,omitempty"`
	Failure  *Failure       `json:"failure,omitempty"`
}

// SuggestionOutcome is one entry of a batch suggestion run. Exactly one of
// Suggestion or Failure is set.
type SuggestionOutcome struct {
	Location   string            `json:"location"`
	Suggestion *SuggestionReport `json:"suggestion,omitempty"`
	Failure    *Failure          `json:"failure,omitempty"`
}

// FarmAnalysis is one entry of a bulk weather+suggestion analysis.
// FailedStage is empty on full success, StageWeather when the weather fetch
// failed (no suggestion is attempted), or StageSuggestion when weather
// resolved but the suggestion did not.
type FarmAnalysis struct {
	Location    string            `json:"location"`
	Weather     *WeatherRecord    `json:"weather,omitempty"`
	Suggestion  *SuggestionReport `json:"suggestion,omitempty"`
	FailedStage string            `json:"failedStage,omitempty"`
	Failure     *Failure          `json:"failure,omitempty"`
}
