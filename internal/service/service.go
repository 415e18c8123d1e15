package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/farmville-istec/farmville/internal/client"
	"github.com/farmville-istec/farmville/internal/models"
)

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// normalizeLocation normalizes location strings by trimming whitespace and
// converting to lowercase, so cache keys are consistent regardless of input
// format.
func normalizeLocation(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}

// failureFromError maps a provider error to the failure descriptor recorded in
// batch outcomes. Kind is stable for programmatic use; Message keeps the
// wrapped detail.
func failureFromError(err error) *models.Failure {
	kind := models.FailureProviderUnavailable
	switch {
	case errors.Is(err, client.ErrProviderResponseInvalid):
		kind = models.FailureProviderResponseInvalid
	case errors.Is(err, client.ErrLocationNotFound):
		kind = models.FailureLocationNotFound
	case errors.Is(err, client.ErrRateLimited):
		kind = models.FailureRateLimited
	case errors.Is(err, client.ErrInvalidAPIKey):
		kind = models.FailureInvalidAPIKey
	}
	return &models.Failure{Kind: kind, Message: err.Error()}
}
