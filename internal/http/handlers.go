package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/farmville-istec/farmville/internal/auth"
	"github.com/farmville-istec/farmville/internal/client"
	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/service"
	"github.com/farmville-istec/farmville/internal/store"
	"github.com/farmville-istec/farmville/internal/validation"
)

// maxBatchLocations caps fan-out size per request.
const maxBatchLocations = 50

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather      *service.WeatherService
	agro         *service.AgroService
	orchestrator *service.Orchestrator
	locations    *service.LocationService
	alerts       *service.AlertObserver
	users        store.UserStore
	terrains     store.TerrainStore
	tokens       *auth.TokenManager
	logger       *zap.Logger

	locationMaxLen int

	// cachePing, when set, checks cache reachability for /health
	// (memcached backend only).
	cachePing func() error
}

// Config wires the Handler's dependencies.
type Config struct {
	Weather        *service.WeatherService
	Agro           *service.AgroService
	Orchestrator   *service.Orchestrator
	Locations      *service.LocationService
	Alerts         *service.AlertObserver
	Users          store.UserStore
	Terrains       store.TerrainStore
	Tokens         *auth.TokenManager
	Logger         *zap.Logger
	LocationMaxLen int
	CachePing      func() error
}

// NewHandler returns a new Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.LocationMaxLen <= 0 {
		cfg.LocationMaxLen = 100
	}
	return &Handler{
		weather:        cfg.Weather,
		agro:           cfg.Agro,
		orchestrator:   cfg.Orchestrator,
		locations:      cfg.Locations,
		alerts:         cfg.Alerts,
		users:          cfg.Users,
		terrains:       cfg.Terrains,
		tokens:         cfg.Tokens,
		logger:         cfg.Logger,
		locationMaxLen: cfg.LocationMaxLen,
		cachePing:      cfg.CachePing,
	}
}

// GetWeather handles GET /weather/{location}?lat=&lon=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	location, err := validation.ValidateLocation(mux.Vars(r)["location"], h.locationMaxLen)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}

	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "lat and lon query parameters are required")
		return
	}
	if err := validation.ValidateCoordinates(lat, lon); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}

	record, err := h.weather.FetchOne(r.Context(), models.LocationSpec{Name: location, Latitude: lat, Longitude: lon})
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type batchRequest struct {
	Locations []models.LocationSpec `json:"locations"`
}

func (h *Handler) decodeBatch(w http.ResponseWriter, r *http.Request) ([]models.LocationSpec, bool) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return nil, false
	}
	if len(req.Locations) == 0 {
		writeError(w, r, http.StatusBadRequest, "NO_LOCATIONS", "at least one location is required")
		return nil, false
	}
	if len(req.Locations) > maxBatchLocations {
		writeError(w, r, http.StatusBadRequest, "TOO_MANY_LOCATIONS", "too many locations in one batch")
		return nil, false
	}
	for i, spec := range req.Locations {
		name, err := validation.ValidateLocation(spec.Name, h.locationMaxLen)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
			return nil, false
		}
		if err := validation.ValidateCoordinates(spec.Latitude, spec.Longitude); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
			return nil, false
		}
		req.Locations[i].Name = name
	}
	return req.Locations, true
}

// BatchWeather handles POST /weather/batch. Partial failures are reported
// per location; the request itself succeeds.
func (h *Handler) BatchWeather(w http.ResponseWriter, r *http.Request) {
	specs, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	outcomes := h.weather.FetchMany(r.Context(), specs)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(outcomes),
		"results": outcomes,
	})
}

type analyzeRequest struct {
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Analyze handles POST /agro/analyze: fetch weather for one location, then
// generate suggestions for it.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	location, err := validation.ValidateLocation(req.Location, h.locationMaxLen)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}
	if err := validation.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}

	weather, err := h.weather.FetchOne(r.Context(), models.LocationSpec{Name: location, Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	suggestion, err := h.agro.Analyze(r.Context(), weather)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"weather":          weather,
		"agro_suggestions": suggestion,
	})
}

type quickAnalyzeRequest struct {
	Temperature float64 `json:"temperature"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
}

// QuickAnalyze handles POST /agro/quick-analyze: suggestions from manual
// weather inputs, no weather provider call.
func (h *Handler) QuickAnalyze(w http.ResponseWriter, r *http.Request) {
	var req quickAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	if req.Location == "" {
		req.Location = "Farm"
	}
	if req.Humidity < 0 || req.Humidity > 100 {
		writeError(w, r, http.StatusBadRequest, "INVALID_HUMIDITY", "humidity must be between 0 and 100")
		return
	}

	suggestion, err := h.agro.QuickAnalyze(r.Context(), req.Temperature, req.Humidity, req.Description, req.Location)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agro_suggestions": suggestion,
	})
}

// BulkAnalyze handles POST /agro/bulk-analyze: weather then suggestions for
// every location, with per-location stage failures.
func (h *Handler) BulkAnalyze(w http.ResponseWriter, r *http.Request) {
	specs, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}
	report := h.orchestrator.BulkAnalyze(r.Context(), specs)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(report),
		"results": report,
	})
}

// GetCacheInfo handles GET /agro/cache-info.
func (h *Handler) GetCacheInfo(w http.ResponseWriter, r *http.Request) {
	weatherCount, weatherKeys := h.weather.CacheStats()
	agroCount, agroKeys := h.agro.CacheStats()
	locationCount, locationKeys := h.locations.CacheStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"weather":  map[string]interface{}{"entries": weatherCount, "keys": weatherKeys},
		"agro":     map[string]interface{}{"entries": agroCount, "keys": agroKeys},
		"location": map[string]interface{}{"entries": locationCount, "keys": locationKeys},
	})
}

// ClearCaches handles POST /agro/cache-clear: clears the weather, suggestion
// and location caches.
func (h *Handler) ClearCaches(w http.ResponseWriter, r *http.Request) {
	if err := h.weather.ClearCache(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, "CACHE_CLEAR_FAILED", "could not clear weather cache")
		return
	}
	if err := h.agro.ClearCache(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, "CACHE_CLEAR_FAILED", "could not clear suggestion cache")
		return
	}
	if err := h.locations.ClearCache(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, "CACHE_CLEAR_FAILED", "could not clear location cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// GetObserverStats handles GET /agro/observer-stats.
func (h *Handler) GetObserverStats(w http.ResponseWriter, r *http.Request) {
	total, breakdown := h.alerts.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_events":    total,
		"event_breakdown": breakdown,
	})
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "healthy"
	statusCode := http.StatusOK

	if h.cachePing != nil {
		if err := h.cachePing(); err != nil {
			checks["cache"] = "unhealthy"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["cache"] = "healthy"
		}
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message, and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID, _ = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeProviderError maps provider errors from single-location operations to
// HTTP statuses. Batch operations never reach here; their failures are
// reported per entry.
func writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, client.ErrLocationNotFound):
		writeError(w, r, http.StatusNotFound, "LOCATION_NOT_FOUND", "location not found")
	case errors.Is(err, client.ErrRateLimited):
		writeError(w, r, http.StatusTooManyRequests, "UPSTREAM_RATE_LIMITED", "upstream rate limit hit")
	case errors.Is(err, client.ErrProviderResponseInvalid):
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_INVALID", "upstream returned an invalid response")
	default:
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "upstream provider unavailable")
	}
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("upstream error", zap.Error(err))
	}
}
