package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/observability"
)

// GeoDirectory lists the administrative divisions farms are registered under
// and resolves a parish to its full hierarchy and center point.
type GeoDirectory interface {
	Districts(ctx context.Context) ([]models.District, error)
	Municipalities(ctx context.Context, districtID int) ([]models.Municipality, error)
	Parishes(ctx context.Context, municipalityID int) ([]models.Parish, error)
	Hierarchy(ctx context.Context, parishID int) (models.LocationHierarchy, error)
}

// GeoDirectoryClient calls the administrative-divisions API. Unknown IDs map
// to ErrLocationNotFound; network and 5xx failures to ErrProviderUnavailable.
type GeoDirectoryClient struct {
	apiURL  string
	timeout time.Duration
	client  *http.Client
}

// NewGeoDirectoryClient creates a client for the given base URL.
func NewGeoDirectoryClient(apiURL string, timeout time.Duration) (*GeoDirectoryClient, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("geo directory URL is required")
	}
	return &GeoDirectoryClient{
		apiURL:  apiURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type geoDistrict struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type geoMunicipality struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	District *geoDistrict `json:"district"`
}

type geoParish struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Latitude     float64          `json:"latitude"`
	Longitude    float64          `json:"longitude"`
	Municipality *geoMunicipality `json:"municipality"`
}

// Districts returns every district.
func (c *GeoDirectoryClient) Districts(ctx context.Context) ([]models.District, error) {
	var raw []geoDistrict
	if err := c.get(ctx, "/districts", &raw); err != nil {
		return nil, err
	}
	out := make([]models.District, len(raw))
	for i, d := range raw {
		out[i] = models.District{ID: d.ID, Name: d.Name}
	}
	return out, nil
}

// Municipalities returns the municipalities of a district.
func (c *GeoDirectoryClient) Municipalities(ctx context.Context, districtID int) ([]models.Municipality, error) {
	var raw []geoMunicipality
	if err := c.get(ctx, "/districts/"+strconv.Itoa(districtID)+"/municipalities", &raw); err != nil {
		return nil, err
	}
	out := make([]models.Municipality, len(raw))
	for i, m := range raw {
		out[i] = models.Municipality{ID: m.ID, Name: m.Name, DistrictID: districtID}
	}
	return out, nil
}

// Parishes returns the parishes of a municipality.
func (c *GeoDirectoryClient) Parishes(ctx context.Context, municipalityID int) ([]models.Parish, error) {
	var raw []geoParish
	if err := c.get(ctx, "/municipalities/"+strconv.Itoa(municipalityID)+"/parishes", &raw); err != nil {
		return nil, err
	}
	out := make([]models.Parish, len(raw))
	for i, p := range raw {
		out[i] = models.Parish{ID: p.ID, Name: p.Name, MunicipalityID: municipalityID}
	}
	return out, nil
}

// Hierarchy resolves a parish to its full administrative chain. The parish
// endpoint embeds the municipality and district, so one call suffices.
func (c *GeoDirectoryClient) Hierarchy(ctx context.Context, parishID int) (models.LocationHierarchy, error) {
	var raw geoParish
	if err := c.get(ctx, "/parishes/"+strconv.Itoa(parishID), &raw); err != nil {
		return models.LocationHierarchy{}, err
	}
	if raw.Municipality == nil || raw.Municipality.District == nil {
		return models.LocationHierarchy{}, fmt.Errorf("%w: parish without hierarchy", ErrProviderResponseInvalid)
	}
	return models.LocationHierarchy{
		District: models.District{
			ID:   raw.Municipality.District.ID,
			Name: raw.Municipality.District.Name,
		},
		Municipality: models.Municipality{
			ID:         raw.Municipality.ID,
			Name:       raw.Municipality.Name,
			DistrictID: raw.Municipality.District.ID,
		},
		Parish: models.Parish{
			ID:             raw.ID,
			Name:           raw.Name,
			MunicipalityID: raw.Municipality.ID,
		},
		Coordinates: models.Coordinates{Latitude: raw.Latitude, Longitude: raw.Longitude},
	}, nil
}

func (c *GeoDirectoryClient) get(ctx context.Context, path string, out interface{}) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "GET", c.apiURL+path, nil)
	if err != nil {
		observability.GeoAPICallsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.GeoAPICallsTotal.WithLabelValues("error").Inc()
		observability.GeoAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.GeoAPICallsTotal.WithLabelValues(status).Inc()
	observability.GeoAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderResponseInvalid, err)
	}
	return nil
}
