package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/observability"
)

// Geocoder resolves addresses to coordinates and back, and searches for
// named places.
type Geocoder interface {
	Geocode(ctx context.Context, address, country string) (models.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (models.GeocodeResult, error)
	SearchPlaces(ctx context.Context, query string, proximity *models.Coordinates, limit int) ([]models.Place, error)
}

// maxSearchResults caps a place search regardless of the requested limit.
const maxSearchResults = 10

// MapboxClient calls the Mapbox geocoding v5 API. An address that resolves to
// no feature maps to ErrLocationNotFound; a rejected token to ErrInvalidAPIKey.
type MapboxClient struct {
	accessToken string
	apiURL      string
	timeout     time.Duration
	client      *http.Client
}

// NewMapboxClient creates a geocoding client. apiURL defaults to the public
// Mapbox endpoint when empty.
func NewMapboxClient(accessToken, apiURL string, timeout time.Duration) (*MapboxClient, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", ErrInvalidAPIKey)
	}
	if apiURL == "" {
		apiURL = "https://api.mapbox.com"
	}
	return &MapboxClient{
		accessToken: accessToken,
		apiURL:      apiURL,
		timeout:     timeout,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

type mapboxFeature struct {
	Text      string    `json:"text"`
	PlaceName string    `json:"place_name"`
	Center    []float64 `json:"center"`
	Relevance float64   `json:"relevance"`
	PlaceType []string  `json:"place_type"`
	Context   []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"context"`
}

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

// Geocode resolves an address to its best-matching feature. country, when
// set, is an ISO 3166-1 code that narrows the search.
func (c *MapboxClient) Geocode(ctx context.Context, address, country string) (models.GeocodeResult, error) {
	params := url.Values{}
	params.Set("limit", "1")
	params.Set("types", "address,place,locality")
	if country != "" {
		params.Set("country", country)
	}

	resp, err := c.callGeocoding(ctx, address, params)
	if err != nil {
		return models.GeocodeResult{}, err
	}
	if len(resp.Features) == 0 {
		return models.GeocodeResult{}, fmt.Errorf("%w: no match for address", ErrLocationNotFound)
	}
	return featureToResult(resp.Features[0])
}

// ReverseGeocode resolves a point to the address or place it falls in.
func (c *MapboxClient) ReverseGeocode(ctx context.Context, lat, lon float64) (models.GeocodeResult, error) {
	params := url.Values{}
	params.Set("limit", "1")
	params.Set("types", "address,place")

	query := formatCoord(lon) + "," + formatCoord(lat)
	resp, err := c.callGeocoding(ctx, query, params)
	if err != nil {
		return models.GeocodeResult{}, err
	}
	if len(resp.Features) == 0 {
		return models.GeocodeResult{}, fmt.Errorf("%w: nothing at %.4f,%.4f", ErrLocationNotFound, lat, lon)
	}
	return featureToResult(resp.Features[0])
}

// SearchPlaces returns up to limit candidates for the query, most relevant
// first. proximity, when set, biases results toward that point.
func (c *MapboxClient) SearchPlaces(ctx context.Context, query string, proximity *models.Coordinates, limit int) ([]models.Place, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > maxSearchResults {
		limit = maxSearchResults
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("types", "address,place,locality,poi")
	if proximity != nil {
		// Mapbox expects longitude first.
		params.Set("proximity", formatCoord(proximity.Longitude)+","+formatCoord(proximity.Latitude))
	}

	resp, err := c.callGeocoding(ctx, query, params)
	if err != nil {
		return nil, err
	}

	places := make([]models.Place, 0, len(resp.Features))
	for _, f := range resp.Features {
		if len(f.Center) < 2 {
			continue
		}
		places = append(places, models.Place{
			Name:      f.Text,
			Address:   f.PlaceName,
			Latitude:  f.Center[1],
			Longitude: f.Center[0],
			Relevance: f.Relevance,
			PlaceType: firstPlaceType(f),
		})
	}
	sort.SliceStable(places, func(i, j int) bool { return places[i].Relevance > places[j].Relevance })
	return places, nil
}

func (c *MapboxClient) callGeocoding(ctx context.Context, query string, params url.Values) (mapboxResponse, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params.Set("access_token", c.accessToken)
	endpoint := c.apiURL + "/geocoding/v5/mapbox.places/" + url.PathEscape(query) + ".json?" + params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, "GET", endpoint, nil)
	if err != nil {
		observability.GeocodingAPICallsTotal.WithLabelValues("error").Inc()
		return mapboxResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.GeocodingAPICallsTotal.WithLabelValues("error").Inc()
		observability.GeocodingAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return mapboxResponse{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.GeocodingAPICallsTotal.WithLabelValues(status).Inc()
	observability.GeocodingAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return mapboxResponse{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mapboxResponse{}, fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err)
	}
	var parsed mapboxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return mapboxResponse{}, fmt.Errorf("%w: %v", ErrProviderResponseInvalid, err)
	}
	return parsed, nil
}

func featureToResult(f mapboxFeature) (models.GeocodeResult, error) {
	if len(f.Center) < 2 {
		return models.GeocodeResult{}, fmt.Errorf("%w: feature without center", ErrProviderResponseInvalid)
	}
	confidence := f.Relevance
	if confidence == 0 {
		confidence = 1.0
	}
	return models.GeocodeResult{
		Name:       f.Text,
		Address:    f.PlaceName,
		Latitude:   f.Center[1],
		Longitude:  f.Center[0],
		Confidence: confidence,
		PlaceType:  firstPlaceType(f),
		Context:    extractContext(f),
	}, nil
}

func firstPlaceType(f mapboxFeature) string {
	if len(f.PlaceType) > 0 {
		return f.PlaceType[0]
	}
	return ""
}

// extractContext maps the feature's context entries to administrative levels
// by the prefix of each entry's ID ("country.123", "region.45", ...).
func extractContext(f mapboxFeature) models.GeocodeContext {
	var out models.GeocodeContext
	for _, item := range f.Context {
		kind, _, _ := strings.Cut(item.ID, ".")
		switch kind {
		case "country":
			out.Country = item.Text
		case "region":
			out.Region = item.Text
		case "district":
			out.District = item.Text
		case "place":
			out.Place = item.Text
		case "locality":
			out.Locality = item.Text
		}
	}
	return out
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// DistanceKm returns the great-circle distance between two points using the
// Haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
