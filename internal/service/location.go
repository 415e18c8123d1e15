package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/farmville-istec/farmville/internal/cache"
	"github.com/farmville-istec/farmville/internal/client"
	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/observability"
)

// LocationService is the facade over the administrative-divisions directory
// and the geocoder. Every lookup goes through the cache-aside pattern with a
// shared TTL; directory data changes rarely and geocoding results are stable,
// so one expiry policy covers both.
type LocationService struct {
	directory client.GeoDirectory
	geocoder  client.Geocoder
	cache     cache.Store[models.LocationData]
	ttl       time.Duration
}

// NewLocationService creates a LocationService. ttl is the cache expiration
// for every lookup kind.
func NewLocationService(directory client.GeoDirectory, geocoder client.Geocoder, cache cache.Store[models.LocationData], ttl time.Duration) *LocationService {
	return &LocationService{
		directory: directory,
		geocoder:  geocoder,
		cache:     cache,
		ttl:       ttl,
	}
}

// lookup runs the cache-aside cycle for one key: return the cached entry on a
// hit, otherwise fetch, store and return. Backend errors read as misses.
func (s *LocationService) lookup(ctx context.Context, key string, fetch func() (models.LocationData, error)) (models.LocationData, error) {
	logger := loggerFromContext(ctx)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		if logger != nil {
			logger.Warn("location cache get failed", zap.String("key", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("location").Inc()
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues("location").Inc()

	data, err := fetch()
	if err != nil {
		return models.LocationData{}, err
	}
	if setErr := s.cache.Set(ctx, key, data, s.ttl); setErr != nil && logger != nil {
		logger.Warn("location cache set failed", zap.String("key", key), zap.Error(setErr))
	}
	return data, nil
}

// Districts returns every district.
func (s *LocationService) Districts(ctx context.Context) ([]models.District, error) {
	data, err := s.lookup(ctx, "districts", func() (models.LocationData, error) {
		districts, err := s.directory.Districts(ctx)
		if err != nil {
			return models.LocationData{}, fmt.Errorf("fetch districts: %w", err)
		}
		return models.LocationData{Districts: districts}, nil
	})
	if err != nil {
		return nil, err
	}
	return data.Districts, nil
}

// Municipalities returns the municipalities of a district.
func (s *LocationService) Municipalities(ctx context.Context, districtID int) ([]models.Municipality, error) {
	key := fmt.Sprintf("municipalities:%d", districtID)
	data, err := s.lookup(ctx, key, func() (models.LocationData, error) {
		municipalities, err := s.directory.Municipalities(ctx, districtID)
		if err != nil {
			return models.LocationData{}, fmt.Errorf("fetch municipalities for district %d: %w", districtID, err)
		}
		return models.LocationData{Municipalities: municipalities}, nil
	})
	if err != nil {
		return nil, err
	}
	return data.Municipalities, nil
}

// Parishes returns the parishes of a municipality.
func (s *LocationService) Parishes(ctx context.Context, municipalityID int) ([]models.Parish, error) {
	key := fmt.Sprintf("parishes:%d", municipalityID)
	data, err := s.lookup(ctx, key, func() (models.LocationData, error) {
		parishes, err := s.directory.Parishes(ctx, municipalityID)
		if err != nil {
			return models.LocationData{}, fmt.Errorf("fetch parishes for municipality %d: %w", municipalityID, err)
		}
		return models.LocationData{Parishes: parishes}, nil
	})
	if err != nil {
		return nil, err
	}
	return data.Parishes, nil
}

// Hierarchy resolves a parish to its full administrative chain and center
// point.
func (s *LocationService) Hierarchy(ctx context.Context, parishID int) (models.LocationHierarchy, error) {
	key := fmt.Sprintf("hierarchy:%d", parishID)
	data, err := s.lookup(ctx, key, func() (models.LocationData, error) {
		hierarchy, err := s.directory.Hierarchy(ctx, parishID)
		if err != nil {
			return models.LocationData{}, fmt.Errorf("resolve parish %d: %w", parishID, err)
		}
		return models.LocationData{Hierarchy: &hierarchy}, nil
	})
	if err != nil {
		return models.LocationHierarchy{}, err
	}
	return *data.Hierarchy, nil
}

// ParishCoordinates returns the center point of a parish. Shares the
// hierarchy cache entry.
func (s *LocationService) ParishCoordinates(ctx context.Context, parishID int) (models.Coordinates, error) {
	hierarchy, err := s.Hierarchy(ctx, parishID)
	if err != nil {
		return models.Coordinates{}, err
	}
	return hierarchy.Coordinates, nil
}

// Geocode resolves an address to coordinates.
func (s *LocationService) Geocode(ctx context.Context, address, country string) (models.GeocodeResult, error) {
	key := fmt.Sprintf("geocode:%s:%s", normalizeLocation(address), strings.ToLower(country))
	data, err := s.lookup(ctx, key, func() (models.LocationData, error) {
		result, err := s.geocoder.Geocode(ctx, address, country)
		if err != nil {
			return models.LocationData{}, fmt.Errorf("geocode %q: %w", address, err)
		}
		return models.LocationData{Geocode: &result}, nil
	})
	if err != nil {
		return models.GeocodeResult{}, err
	}
	return *data.Geocode, nil
}

// ReverseGeocode resolves a point to an address. Coordinates are rounded to 4
// decimals in the key so nearby queries for the same field share an entry.
func (s *LocationService) ReverseGeocode(ctx context.Context, lat, lon float64) (models.GeocodeResult, error) {
	key := fmt.Sprintf("reverse:%.4f,%.4f", lat, lon)
	data, err := s.lookup(ctx, key, func() (models.LocationData, error) {
		result, err := s.geocoder.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			return models.LocationData{}, fmt.Errorf("reverse geocode %.4f,%.4f: %w", lat, lon, err)
		}
		return models.LocationData{Geocode: &result}, nil
	})
	if err != nil {
		return models.GeocodeResult{}, err
	}
	return *data.Geocode, nil
}

// SearchPlaces returns candidate places for the query, most relevant first.
// When proximity is set, each place carries its distance from that point.
// Distances are computed before caching, so the key must include proximity.
func (s *LocationService) SearchPlaces(ctx context.Context, query string, proximity *models.Coordinates, limit int) ([]models.Place, error) {
	key := fmt.Sprintf("search:%s:%s:%d", normalizeLocation(query), proximityKey(proximity), limit)
	data, err := s.lookup(ctx, key, func() (models.LocationData, error) {
		places, err := s.geocoder.SearchPlaces(ctx, query, proximity, limit)
		if err != nil {
			return models.LocationData{}, fmt.Errorf("search places %q: %w", query, err)
		}
		if proximity != nil {
			for i := range places {
				places[i].DistanceKm = client.DistanceKm(proximity.Latitude, proximity.Longitude, places[i].Latitude, places[i].Longitude)
			}
		}
		return models.LocationData{Places: places}, nil
	})
	if err != nil {
		return nil, err
	}
	return data.Places, nil
}

func proximityKey(p *models.Coordinates) string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("%.4f,%.4f", p.Latitude, p.Longitude)
}

// ClearCache removes all cached location lookups.
func (s *LocationService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// CacheStats reports entry count and keys when the backend supports
// introspection (in-memory does; memcached reports -1, nil).
func (s *LocationService) CacheStats() (int, []string) {
	if m, ok := s.cache.(*cache.InMemory[models.LocationData]); ok {
		return m.Stats()
	}
	return -1, nil
}
