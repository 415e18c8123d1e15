package http

import (
	"net/http"
	"strconv"

	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/validation"
)

// maxAddressLength caps free-form address and search inputs; addresses carry
// characters the location allowlist rejects, so they get a length check only.
const maxAddressLength = 200

// idQueryParam parses a required positive integer query parameter, writing a
// 400 when it is missing or malformed.
func idQueryParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "MISSING_PARAMETER", name+" query parameter is required")
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// GetDistricts handles GET /locations/districts.
func (h *Handler) GetDistricts(w http.ResponseWriter, r *http.Request) {
	districts, err := h.locations.Districts(r.Context())
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(districts),
		"districts": districts,
	})
}

// GetMunicipalities handles GET /locations/municipalities?district_id=.
func (h *Handler) GetMunicipalities(w http.ResponseWriter, r *http.Request) {
	districtID, ok := idQueryParam(w, r, "district_id")
	if !ok {
		return
	}
	municipalities, err := h.locations.Municipalities(r.Context(), districtID)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":          len(municipalities),
		"municipalities": municipalities,
	})
}

// GetParishes handles GET /locations/parishes?municipality_id=.
func (h *Handler) GetParishes(w http.ResponseWriter, r *http.Request) {
	municipalityID, ok := idQueryParam(w, r, "municipality_id")
	if !ok {
		return
	}
	parishes, err := h.locations.Parishes(r.Context(), municipalityID)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(parishes),
		"parishes": parishes,
	})
}

// GetParishCoordinates handles GET /locations/coordinates?parish_id=.
func (h *Handler) GetParishCoordinates(w http.ResponseWriter, r *http.Request) {
	parishID, ok := idQueryParam(w, r, "parish_id")
	if !ok {
		return
	}
	coords, err := h.locations.ParishCoordinates(r.Context(), parishID)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"coordinates": coords})
}

// GetLocationHierarchy handles GET /locations/hierarchy?parish_id=.
func (h *Handler) GetLocationHierarchy(w http.ResponseWriter, r *http.Request) {
	parishID, ok := idQueryParam(w, r, "parish_id")
	if !ok {
		return
	}
	hierarchy, err := h.locations.Hierarchy(r.Context(), parishID)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"location": hierarchy})
}

// GetLocationWeather handles GET /locations/weather?parish_id=: resolves the
// parish and fetches current conditions for its center point.
func (h *Handler) GetLocationWeather(w http.ResponseWriter, r *http.Request) {
	parishID, ok := idQueryParam(w, r, "parish_id")
	if !ok {
		return
	}
	hierarchy, err := h.locations.Hierarchy(r.Context(), parishID)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}

	name := hierarchy.Parish.Name + ", " + hierarchy.Municipality.Name
	record, err := h.weather.FetchOne(r.Context(), models.LocationSpec{
		Name:      name,
		Latitude:  hierarchy.Coordinates.Latitude,
		Longitude: hierarchy.Coordinates.Longitude,
	})
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"location": hierarchy,
		"weather":  record,
	})
}

// GeocodeAddress handles GET /locations/geocode?address=&country=.
func (h *Handler) GeocodeAddress(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, r, http.StatusBadRequest, "MISSING_PARAMETER", "address query parameter is required")
		return
	}
	if len([]rune(address)) > maxAddressLength {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "address is too long")
		return
	}

	result, err := h.locations.Geocode(r.Context(), address, r.URL.Query().Get("country"))
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

// ReverseGeocode handles GET /locations/reverse?lat=&lon=.
func (h *Handler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.locations.ReverseGeocode(r.Context(), lat, lon)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

// SearchLocations handles GET /locations/search?q=&lat=&lon=&limit=. lat and
// lon, when both present, bias results toward that point.
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, r, http.StatusBadRequest, "MISSING_PARAMETER", "q query parameter is required")
		return
	}
	if len([]rune(query)) > maxAddressLength {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "q is too long")
		return
	}

	var proximity *models.Coordinates
	latRaw, lonRaw := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latRaw != "" || lonRaw != "" {
		lat, err1 := strconv.ParseFloat(latRaw, 64)
		lon, err2 := strconv.ParseFloat(lonRaw, 64)
		if err1 != nil || err2 != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "lat and lon must both be valid numbers")
			return
		}
		if err := validation.ValidateCoordinates(lat, lon); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
			return
		}
		proximity = &models.Coordinates{Latitude: lat, Longitude: lon}
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	places, err := h.locations.SearchPlaces(r.Context(), query, proximity, limit)
	if err != nil {
		writeProviderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(places),
		"results": places,
	})
}
