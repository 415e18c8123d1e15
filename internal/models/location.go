package models

// District is a top-level administrative division.
type District struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Municipality belongs to a district.
type Municipality struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	DistrictID int    `json:"districtId"`
}

// Parish belongs to a municipality and is the finest selectable unit.
type Parish struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	MunicipalityID int    `json:"municipalityId"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationHierarchy is the full district > municipality > parish chain for a
// parish, plus the parish center point used for weather lookups.
type LocationHierarchy struct {
	District     District     `json:"district"`
	Municipality Municipality `json:"municipality"`
	Parish       Parish       `json:"parish"`
	Coordinates  Coordinates  `json:"coordinates"`
}

// GeocodeContext carries the administrative breadcrumbs a geocoding feature
// belongs to. Fields are empty when the provider omits them.
type GeocodeContext struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	District string `json:"district,omitempty"`
	Place    string `json:"place,omitempty"`
	Locality string `json:"locality,omitempty"`
}

// GeocodeResult is a resolved address or reverse-geocoded point.
type GeocodeResult struct {
	Name       string         `json:"name"`
	Address    string         `json:"address"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	Confidence float64        `json:"confidence"`
	PlaceType  string         `json:"placeType,omitempty"`
	Context    GeocodeContext `json:"context"`
}

// Place is one candidate from a place search, ordered by relevance.
// DistanceKm is filled in when the search carried a proximity bias.
type Place struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Relevance  float64 `json:"relevance"`
	PlaceType  string  `json:"placeType,omitempty"`
	DistanceKm float64 `json:"distanceKm,omitempty"`
}

// LocationData is the cache payload for location lookups. Exactly one field
// is populated per entry; the cache key encodes which one.
type LocationData struct {
	Districts      []District         `json:"districts,omitempty"`
	Municipalities []Municipality     `json:"municipalities,omitempty"`
	Parishes       []Parish           `json:"parishes,omitempty"`
	Hierarchy      *LocationHierarchy `json:"hierarchy,omitempty"`
	Geocode        *GeocodeResult     `json:"geocode,omitempty"`
	Places         []Place            `json:"places,omitempty"`
}
