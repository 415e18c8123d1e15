package models

import "time"

// WeatherRecord holds current conditions for a single farm location.
// Records are immutable once constructed; the cache owns its copy until expiry.
type WeatherRecord struct {
	Location    string    `json:"location"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Temperature float64   `json:"temperature"` // °C
	Humidity    int       `json:"humidity"`    // percent, 0-100
	Pressure    float64   `json:"pressure"`    // hPa
	Description string    `json:"description"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// LocationSpec identifies one location in a batch request.
type LocationSpec struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
