package maps

import (
	"context"
	"fmt"

	"github.com/safesignal/sosclient/internal/models"
)

const searchURL = "https://www.google.com/maps/search/?api=1&query=%v,%v"

// Geocoder turns an alert coordinate into a readable address for the detail
// view.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error)
}

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}

type GeocodeResult struct {
	PlaceID     string            `json:"place_id"`
	Address     string            `json:"formatted_address"`
	Coordinates models.Coordinate `json:"geometry"`
	Types       []string          `json:"types"`
}

// FirstAddress returns the best match or "".
func (r *GeocodeResponse) FirstAddress() string {
	if r == nil || len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].Address
}

// SearchURL opens the coordinate in Google Maps.
func SearchURL(c models.Coordinate) string {
	return fmt.Sprintf(searchURL, c.Latitude, c.Longitude)
}

// NoopGeocoder is used when no maps key is configured.
type NoopGeocoder struct{}

func (NoopGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	return &GeocodeResponse{}, nil
}
