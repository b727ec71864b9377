package surface

import (
	"context"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/reconciler"
	"github.com/safesignal/sosclient/pkg/maps"
)

const previewLength = 50

// AlertDetail is the alert detail screen's model.
type AlertDetail struct {
	Alert      models.Alert `json:"alert"`
	Badge      string       `json:"badge"`
	Preview    string       `json:"preview"`
	IsCreator  bool         `json:"isCreator"`
	CanResolve bool         `json:"canResolve"`
	MapURL     string       `json:"mapUrl,omitempty"`
	Address    string       `json:"address,omitempty"`
}

// Preview shortens a message for list cards.
func Preview(message string) string {
	if utf8.RuneCountInString(message) <= previewLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:previewLength]) + "..."
}

// Describe builds the detail view. The geocoder is optional and its
// failure only leaves Address empty.
func Describe(ctx context.Context, alert models.Alert, viewer primitive.ObjectID, geocoder maps.Geocoder) AlertDetail {
	d := AlertDetail{
		Alert:      alert,
		Badge:      alert.DisplayStatus(),
		Preview:    Preview(alert.Message),
		IsCreator:  alert.IsAuthoredBy(viewer),
		CanResolve: reconciler.CanResolve(alert, viewer),
	}
	if !alert.HasLocation() {
		return d
	}

	d.MapURL = maps.SearchURL(*alert.Location)
	if geocoder != nil {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if resp, err := geocoder.ReverseGeocode(ctx, alert.Location.Latitude, alert.Location.Longitude); err == nil {
			d.Address = resp.FirstAddress()
		}
	}
	return d
}
