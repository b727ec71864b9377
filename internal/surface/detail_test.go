package surface

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/pkg/maps"
)

type fixedGeocoder string

func (g fixedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*maps.GeocodeResponse, error) {
	return &maps.GeocodeResponse{Results: []maps.GeocodeResult{{Address: string(g)}}}, nil
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	exact := strings.Repeat("a", 50)
	assert.Equal(t, exact, Preview(exact))
	assert.Equal(t, strings.Repeat("b", 50)+"...", Preview(strings.Repeat("b", 51)))
}

func TestDescribe(t *testing.T) {
	author := primitive.NewObjectID()
	alert := models.Alert{
		ID:       primitive.NewObjectID(),
		AuthorID: author,
		Message:  "fire in B wing",
		Location: &models.Coordinate{Latitude: 1.5, Longitude: 2.25},
	}

	d := Describe(context.Background(), alert, author, fixedGeocoder("B Wing"))
	assert.Equal(t, "ACTIVE", d.Badge)
	assert.True(t, d.IsCreator)
	assert.True(t, d.CanResolve)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=1.5,2.25", d.MapURL)
	assert.Equal(t, "B Wing", d.Address)

	other := Describe(context.Background(), alert, primitive.NewObjectID(), nil)
	assert.False(t, other.IsCreator)
	assert.False(t, other.CanResolve)
	assert.Empty(t, other.Address)
}

func TestDescribeWithoutLocation(t *testing.T) {
	alert := models.Alert{Status: models.AlertStatusResolved, Location: &models.Coordinate{}}
	d := Describe(context.Background(), alert, primitive.NilObjectID, fixedGeocoder("x"))
	assert.Equal(t, "RESOLVED", d.Badge)
	assert.Empty(t, d.MapURL)
	assert.Empty(t, d.Address)
}
