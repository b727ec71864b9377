package composer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/models"
)

func TestBuildFireInBWing(t *testing.T) {
	payload, err := Build(Draft{
		Message:  "fire in B wing",
		Tags:     []models.Tag{models.TagHigh, models.TagPhysical},
		Location: &models.Coordinate{Latitude: 1, Longitude: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, "fire in B wing", payload.Message)
	assert.Equal(t, []models.Tag{models.TagHigh, models.TagPhysical}, payload.Tags)
	require.NotNil(t, payload.Location)
	assert.Equal(t, 1.0, payload.Location.Latitude)
	assert.Equal(t, 2.0, payload.Location.Longitude)
	assert.Nil(t, payload.SpecificContact)
}

func TestBuildRejectsEmptyMessage(t *testing.T) {
	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := Build(Draft{Message: msg, Tags: []models.Tag{models.TagLow}})
		assert.True(t, errors.Is(err, ErrEmptyMessage), "message %q", msg)
	}
}

func TestBuildRejectsNoTags(t *testing.T) {
	_, err := Build(Draft{Message: "help"})
	assert.True(t, errors.Is(err, ErrNoTagsSelected))

	// Missing tags win over a missing message.
	_, err = Build(Draft{})
	assert.True(t, errors.Is(err, ErrNoTagsSelected))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, CodeNoTagsSelected, verr.Code)
	assert.Equal(t, "No tags selected", verr.Title())
}

func TestBuildRevalidatesTagLimit(t *testing.T) {
	_, err := Build(Draft{
		Message: "help",
		Tags:    []models.Tag{models.TagLow, models.TagMedical, models.TagStaff, models.TagStudent},
	})
	assert.True(t, errors.Is(err, ErrTagLimitExceeded))
}

func TestBuildCollapsesDuplicateTags(t *testing.T) {
	payload, err := Build(Draft{
		Message: "help",
		Tags:    []models.Tag{models.TagMedical, models.TagLow, models.TagMedical, models.TagLow},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Tag{models.TagMedical, models.TagLow}, payload.Tags)
}

func TestBuildRejectsUnknownTag(t *testing.T) {
	_, err := Build(Draft{Message: "help", Tags: []models.Tag{"URGENT"}})
	assert.True(t, errors.Is(err, ErrUnknownTag))
	assert.Contains(t, err.Error(), "URGENT")
}

func TestBuildRejectsOutOfRangeLocation(t *testing.T) {
	_, err := Build(Draft{
		Message:  "help",
		Tags:     []models.Tag{models.TagLow},
		Location: &models.Coordinate{Latitude: 10, Longitude: 200},
	})
	assert.True(t, errors.Is(err, ErrInvalidLocation))
}

func TestBuildWithoutLocation(t *testing.T) {
	payload, err := Build(Draft{Message: "help", Tags: []models.Tag{models.TagLow}})
	require.NoError(t, err)
	assert.Nil(t, payload.Location)
	assert.False(t, payload.HasLocation())

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "location")
}

func TestBuildKeepsMessageUntrimmed(t *testing.T) {
	payload, err := Build(Draft{Message: "  stuck in lift ", Tags: []models.Tag{models.TagMedium}})
	require.NoError(t, err)
	assert.Equal(t, "  stuck in lift ", payload.Message)
}

func TestBuildTargetContact(t *testing.T) {
	contact := &models.Contact{ID: primitive.NewObjectID(), Name: "Ana", Phone: "+15550100"}
	payload, err := Build(Draft{Message: "call me", Tags: []models.Tag{models.TagMental}, TargetContact: contact})
	require.NoError(t, err)
	require.NotNil(t, payload.SpecificContact)
	assert.Equal(t, contact.ID, *payload.SpecificContact)
}

func TestBuildDoesNotAliasDraft(t *testing.T) {
	draft := Draft{
		Message:  "help",
		Tags:     []models.Tag{models.TagLow},
		Location: &models.Coordinate{Latitude: 1, Longitude: 2},
	}
	payload, err := Build(draft)
	require.NoError(t, err)

	draft.Tags[0] = models.TagHigh
	draft.Location.Latitude = 50
	assert.Equal(t, models.TagLow, payload.Tags[0])
	assert.Equal(t, 1.0, payload.Location.Latitude)
}

func TestImmediateSOS(t *testing.T) {
	t.Run("generic with location", func(t *testing.T) {
		payload := ImmediateSOS(nil, &models.Coordinate{Latitude: 3, Longitude: 4})
		assert.Equal(t, "Emergency SOS", payload.Message)
		assert.Equal(t, []models.Tag{models.TagHigh}, payload.Tags)
		require.NotNil(t, payload.Location)
		assert.Nil(t, payload.SpecificContact)
	})

	t.Run("generic without location", func(t *testing.T) {
		payload := ImmediateSOS(nil, nil)
		assert.Nil(t, payload.Location)
	})

	t.Run("targeted contact", func(t *testing.T) {
		contact := &models.Contact{ID: primitive.NewObjectID(), Name: "Dad"}
		payload := ImmediateSOS(contact, &models.Coordinate{Latitude: 3, Longitude: 4})
		assert.Equal(t, "Emergency SOS to Dad", payload.Message)
		assert.Equal(t, []models.Tag{models.TagHigh}, payload.Tags)
		assert.Nil(t, payload.Location)
		require.NotNil(t, payload.SpecificContact)
		assert.Equal(t, contact.ID, *payload.SpecificContact)
	})
}

func TestPayloadJSON(t *testing.T) {
	payload := ImmediateSOS(nil, nil)
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Emergency SOS","tags":["HIGH"]}`, string(raw))
}
