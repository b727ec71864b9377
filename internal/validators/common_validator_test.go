package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safesignal/sosclient/internal/models"
)

type taggedThing struct {
	Tags     []models.Tag       `validate:"min=1,max=3,unique,dive,alert_tag"`
	Location *models.Coordinate
}

func TestValidateStructAcceptsVocabulary(t *testing.T) {
	errs := ValidateStruct(taggedThing{
		Tags:     []models.Tag{models.TagHigh, models.TagMedical},
		Location: &models.Coordinate{Latitude: 45, Longitude: 120},
	})
	assert.Empty(t, errs)
}

func TestValidateStructReportsUnknownTag(t *testing.T) {
	errs := ValidateStruct(taggedThing{Tags: []models.Tag{"URGENT"}})
	require.Len(t, errs, 1)
	assert.Equal(t, "alert_tag", errs[0].Tag)
	assert.Equal(t, "URGENT", errs[0].Value)
}

func TestValidateStructReportsLocationRange(t *testing.T) {
	errs := ValidateStruct(taggedThing{
		Tags:     []models.Tag{models.TagLow},
		Location: &models.Coordinate{Latitude: 95, Longitude: 10},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "latitude", errs[0].Tag)
	assert.Contains(t, errs.Error(), "Latitude")
}

func TestContactRequestValidation(t *testing.T) {
	assert.Empty(t, ValidateStruct(models.ContactRequest{Name: "Mum", Phone: "+44 20 7946 0958"}))

	errs := ValidateStruct(models.ContactRequest{Name: "", Phone: "call me"})
	fields := errs.Fields()
	assert.Contains(t, fields, "Name")
	assert.Equal(t, "Invalid phone number format", fields["Phone"])
}

func TestIsValidObjectID(t *testing.T) {
	assert.True(t, IsValidObjectID("64b7f0c2e13f4a0012345678"))
	assert.False(t, IsValidObjectID("not-an-id"))
}
