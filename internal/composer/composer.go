package composer

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/validators"
)

const ImmediateSOSMessage = "Emergency SOS"

// Draft is an alert being assembled in the composer. A nil Location sends
// the alert without one.
type Draft struct {
	Message       string
	Tags          []models.Tag
	TargetContact *models.Contact
	Location      *models.Coordinate
}

// Payload is the body sent to the alert store. It is built once and not
// modified afterwards.
type Payload struct {
	Message         string              `json:"message" validate:"required"`
	Tags            []models.Tag        `json:"tags" validate:"min=1,max=3,unique,dive,alert_tag"`
	SpecificContact *primitive.ObjectID `json:"specificContact,omitempty"`
	Location        *models.Coordinate  `json:"location,omitempty"`
}

// HasLocation reports whether a coordinate will be sent.
func (p Payload) HasLocation() bool {
	return p.Location != nil
}

// Build validates a draft and produces its payload. The message is sent as
// typed; trimming is only used for the emptiness check.
func Build(draft Draft) (Payload, error) {
	tags := dedupe(draft.Tags)
	if len(tags) == 0 {
		return Payload{}, ErrNoTagsSelected
	}
	if len(tags) > models.MaxTagsPerAlert {
		return Payload{}, newValidationError(CodeTagLimitExceeded,
			"You can only select up to %d tags, got %d", models.MaxTagsPerAlert, len(tags))
	}
	if strings.TrimSpace(draft.Message) == "" {
		return Payload{}, ErrEmptyMessage
	}

	payload := Payload{
		Message: draft.Message,
		Tags:    tags,
	}
	if draft.TargetContact != nil && !draft.TargetContact.ID.IsZero() {
		id := draft.TargetContact.ID
		payload.SpecificContact = &id
	}
	if draft.Location != nil {
		loc := *draft.Location
		payload.Location = &loc
	}

	if errs := validators.ValidateStruct(payload); len(errs) > 0 {
		return Payload{}, fromValidation(errs)
	}
	return payload, nil
}

// ImmediateSOS is the canonical payload sent on a confirmed hold. It skips
// draft validation. A targeted SOS never carries a location.
func ImmediateSOS(target *models.Contact, loc *models.Coordinate) Payload {
	payload := Payload{
		Message: ImmediateSOSMessage,
		Tags:    []models.Tag{models.TagHigh},
	}
	if target != nil {
		payload.Message = ImmediateSOSMessage + " to " + target.Name
		id := target.ID
		payload.SpecificContact = &id
		return payload
	}
	if loc != nil {
		c := *loc
		payload.Location = &c
	}
	return payload
}

func dedupe(tags []models.Tag) []models.Tag {
	out := make([]models.Tag, 0, len(tags))
	seen := make(map[models.Tag]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func fromValidation(errs validators.ValidationErrors) error {
	first := errs[0]
	switch first.Tag {
	case "alert_tag":
		return newValidationError(CodeUnknownTag, "Unknown tag %q", first.Value)
	case "latitude", "longitude":
		return newValidationError(CodeInvalidLocation, "%s", first.Message)
	case "min":
		return ErrNoTagsSelected
	case "max":
		return ErrTagLimitExceeded
	case "required":
		return ErrEmptyMessage
	default:
		return newValidationError(CodeUnknownTag, "%s", errs.Error())
	}
}
