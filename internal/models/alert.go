package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AlertStatus string
type Tag string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"

	TagLow      Tag = "LOW"
	TagMedium   Tag = "MEDIUM"
	TagHigh     Tag = "HIGH"
	TagPhysical Tag = "PHYSICAL"
	TagMental   Tag = "MENTAL"
	TagMedical  Tag = "MEDICAL"
	TagStudent  Tag = "STUDENT"
	TagStaff    Tag = "STAFF"
	TagExternal Tag = "EXTERNAL"

	MaxTagsPerAlert = 3
)

// TagVocabulary lists every tag an alert may carry, in display order.
var TagVocabulary = []Tag{
	TagLow, TagMedium, TagHigh,
	TagPhysical, TagMental, TagMedical,
	TagStudent, TagStaff, TagExternal,
}

func (t Tag) Valid() bool {
	for _, v := range TagVocabulary {
		if v == t {
			return true
		}
	}
	return false
}

type Alert struct {
	ID              primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	AuthorID        primitive.ObjectID  `json:"userID" bson:"userID"`
	AuthorName      string              `json:"name,omitempty" bson:"name,omitempty"`
	Message         string              `json:"message" bson:"message"`
	Tags            []Tag               `json:"tags" bson:"tags"`
	Status          AlertStatus         `json:"status,omitempty" bson:"status,omitempty"`
	Location        *Coordinate         `json:"location,omitempty" bson:"location,omitempty"`
	SpecificContact *primitive.ObjectID `json:"specificContact,omitempty" bson:"specificContact,omitempty"`
	CreatedAt       *time.Time          `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt       *time.Time          `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// IsResolved is an exact, case-sensitive match. Missing or unknown status
// counts as active.
func (a *Alert) IsResolved() bool {
	return a.Status == AlertStatusResolved
}

// DisplayStatus is the badge text shown for an alert.
func (a *Alert) DisplayStatus() string {
	if a.Status == "" {
		return "ACTIVE"
	}
	return strings.ToUpper(string(a.Status))
}

func (a *Alert) HasLocation() bool {
	return a.Location != nil && a.Location.Latitude != 0 && a.Location.Longitude != 0
}

func (a *Alert) IsAuthoredBy(userID primitive.ObjectID) bool {
	return !userID.IsZero() && a.AuthorID == userID
}
