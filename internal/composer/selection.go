package composer

import (
	"github.com/safesignal/sosclient/internal/models"
)

// TagSelection holds the composer's chosen tags in the order they were
// picked.
type TagSelection struct {
	tags []models.Tag
}

func NewTagSelection(initial ...models.Tag) (*TagSelection, error) {
	s := &TagSelection{}
	for _, t := range initial {
		if s.Contains(t) {
			continue
		}
		if err := s.Toggle(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Toggle removes an already selected tag, otherwise adds it. Adding a
// fourth tag fails and leaves the selection untouched.
func (s *TagSelection) Toggle(tag models.Tag) error {
	if !tag.Valid() {
		return newValidationError(CodeUnknownTag, "Unknown tag %q", tag)
	}
	for i, t := range s.tags {
		if t == tag {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			return nil
		}
	}
	if len(s.tags) >= models.MaxTagsPerAlert {
		return ErrTagLimitExceeded
	}
	s.tags = append(s.tags, tag)
	return nil
}

func (s *TagSelection) Contains(tag models.Tag) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Selected returns a copy of the current selection.
func (s *TagSelection) Selected() []models.Tag {
	out := make([]models.Tag, len(s.tags))
	copy(out, s.tags)
	return out
}

func (s *TagSelection) Len() int {
	return len(s.tags)
}
