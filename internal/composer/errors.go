package composer

import "fmt"

type ValidationCode string

const (
	CodeEmptyMessage     ValidationCode = "EMPTY_MESSAGE"
	CodeNoTagsSelected   ValidationCode = "NO_TAGS_SELECTED"
	CodeTagLimitExceeded ValidationCode = "TAG_LIMIT_EXCEEDED"
	CodeUnknownTag       ValidationCode = "UNKNOWN_TAG"
	CodeInvalidLocation  ValidationCode = "INVALID_LOCATION"
)

// ValidationError is returned by Build and TagSelection. It never leaves the
// client; a draft that fails validation is never submitted.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches on Code so callers can compare against the sentinels below.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

var (
	ErrEmptyMessage     = &ValidationError{Code: CodeEmptyMessage, Message: "Please enter an alert message"}
	ErrNoTagsSelected   = &ValidationError{Code: CodeNoTagsSelected, Message: "Please select at least one tag"}
	ErrTagLimitExceeded = &ValidationError{Code: CodeTagLimitExceeded, Message: "You can only select up to 3 tags"}
	ErrUnknownTag       = &ValidationError{Code: CodeUnknownTag, Message: "Unknown tag"}
	ErrInvalidLocation  = &ValidationError{Code: CodeInvalidLocation, Message: "Invalid location"}
)

// Title is the heading of the prompt shown for the error.
func (e *ValidationError) Title() string {
	switch e.Code {
	case CodeEmptyMessage:
		return "No message"
	case CodeNoTagsSelected:
		return "No tags selected"
	case CodeTagLimitExceeded:
		return "Tag limit reached"
	case CodeUnknownTag:
		return "Unknown tag"
	default:
		return "Invalid alert"
	}
}

func newValidationError(code ValidationCode, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}
