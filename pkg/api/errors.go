package api

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrMalformedResponse = errors.New("malformed response body")

// StatusError is a non-2xx answer from the REST service.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

func (e *StatusError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Unauthorized()
}
