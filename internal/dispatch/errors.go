package dispatch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/safesignal/sosclient/internal/session"
	"github.com/safesignal/sosclient/pkg/api"
)

type Kind int

const (
	KindAlreadyInFlight Kind = iota + 1
	KindUnauthorized
	KindNetworkFailure
	KindServerRejected
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyInFlight:
		return "already_in_flight"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetworkFailure:
		return "network_failure"
	case KindServerRejected:
		return "server_rejected"
	default:
		return "unknown"
	}
}

// Error is every failure a submission can end with.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("dispatch %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("dispatch %s: %v", e.Kind, e.Err)
	}
	return "dispatch " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUnauthorized) and friends match on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == 0 && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrAlreadyInFlight = &Error{Kind: KindAlreadyInFlight}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrNetworkFailure  = &Error{Kind: KindNetworkFailure}
	ErrServerRejected  = &Error{Kind: KindServerRejected}
)

// Classify maps a transport or store error onto the dispatch taxonomy.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		return de
	}

	if errors.Is(err, session.ErrNotSignedIn) || errors.Is(err, session.ErrTokenExpired) {
		return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Err: err}
	}

	var se *api.StatusError
	if errors.As(err, &se) {
		kind := KindServerRejected
		if se.Unauthorized() {
			kind = KindUnauthorized
		}
		return &Error{Kind: kind, Status: se.Status, Message: se.Message, Err: err}
	}

	if errors.Is(err, api.ErrMalformedResponse) {
		return &Error{Kind: KindServerRejected, Message: "malformed response", Err: err}
	}

	return &Error{Kind: KindNetworkFailure, Err: err}
}
