package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/safesignal/sosclient/internal/composer"
	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/session"
	"github.com/safesignal/sosclient/pkg/api"
	"github.com/safesignal/sosclient/pkg/credentials"
	"github.com/safesignal/sosclient/pkg/logger"
)

// Authenticator supplies the bearer token and is told when the server
// refuses it.
type Authenticator interface {
	Token(ctx context.Context) (string, error)
	HandleUnauthorized(ctx context.Context) error
}

// PrepareFunc assembles the payload once the surface slot is held, so that
// location lookups happen inside the in-flight window.
type PrepareFunc func(ctx context.Context) (composer.Payload, error)

type state struct {
	target string
}

// Controller enforces one submission at a time per surface. Different
// surfaces never block each other.
type Controller struct {
	store  api.AlertStore
	auth   Authenticator
	logger *logger.Logger

	mu       sync.Mutex
	inFlight map[string]*state
}

func NewController(store api.AlertStore, auth Authenticator, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Discard()
	}
	return &Controller{
		store:    store,
		auth:     auth,
		logger:   log,
		inFlight: make(map[string]*state),
	}
}

func (c *Controller) IsBusy(surface string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[surface]
	return ok
}

// Target returns the subject the running submission is aimed at.
func (c *Controller) Target(surface string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.inFlight[surface]
	if !ok {
		return "", false
	}
	return st.target, true
}

func (c *Controller) acquire(surface, target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[surface]; busy {
		return false
	}
	c.inFlight[surface] = &state{target: target}
	return true
}

func (c *Controller) release(surface string) {
	c.mu.Lock()
	delete(c.inFlight, surface)
	c.mu.Unlock()
}

// Submit sends a ready payload with the caller's token.
func (c *Controller) Submit(ctx context.Context, surface string, payload composer.Payload, token string) (*models.Alert, error) {
	if !c.acquire(surface, "") {
		c.logger.LogDispatchEvent(surface, "rejected", map[string]interface{}{"reason": KindAlreadyInFlight.String()})
		return nil, ErrAlreadyInFlight
	}
	defer c.release(surface)

	if token == "" {
		return nil, c.fail(ctx, surface, session.ErrNotSignedIn, true)
	}
	if !credentials.Usable(token, time.Now()) {
		return nil, c.fail(ctx, surface, session.ErrTokenExpired, true)
	}
	return c.send(ctx, surface, payload, token)
}

// Dispatch holds the surface slot across token retrieval, payload
// preparation and the network call.
func (c *Controller) Dispatch(ctx context.Context, surface, target string, prepare PrepareFunc) (*models.Alert, error) {
	if !c.acquire(surface, target) {
		c.logger.LogDispatchEvent(surface, "rejected", map[string]interface{}{
			"reason": KindAlreadyInFlight.String(),
			"target": target,
		})
		return nil, ErrAlreadyInFlight
	}
	defer c.release(surface)

	// An expired token has already signed the user out inside Token.
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, c.fail(ctx, surface, err, !errors.Is(err, session.ErrTokenExpired))
	}

	// Validation failures keep their own codes. Anything else, such as a
	// failed contact lookup, is classified like a send failure; lookups
	// deal with their own 401s.
	payload, err := prepare(ctx)
	if err != nil {
		var verr *composer.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, c.fail(ctx, surface, err, false)
	}

	return c.send(ctx, surface, payload, token)
}

func (c *Controller) send(ctx context.Context, surface string, payload composer.Payload, token string) (*models.Alert, error) {
	c.logger.LogDispatchEvent(surface, "started", map[string]interface{}{
		"tags":         payload.Tags,
		"has_location": payload.HasLocation(),
		"targeted":     payload.SpecificContact != nil,
	})

	alert, err := c.store.CreateAlert(ctx, payload, token)
	if err != nil {
		return nil, c.fail(ctx, surface, err, true)
	}

	c.logger.LogDispatchEvent(surface, "succeeded", map[string]interface{}{"alert_id": alert.ID.Hex()})
	return alert, nil
}

func (c *Controller) fail(ctx context.Context, surface string, err error, signOut bool) *Error {
	derr := Classify(err)
	c.logger.WithError(err).LogDispatchEvent(surface, "failed", map[string]interface{}{
		"kind":   derr.Kind.String(),
		"status": derr.Status,
	})

	if derr.Kind == KindUnauthorized && signOut && c.auth != nil {
		if cerr := c.auth.HandleUnauthorized(ctx); cerr != nil {
			c.logger.WithError(cerr).Error("Failed to clear credentials after 401")
		}
	}
	return derr
}
