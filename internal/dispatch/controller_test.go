package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/composer"
	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/session"
	"github.com/safesignal/sosclient/pkg/api"
	"github.com/safesignal/sosclient/pkg/credentials"
	"github.com/safesignal/sosclient/pkg/logger"
)

type fakeStore struct {
	calls   int32
	err     error
	gate    chan struct{}
	entered chan struct{}

	mu   sync.Mutex
	last interface{}
}

func (f *fakeStore) CreateAlert(ctx context.Context, payload interface{}, token string) (*models.Alert, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.last = payload
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	p := payload.(composer.Payload)
	return &models.Alert{ID: primitive.NewObjectID(), Message: p.Message, Tags: p.Tags, Status: models.AlertStatusActive}, nil
}

func (f *fakeStore) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func (f *fakeStore) lastPayload() interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeStore) ListAlerts(ctx context.Context, token string) ([]models.Alert, error) {
	return nil, nil
}

func (f *fakeStore) UpdateAlertStatus(ctx context.Context, id primitive.ObjectID, status models.AlertStatus, token string) (*models.Alert, error) {
	return nil, nil
}

type fakeAuth struct {
	store        *credentials.MemoryStore
	unauthorized int
}

func newFakeAuth(token string) *fakeAuth {
	s := credentials.NewMemoryStore()
	s.SetToken(context.Background(), token)
	return &fakeAuth{store: s}
}

func (f *fakeAuth) Token(ctx context.Context) (string, error) {
	tok, _ := f.store.Token(ctx)
	if tok == "" {
		return "", session.ErrNotSignedIn
	}
	return tok, nil
}

func (f *fakeAuth) HandleUnauthorized(ctx context.Context) error {
	f.unauthorized++
	return f.store.Clear(ctx)
}

func sosPayload(ctx context.Context) (composer.Payload, error) {
	return composer.ImmediateSOS(nil, nil), nil
}

func TestDispatchSuccessReleasesSurface(t *testing.T) {
	store := &fakeStore{}
	c := NewController(store, newFakeAuth("tok"), logger.Discard())

	alert, err := c.Dispatch(context.Background(), "home", "home", sosPayload)
	require.NoError(t, err)
	assert.Equal(t, "Emergency SOS", alert.Message)
	assert.False(t, c.IsBusy("home"))
	assert.EqualValues(t, 1, store.callCount())
	assert.Equal(t, composer.ImmediateSOS(nil, nil), store.lastPayload())
}

func TestPrepareFailureIsClassified(t *testing.T) {
	store := &fakeStore{}
	auth := newFakeAuth("tok")
	c := NewController(store, auth, logger.Discard())
	lookupErr := errors.New("dial tcp: connection refused")

	_, err := c.Dispatch(context.Background(), "contacts", "ana", func(ctx context.Context) (composer.Payload, error) {
		return composer.Payload{}, lookupErr
	})

	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, KindNetworkFailure, derr.Kind)
	assert.True(t, errors.Is(err, lookupErr))
	assert.EqualValues(t, 0, store.callCount())
	assert.Equal(t, 0, auth.unauthorized)
	assert.False(t, c.IsBusy("contacts"))

	_, err = c.Dispatch(context.Background(), "home", "composer", func(ctx context.Context) (composer.Payload, error) {
		return composer.Payload{}, composer.ErrInvalidLocation
	})
	assert.True(t, errors.Is(err, composer.ErrInvalidLocation))
	assert.False(t, errors.As(err, &derr))
}

func TestSecondSubmitWhileInFlightIsRejected(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := NewController(store, newFakeAuth("tok"), logger.Discard())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Dispatch(context.Background(), "home", "home", sosPayload)
		assert.NoError(t, err)
	}()

	<-store.entered
	assert.True(t, c.IsBusy("home"))
	target, ok := c.Target("home")
	assert.True(t, ok)
	assert.Equal(t, "home", target)

	_, err := c.Submit(context.Background(), "home", composer.ImmediateSOS(nil, nil), "tok")
	assert.True(t, errors.Is(err, ErrAlreadyInFlight))

	prepared := false
	_, err = c.Dispatch(context.Background(), "home", "home", func(ctx context.Context) (composer.Payload, error) {
		prepared = true
		return composer.ImmediateSOS(nil, nil), nil
	})
	assert.True(t, errors.Is(err, ErrAlreadyInFlight))
	assert.False(t, prepared)

	close(store.gate)
	wg.Wait()
	assert.EqualValues(t, 1, store.callCount())
	assert.False(t, c.IsBusy("home"))
}

func TestSurfacesAreIndependent(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	c := NewController(store, newFakeAuth("tok"), logger.Discard())

	var wg sync.WaitGroup
	for _, surface := range []string{"home", "contacts"} {
		wg.Add(1)
		go func(surface string) {
			defer wg.Done()
			_, err := c.Dispatch(context.Background(), surface, surface, sosPayload)
			assert.NoError(t, err)
		}(surface)
	}
	<-store.entered
	<-store.entered
	assert.True(t, c.IsBusy("home"))
	assert.True(t, c.IsBusy("contacts"))

	close(store.gate)
	wg.Wait()
	assert.EqualValues(t, 2, store.callCount())
}

func TestUnauthorizedClearsTokenAndSignsOut(t *testing.T) {
	store := &fakeStore{err: &api.StatusError{Status: http.StatusUnauthorized, Message: "jwt expired"}}
	auth := newFakeAuth("tok")
	c := NewController(store, auth, logger.Discard())

	_, err := c.Dispatch(context.Background(), "home", "home", sosPayload)

	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, KindUnauthorized, derr.Kind)
	assert.Equal(t, http.StatusUnauthorized, derr.Status)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, 1, auth.unauthorized)

	tok, _ := auth.store.Token(context.Background())
	assert.Empty(t, tok)
	assert.False(t, c.IsBusy("home"))
}

func TestMissingTokenIsUnauthorizedWithoutRequest(t *testing.T) {
	store := &fakeStore{}
	auth := newFakeAuth("")
	c := NewController(store, auth, logger.Discard())

	_, err := c.Dispatch(context.Background(), "home", "home", sosPayload)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.EqualValues(t, 0, store.callCount())
	assert.Equal(t, 1, auth.unauthorized)
	assert.False(t, c.IsBusy("home"))

	_, err = c.Submit(context.Background(), "home", composer.ImmediateSOS(nil, nil), "")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.EqualValues(t, 0, store.callCount())
}

func TestFailuresAreClassifiedAndRelease(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"server error", &api.StatusError{Status: 500, Message: "boom"}, KindServerRejected},
		{"bad request", &api.StatusError{Status: 400}, KindServerRejected},
		{"malformed", api.ErrMalformedResponse, KindServerRejected},
		{"transport", errors.New("dial tcp: connection refused"), KindNetworkFailure},
		{"deadline", context.DeadlineExceeded, KindNetworkFailure},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{err: tc.err}
			auth := newFakeAuth("tok")
			c := NewController(store, auth, logger.Discard())

			_, err := c.Submit(context.Background(), "home", composer.ImmediateSOS(nil, nil), "tok")
			var derr *Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tc.kind, derr.Kind)
			assert.False(t, c.IsBusy("home"))
			assert.Equal(t, 0, auth.unauthorized)
		})
	}
}

func TestPrepareErrorReleases(t *testing.T) {
	store := &fakeStore{}
	c := NewController(store, newFakeAuth("tok"), logger.Discard())

	_, err := c.Dispatch(context.Background(), "home", "home", func(ctx context.Context) (composer.Payload, error) {
		return composer.Payload{}, composer.ErrNoTagsSelected
	})
	assert.True(t, errors.Is(err, composer.ErrNoTagsSelected))
	assert.False(t, c.IsBusy("home"))
	assert.EqualValues(t, 0, store.callCount())
}

func TestPanicInStoreStillReleases(t *testing.T) {
	c := NewController(&panicStore{}, newFakeAuth("tok"), logger.Discard())

	assert.Panics(t, func() {
		c.Submit(context.Background(), "home", composer.ImmediateSOS(nil, nil), "tok")
	})
	assert.False(t, c.IsBusy("home"))
}

type panicStore struct{ fakeStore }

func (*panicStore) CreateAlert(ctx context.Context, payload interface{}, token string) (*models.Alert, error) {
	panic("transport exploded")
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.Equal(t, KindUnauthorized, Classify(session.ErrTokenExpired).Kind)
	assert.Equal(t, KindUnauthorized, Classify(&api.StatusError{Status: 401}).Kind)

	wrapped := Classify(ErrAlreadyInFlight)
	assert.Same(t, ErrAlreadyInFlight, wrapped)
	assert.Equal(t, "already_in_flight", KindAlreadyInFlight.String())
}
