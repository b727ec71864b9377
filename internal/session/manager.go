package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/safesignal/sosclient/internal/clock"
	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/validators"
	"github.com/safesignal/sosclient/pkg/api"
	"github.com/safesignal/sosclient/pkg/credentials"
	"github.com/safesignal/sosclient/pkg/logger"
)

var (
	ErrNotSignedIn  = errors.New("not signed in")
	ErrTokenExpired = errors.New("token expired")
)

const (
	ReasonSignOut      = "sign_out"
	ReasonUnauthorized = "unauthorized"
)

// SignOutFunc is told why the session ended.
type SignOutFunc func(reason string)

// Manager owns the signed-in state: the stored token and the cached profile
// used for author checks.
type Manager struct {
	store  credentials.Store
	auth   api.AuthService
	clock  clock.Clock
	logger *logger.Logger

	mu      sync.Mutex
	profile *models.Profile
	hooks   []SignOutFunc
}

func NewManager(store credentials.Store, auth api.AuthService, clk clock.Clock, log *logger.Logger) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{store: store, auth: auth, clock: clk, logger: log}
}

// OnSignOut registers a hook run after every sign-out, forced or not.
func (m *Manager) OnSignOut(fn SignOutFunc) {
	m.mu.Lock()
	m.hooks = append(m.hooks, fn)
	m.mu.Unlock()
}

func (m *Manager) SignIn(ctx context.Context, req *models.LoginRequest) (*models.Profile, error) {
	if errs := validators.ValidateStruct(req); len(errs) > 0 {
		return nil, errs
	}

	resp, err := m.auth.Login(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return m.adopt(ctx, resp.Token)
}

// Register creates an account. When the server hands back a token the user
// is signed in straight away, otherwise the returned profile is nil.
func (m *Manager) Register(ctx context.Context, req *models.RegisterRequest) (*models.Profile, error) {
	if errs := validators.ValidateStruct(req); len(errs) > 0 {
		return nil, errs
	}

	resp, err := m.auth.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	if resp.Token == "" {
		return nil, nil
	}
	return m.adopt(ctx, resp.Token)
}

func (m *Manager) adopt(ctx context.Context, token string) (*models.Profile, error) {
	if err := m.store.SetToken(ctx, token); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.profile = nil
	m.mu.Unlock()

	profile, err := m.Profile(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.WithUserID(profile.ID).Info("Signed in")
	return profile, nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	return m.end(ctx, ReasonSignOut)
}

// HandleUnauthorized is called whenever the server refuses the token.
func (m *Manager) HandleUnauthorized(ctx context.Context) error {
	return m.end(ctx, ReasonUnauthorized)
}

func (m *Manager) end(ctx context.Context, reason string) error {
	err := m.store.Clear(ctx)

	m.mu.Lock()
	m.profile = nil
	hooks := make([]SignOutFunc, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	m.logger.WithField("reason", reason).Info("Signed out")
	for _, fn := range hooks {
		fn(reason)
	}
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Token returns a token worth sending. A missing token gives ErrNotSignedIn;
// an expired JWT forces a sign-out and gives ErrTokenExpired.
func (m *Manager) Token(ctx context.Context) (string, error) {
	token, err := m.store.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials: %w", err)
	}
	if token == "" {
		return "", ErrNotSignedIn
	}
	if !credentials.Usable(token, m.clock.Now()) {
		if err := m.HandleUnauthorized(ctx); err != nil {
			m.logger.WithError(err).Error("Failed to sign out after token expiry")
		}
		return "", ErrTokenExpired
	}
	return token, nil
}

func (m *Manager) SignedIn(ctx context.Context) bool {
	_, err := m.Token(ctx)
	return err == nil
}

// Profile returns the signed-in user, fetching it once per sign-in.
func (m *Manager) Profile(ctx context.Context) (*models.Profile, error) {
	m.mu.Lock()
	cached := m.profile
	m.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	token, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := m.auth.Profile(ctx, token)
	if err != nil {
		if api.IsUnauthorized(err) {
			if cerr := m.HandleUnauthorized(ctx); cerr != nil {
				m.logger.WithError(cerr).Error("Failed to sign out after 401")
			}
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	return profile, nil
}

// IsUnauthorized reports whether err means the user has to sign in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrNotSignedIn) || errors.Is(err, ErrTokenExpired) || api.IsUnauthorized(err)
}
