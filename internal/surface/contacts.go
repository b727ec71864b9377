package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/pkg/api"
	"github.com/safesignal/sosclient/pkg/logger"
)

var ErrUnknownContact = errors.New("unknown contact")

type TokenSource interface {
	Token(ctx context.Context) (string, error)
	HandleUnauthorized(ctx context.Context) error
}

// ContactDirectory caches the contact list so per-contact subjects can be
// resolved to a name and id.
type ContactDirectory struct {
	store  api.ContactStore
	auth   TokenSource
	logger *logger.Logger

	mu       sync.RWMutex
	contacts []models.Contact
	loaded   bool
}

func NewContactDirectory(store api.ContactStore, auth TokenSource, log *logger.Logger) *ContactDirectory {
	if log == nil {
		log = logger.Discard()
	}
	return &ContactDirectory{store: store, auth: auth, logger: log.WithField("component", "contacts")}
}

func (d *ContactDirectory) Refresh(ctx context.Context) ([]models.Contact, error) {
	token, err := d.auth.Token(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := d.store.ListContacts(ctx, token)
	if err != nil {
		if api.IsUnauthorized(err) {
			if cerr := d.auth.HandleUnauthorized(ctx); cerr != nil {
				d.logger.WithError(cerr).Error("Failed to clear credentials after 401")
			}
		}
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	d.mu.Lock()
	d.contacts = contacts
	d.loaded = true
	d.mu.Unlock()
	return d.List(), nil
}

func (d *ContactDirectory) List() []models.Contact {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Contact, len(d.contacts))
	copy(out, d.contacts)
	return out
}

// Lookup resolves a subject id. The list is fetched on first use.
func (d *ContactDirectory) Lookup(ctx context.Context, subjectID string) (*models.Contact, error) {
	id, err := primitive.ObjectIDFromHex(subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContact, subjectID)
	}

	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if !loaded {
		if _, err := d.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.contacts {
		if d.contacts[i].ID == id {
			c := d.contacts[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownContact, subjectID)
}

func (d *ContactDirectory) Clear() {
	d.mu.Lock()
	d.contacts = nil
	d.loaded = false
	d.mu.Unlock()
}
