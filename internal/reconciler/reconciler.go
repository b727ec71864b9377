package reconciler

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

var (
	ErrAlertNotFound   = errors.New("alert not found")
	ErrNotAuthor       = errors.New("only the author can resolve an alert")
	ErrAlreadyResolved = errors.New("alert is already resolved")
)

type Authenticator interface {
	Token(ctx context.Context) (string, error)
	HandleUnauthorized(ctx context.Context) error
}

// View is the two lists the explore and resolved screens render.
type View struct {
	Active   []models.Alert `json:"active"`
	Resolved []models.Alert `json:"resolved"`
}

// Partition splits alerts by status without reordering. Only an exact
// "resolved" goes to the resolved list.
func Partition(alerts []models.Alert) (active, resolved []models.Alert) {
	active = make([]models.Alert, 0, len(alerts))
	resolved = make([]models.Alert, 0)
	for _, a := range alerts {
		if a.IsResolved() {
			resolved = append(resolved, a)
		} else {
			active = append(active, a)
		}
	}
	return active, resolved
}

// Reconciler keeps the client's projection of the alert store.
type Reconciler struct {
	store  api.AlertStore
	auth   Authenticator
	logger *logger.Logger

	mu       sync.RWMutex
	alerts   []models.Alert
	onChange []func(View)
}

func New(store api.AlertStore, auth Authenticator, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Discard()
	}
	return &Reconciler{store: store, auth: auth, logger: log}
}

// OnChange registers a listener called with the new view after every
// mutation.
func (r *Reconciler) OnChange(fn func(View)) {
	r.mu.Lock()
	r.onChange = append(r.onChange, fn)
	r.mu.Unlock()
}

// Refresh replaces the projection with the server's list.
func (r *Reconciler) Refresh(ctx context.Context) (View, error) {
	token, err := r.auth.Token(ctx)
	if err != nil {
		return View{}, err
	}

	alerts, err := r.store.ListAlerts(ctx, token)
	if err != nil {
		if api.IsUnauthorized(err) {
			if cerr := r.auth.HandleUnauthorized(ctx); cerr != nil {
				r.logger.WithError(cerr).Error("Failed to clear credentials after 401")
			}
		}
		return View{}, fmt.Errorf("failed to list alerts: %w", err)
	}

	r.mu.Lock()
	r.alerts = alerts
	r.mu.Unlock()

	r.logger.WithField("count", len(alerts)).Debug("Alert list refreshed")
	return r.publish(), nil
}

// Insert adds a freshly created alert at the head of the projection, or
// replaces it in place if the id is already known.
func (r *Reconciler) Insert(alert models.Alert) View {
	r.mu.Lock()
	if i := r.indexLocked(alert.ID); i >= 0 {
		r.alerts[i] = alert
	} else {
		r.alerts = append([]models.Alert{alert}, r.alerts...)
	}
	r.mu.Unlock()

	r.logger.LogAlertEvent(alert.ID, "inserted", nil)
	return r.publish()
}

// ApplyResolution resolves an alert on the server and moves it to the
// resolved list locally. Only the author may do this.
func (r *Reconciler) ApplyResolution(ctx context.Context, id, requester primitive.ObjectID) (View, error) {
	r.mu.RLock()
	i := r.indexLocked(id)
	var alert models.Alert
	if i >= 0 {
		alert = r.alerts[i]
	}
	r.mu.RUnlock()

	if i < 0 {
		return View{}, ErrAlertNotFound
	}
	if !alert.IsAuthoredBy(requester) {
		return View{}, ErrNotAuthor
	}
	if alert.IsResolved() {
		return View{}, ErrAlreadyResolved
	}

	token, err := r.auth.Token(ctx)
	if err != nil {
		return View{}, err
	}
	updated, err := r.store.UpdateAlertStatus(ctx, id, models.AlertStatusResolved, token)
	if err != nil {
		if api.IsUnauthorized(err) {
			if cerr := r.auth.HandleUnauthorized(ctx); cerr != nil {
				r.logger.WithError(cerr).Error("Failed to clear credentials after 401")
			}
		}
		return View{}, fmt.Errorf("failed to resolve alert: %w", err)
	}

	r.mu.Lock()
	if j := r.indexLocked(id); j >= 0 {
		if updated != nil && updated.ID == id {
			r.alerts[j] = merge(r.alerts[j], *updated)
		}
		r.alerts[j].Status = models.AlertStatusResolved
	}
	r.mu.Unlock()

	r.logger.LogAlertEvent(id, "resolved", map[string]interface{}{"by": requester.Hex()})
	return r.publish(), nil
}

// merge overlays the non-zero fields of a server answer onto the local
// alert. Some servers answer an update with only the id and status.
func merge(local, updated models.Alert) models.Alert {
	if !updated.AuthorID.IsZero() {
		local.AuthorID = updated.AuthorID
	}
	if updated.AuthorName != "" {
		local.AuthorName = updated.AuthorName
	}
	if updated.Message != "" {
		local.Message = updated.Message
	}
	if len(updated.Tags) > 0 {
		local.Tags = updated.Tags
	}
	if updated.Status != "" {
		local.Status = updated.Status
	}
	if updated.Location != nil {
		local.Location = updated.Location
	}
	if updated.SpecificContact != nil {
		local.SpecificContact = updated.SpecificContact
	}
	if updated.CreatedAt != nil {
		local.CreatedAt = updated.CreatedAt
	}
	if updated.UpdatedAt != nil {
		local.UpdatedAt = updated.UpdatedAt
	}
	return local
}

func (r *Reconciler) Snapshot() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewLocked()
}

func (r *Reconciler) Get(id primitive.ObjectID) (models.Alert, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.alerts[i], true
	}
	return models.Alert{}, false
}

// Clear drops the projection, used on sign-out.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.alerts = nil
	r.mu.Unlock()
	r.publish()
}

// CanResolve decides whether the resolve control is shown.
func CanResolve(alert models.Alert, requester primitive.ObjectID) bool {
	return alert.IsAuthoredBy(requester) && !alert.IsResolved()
}

func (r *Reconciler) indexLocked(id primitive.ObjectID) int {
	if id.IsZero() {
		return -1
	}
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Reconciler) viewLocked() View {
	active, resolved := Partition(r.alerts)
	return View{Active: active, Resolved: resolved}
}

func (r *Reconciler) publish() View {
	r.mu.RLock()
	view := r.viewLocked()
	listeners := make([]func(View), len(r.onChange))
	copy(listeners, r.onChange)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(view)
	}
	return view
}
