package surface

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/safesignal/sosclient/internal/clock"
	"github.com/safesignal/sosclient/internal/composer"
	"github.com/safesignal/sosclient/internal/dispatch"
	"github.com/safesignal/sosclient/internal/gesture"
	"github.com/safesignal/sosclient/internal/location"
	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/internal/reconciler"
	"github.com/safesignal/sosclient/pkg/logger"
)

// Kind decides what a subject on the surface means.
type Kind string

const (
	// KindGeneric surfaces have one SOS control; every alert goes to all
	// contacts and may carry a location.
	KindGeneric Kind = "generic"
	// KindContact surfaces have one control per contact; subjects are
	// contact ids and alerts never carry a location.
	KindContact Kind = "contact"
)

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhasePressing     Phase = "pressing"
	PhaseDispatching  Phase = "dispatching"
	PhaseComposerOpen Phase = "composer_open"
)

var (
	ErrClosed         = errors.New("surface closed")
	ErrComposerClosed = errors.New("composer is not open")
)

// ContactLookup resolves a per-contact subject.
type ContactLookup interface {
	Lookup(ctx context.Context, subjectID string) (*models.Contact, error)
}

type Status struct {
	Surface  string          `json:"surface"`
	Kind     Kind            `json:"kind"`
	Phase    Phase           `json:"phase"`
	InFlight bool            `json:"inFlight"`
	Target   string          `json:"target,omitempty"`
	Pressing []string        `json:"pressing,omitempty"`
	Composer *ComposerStatus `json:"composer,omitempty"`
}

type ComposerStatus struct {
	TargetContact *models.Contact `json:"targetContact,omitempty"`
	Permission    string          `json:"locationPermission"`
	Tags          []models.Tag    `json:"tags"`

	selection *composer.TagSelection
}

type Deps struct {
	Dispatcher *dispatch.Controller
	Location   *location.Provider
	Reconciler *reconciler.Reconciler
	Contacts   ContactLookup
	Presenter  Presenter
	Clock      clock.Clock
	Threshold  time.Duration
	Logger     *logger.Logger
}

// Surface is one UI context able to start a dispatch. It owns its gesture
// arbiter and its slot in the dispatch controller.
type Surface struct {
	id         string
	kind       Kind
	arbiter    *gesture.Arbiter
	dispatcher *dispatch.Controller
	location   *location.Provider
	reconciler *reconciler.Reconciler
	contacts   ContactLookup
	presenter  Presenter
	logger     *logger.Logger

	ctx context.Context

	mu       sync.Mutex
	pressing map[string]struct{}
	composer *ComposerStatus
}

func New(id string, kind Kind, deps Deps) *Surface {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithSurface(id)
	presenter := deps.Presenter
	if presenter == nil {
		presenter = nopPresenter{}
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}

	s := &Surface{
		id:         id,
		kind:       kind,
		dispatcher: deps.Dispatcher,
		location:   deps.Location,
		reconciler: deps.Reconciler,
		contacts:   deps.Contacts,
		presenter:  presenter,
		logger:     log,
		ctx:        logger.ContextWithSurface(context.Background(), id),
		pressing:   make(map[string]struct{}),
	}
	s.arbiter = gesture.NewArbiter(s.onFire,
		gesture.WithClock(clk),
		gesture.WithThreshold(deps.Threshold),
		gesture.WithLogger(log),
	)
	return s
}

func (s *Surface) ID() string { return s.id }

func (s *Surface) Kind() Kind { return s.kind }

// PressStart begins a gesture on subject.
// The subject is recorded before the timer is armed so that an early
// onFire always finds it.
func (s *Surface) PressStart(subjectID string) (string, error) {
	s.mu.Lock()
	s.pressing[subjectID] = struct{}{}
	s.mu.Unlock()

	sessionID := s.arbiter.PressStart(subjectID)
	if sessionID == "" {
		s.mu.Lock()
		delete(s.pressing, subjectID)
		s.mu.Unlock()
		return "", ErrClosed
	}

	s.presenter.StateChanged(s.Status())
	return sessionID, nil
}

// PressEnd finishes a gesture. A tap opens the composer unless the surface
// is dispatching; a confirmed hold has already been handled by onFire.
func (s *Surface) PressEnd(ctx context.Context, subjectID string) (gesture.Verdict, error) {
	verdict := s.arbiter.PressEnd(subjectID)

	s.mu.Lock()
	delete(s.pressing, subjectID)
	s.mu.Unlock()

	var err error
	if verdict == gesture.VerdictTap {
		if s.dispatcher.IsBusy(s.id) {
			s.logger.LogGestureEvent(subjectID, "tap_ignored", map[string]interface{}{"reason": "dispatching"})
		} else {
			err = s.openComposer(ctx, subjectID)
		}
	}

	s.presenter.StateChanged(s.Status())
	return verdict, err
}

// Cancel drops a gesture without a verdict.
func (s *Surface) Cancel(subjectID string) {
	s.arbiter.Cancel(subjectID)
	s.mu.Lock()
	delete(s.pressing, subjectID)
	s.mu.Unlock()
	s.presenter.StateChanged(s.Status())
}

func (s *Surface) openComposer(ctx context.Context, subjectID string) error {
	var target *models.Contact
	if s.kind == KindContact {
		contact, err := s.contacts.Lookup(ctx, subjectID)
		if err != nil {
			return err
		}
		target = contact
	}

	st := &ComposerStatus{
		TargetContact: target,
		Permission:    string(location.PermissionDenied),
		selection:     &composer.TagSelection{},
	}
	if s.location != nil {
		st.Permission = string(s.location.RequestPermission(ctx))
	}

	s.mu.Lock()
	s.composer = st
	s.mu.Unlock()

	var params map[string]interface{}
	if target != nil {
		params = map[string]interface{}{"targetContact": target}
	}
	s.presenter.Navigate(s.id, RouteAlertMenu, params)
	return nil
}

// ToggleTag adds or removes a tag in the open composer. A fourth tag is
// refused with the tag limit error and leaves the selection as it was.
func (s *Surface) ToggleTag(tag models.Tag) ([]models.Tag, error) {
	s.mu.Lock()
	if s.composer == nil {
		s.mu.Unlock()
		return nil, ErrComposerClosed
	}
	err := s.composer.selection.Toggle(tag)
	selected := s.composer.selection.Selected()
	s.mu.Unlock()

	if err != nil {
		var verr *composer.ValidationError
		if errors.As(err, &verr) {
			s.presenter.Notify(s.id, Notice{Level: NoticeError, Title: verr.Title(), Message: verr.Message})
		}
		return selected, err
	}

	s.presenter.StateChanged(s.Status())
	return selected, nil
}

// CloseComposer dismisses the composer without sending.
func (s *Surface) CloseComposer() {
	s.mu.Lock()
	s.composer = nil
	s.mu.Unlock()
	s.presenter.StateChanged(s.Status())
}

// onFire runs on the arbiter's timer goroutine once a hold is confirmed.
func (s *Surface) onFire(subjectID string) {
	s.mu.Lock()
	delete(s.pressing, subjectID)
	s.mu.Unlock()

	var target *models.Contact
	var withLocation bool

	prepare := func(ctx context.Context) (composer.Payload, error) {
		s.presenter.StateChanged(s.Status())

		if s.kind == KindContact {
			contact, err := s.contacts.Lookup(ctx, subjectID)
			if err != nil {
				return composer.Payload{}, err
			}
			target = contact
			return composer.ImmediateSOS(contact, nil), nil
		}

		var loc *models.Coordinate
		if s.location != nil {
			if res := s.location.Current(ctx); res.Available() {
				loc = res.Coordinate
			}
		}
		withLocation = loc != nil
		return composer.ImmediateSOS(nil, loc), nil
	}

	alert, err := s.dispatcher.Dispatch(s.ctx, s.id, subjectID, prepare)
	defer func() { s.presenter.StateChanged(s.Status()) }()

	if err != nil {
		s.reportFailure(err, "Failed to send emergency alert. Please try again.")
		return
	}
	s.accept(alert)

	switch {
	case target != nil:
		s.presenter.Notify(s.id, Notice{
			Level:   NoticeInfo,
			Title:   "Emergency Alert Sent",
			Message: "Your emergency alert has been sent to " + target.Name,
		})
	case withLocation:
		s.presenter.Notify(s.id, Notice{
			Level:   NoticeInfo,
			Title:   "Emergency Alert Sent",
			Message: "Your emergency alert with location has been sent to all your contacts.",
		})
		s.presenter.Navigate(s.id, RouteExplore, nil)
	default:
		s.presenter.Notify(s.id, Notice{
			Level:   NoticeInfo,
			Title:   "Emergency Alert Sent",
			Message: "Your emergency alert has been sent to all your contacts.",
		})
		s.presenter.Navigate(s.id, RouteExplore, nil)
	}
}

// ComposeRequest is what the composer screen submits.
type ComposeRequest struct {
	Message         string              `json:"message"`
	Tags            []models.Tag        `json:"tags"`
	IncludeLocation bool                `json:"includeLocation"`
	TargetContactID *primitive.ObjectID `json:"targetContact,omitempty"`
}

// SubmitComposed validates and sends a composer draft through the same
// in-flight slot as the immediate SOS. Validation errors are returned
// before any dispatch starts. Without request tags the composer's own
// selection is used.
func (s *Surface) SubmitComposed(ctx context.Context, req ComposeRequest) (*models.Alert, error) {
	target, err := s.composeTarget(ctx, req.TargetContactID)
	if err != nil {
		return nil, err
	}

	tags := req.Tags
	if len(tags) == 0 {
		tags = s.selectedTags()
	}

	draft := composer.Draft{
		Message:       req.Message,
		Tags:          tags,
		TargetContact: target,
	}
	if _, err := composer.Build(draft); err != nil {
		var verr *composer.ValidationError
		if errors.As(err, &verr) {
			s.presenter.Notify(s.id, Notice{Level: NoticeError, Title: verr.Title(), Message: verr.Message})
		}
		return nil, err
	}

	var withLocation bool
	prepare := func(ctx context.Context) (composer.Payload, error) {
		s.presenter.StateChanged(s.Status())

		d := draft
		if req.IncludeLocation && s.location != nil && s.location.Permission() == location.PermissionGranted {
			if res := s.location.Current(ctx); res.Available() {
				d.Location = res.Coordinate
			}
		}
		payload, err := composer.Build(d)
		withLocation = err == nil && payload.HasLocation()
		return payload, err
	}

	// The submission outlives the caller's request once it has started.
	alert, err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), s.id, "composer", prepare)
	defer func() { s.presenter.StateChanged(s.Status()) }()
	if err != nil {
		s.reportFailure(err, "Failed to create alert")
		return nil, err
	}
	s.accept(alert)

	message := "Your emergency alert has been sent"
	if target != nil {
		message = "Your alert has been sent to " + target.Name
	}
	if withLocation {
		message += " with your location"
	}

	s.mu.Lock()
	s.composer = nil
	s.mu.Unlock()

	s.presenter.Notify(s.id, Notice{Level: NoticeInfo, Title: "Alert Created", Message: message})
	s.presenter.Navigate(s.id, RouteExplore, nil)
	return alert, nil
}

func (s *Surface) composeTarget(ctx context.Context, id *primitive.ObjectID) (*models.Contact, error) {
	if id != nil && !id.IsZero() {
		if s.contacts == nil {
			return nil, ErrUnknownContact
		}
		return s.contacts.Lookup(ctx, id.Hex())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.composer != nil && s.composer.TargetContact != nil {
		c := *s.composer.TargetContact
		return &c, nil
	}
	return nil, nil
}

func (s *Surface) selectedTags() []models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.composer == nil {
		return nil
	}
	return s.composer.selection.Selected()
}

func (s *Surface) accept(alert *models.Alert) {
	if alert == nil || s.reconciler == nil {
		return
	}
	s.reconciler.Insert(*alert)
}

func (s *Surface) reportFailure(err error, message string) {
	if errors.Is(err, dispatch.ErrAlreadyInFlight) {
		s.logger.Debug("Dispatch already in flight, ignoring")
		return
	}
	s.logger.WithError(err).Error("Error sending emergency alert")
	s.presenter.Notify(s.id, Notice{Level: NoticeError, Title: "Error", Message: message})
}

func (s *Surface) Status() Status {
	target, inFlight := s.dispatcher.Target(s.id)

	s.mu.Lock()
	pressing := make([]string, 0, len(s.pressing))
	for subject := range s.pressing {
		pressing = append(pressing, subject)
	}
	var comp *ComposerStatus
	if s.composer != nil {
		c := *s.composer
		c.Tags = s.composer.selection.Selected()
		c.selection = nil
		comp = &c
	}
	s.mu.Unlock()
	sort.Strings(pressing)

	phase := PhaseIdle
	switch {
	case inFlight:
		phase = PhaseDispatching
	case len(pressing) > 0:
		phase = PhasePressing
	case comp != nil:
		phase = PhaseComposerOpen
	}

	return Status{
		Surface:  s.id,
		Kind:     s.kind,
		Phase:    phase,
		InFlight: inFlight,
		Target:   target,
		Pressing: pressing,
		Composer: comp,
	}
}

// Reset clears gestures and the composer, e.g. after sign-out.
func (s *Surface) Reset() {
	s.mu.Lock()
	for subject := range s.pressing {
		s.arbiter.Cancel(subject)
	}
	s.pressing = make(map[string]struct{})
	s.composer = nil
	s.mu.Unlock()
}

// Close tears the surface down. Submissions already on the wire are not
// recalled.
func (s *Surface) Close() {
	s.arbiter.Close()
	s.mu.Lock()
	s.pressing = make(map[string]struct{})
	s.composer = nil
	s.mu.Unlock()
}
