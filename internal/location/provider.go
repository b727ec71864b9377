package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/safesignal/sosclient/internal/models"
	"github.com/safesignal/sosclient/pkg/logger"
)

type Permission string

const (
	PermissionUndetermined Permission = "undetermined"
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
)

// Device is the platform location capability.
type Device interface {
	RequestPermission(ctx context.Context) (Permission, error)
	CurrentPosition(ctx context.Context) (models.Fix, error)
}

// Result is the outcome of a location lookup. Coordinate is nil when the
// location could not be obtained, and Reason says why.
type Result struct {
	Coordinate *models.Coordinate
	Reason     error
}

func (r Result) Available() bool {
	return r.Coordinate != nil
}

// Provider wraps a Device for one screen lifecycle. The permission answer
// is asked for once and cached; failures never escape as errors.
type Provider struct {
	device  Device
	timeout time.Duration
	logger  *logger.Logger

	mu         sync.Mutex
	permission Permission
}

func NewProvider(device Device, timeout time.Duration, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Discard()
	}
	return &Provider{
		device:     device,
		timeout:    timeout,
		logger:     log.WithField("component", "location"),
		permission: PermissionUndetermined,
	}
}

// RequestPermission asks the device once. Granted and denied answers are
// remembered; an undetermined answer is asked again next time.
func (p *Provider) RequestPermission(ctx context.Context) Permission {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.permission != PermissionUndetermined {
		return p.permission
	}
	if p.device == nil {
		p.permission = PermissionDenied
		return p.permission
	}

	status, err := p.device.RequestPermission(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Location permission request failed")
		status = PermissionDenied
	}
	if status != PermissionUndetermined {
		p.permission = status
	}
	if status == PermissionDenied {
		p.logger.Info("Location permission denied, alerts will be sent without location")
	}
	return status
}

// Reset forgets the cached answer so the next lookup asks the device
// again. Used when a new screen lifecycle starts or the OS answer changes.
func (p *Provider) Reset() {
	p.mu.Lock()
	p.permission = PermissionUndetermined
	p.mu.Unlock()
}

func (p *Provider) Permission() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permission
}

// Current returns the device position, or an unavailable Result.
func (p *Provider) Current(ctx context.Context) Result {
	if p.RequestPermission(ctx) != PermissionGranted {
		return Result{Reason: ErrPermissionDenied}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	fix, err := p.device.CurrentPosition(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Error getting location")
		return Result{Reason: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	if !validCoordinate(fix.Coordinate) {
		p.logger.WithField("coordinate", fix.Coordinate.String()).Warn("Device returned an invalid coordinate")
		return Result{Reason: fmt.Errorf("%w: invalid coordinate %s", ErrUnavailable, fix.Coordinate)}
	}

	coordinate := fix.Coordinate
	return Result{Coordinate: &coordinate}
}

func validCoordinate(c models.Coordinate) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
