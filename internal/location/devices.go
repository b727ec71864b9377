package location

import (
	"context"
	"sync"
	"time"

	"github.com/safesignal/sosclient/internal/clock"
	"github.com/safesignal/sosclient/internal/models"
)

// ShellDevice holds what the UI shell last reported: the OS permission
// answer and the most recent position fix.
type ShellDevice struct {
	mu         sync.RWMutex
	clock      clock.Clock
	maxAge     time.Duration
	permission Permission
	fix        *models.Fix
}

func NewShellDevice(c clock.Clock, maxAge time.Duration) *ShellDevice {
	if c == nil {
		c = clock.Real()
	}
	return &ShellDevice{
		clock:      c,
		maxAge:     maxAge,
		permission: PermissionUndetermined,
	}
}

func (d *ShellDevice) SetPermission(p Permission) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permission = p
}

func (d *ShellDevice) ReportFix(fix models.Fix) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fix.Timestamp.IsZero() {
		fix.Timestamp = d.clock.Now()
	}
	d.fix = &fix
}

func (d *ShellDevice) RequestPermission(ctx context.Context) (Permission, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.permission, nil
}

func (d *ShellDevice) CurrentPosition(ctx context.Context) (models.Fix, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.fix == nil {
		return models.Fix{}, ErrUnavailable
	}
	if d.maxAge > 0 && d.fix.Age(d.clock.Now()) > d.maxAge {
		return models.Fix{}, ErrUnavailable
	}
	return *d.fix, nil
}

// StaticDevice reports a fixed coordinate, e.g. a wall-mounted panic
// button whose position never changes.
type StaticDevice struct {
	coordinate models.Coordinate
	clock      clock.Clock
}

func NewStaticDevice(c models.Coordinate) *StaticDevice {
	return &StaticDevice{coordinate: c, clock: clock.Real()}
}

func (d *StaticDevice) RequestPermission(ctx context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (d *StaticDevice) CurrentPosition(ctx context.Context) (models.Fix, error) {
	return models.Fix{Coordinate: d.coordinate, Timestamp: d.clock.Now()}, nil
}

// DisabledDevice always denies. Used when no location source is configured.
type DisabledDevice struct{}

func (DisabledDevice) RequestPermission(ctx context.Context) (Permission, error) {
	return PermissionDenied, nil
}

func (DisabledDevice) CurrentPosition(ctx context.Context) (models.Fix, error) {
	return models.Fix{}, ErrUnavailable
}
