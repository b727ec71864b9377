package location

import (
	"context"
	"errors"
	"math"
	"net"
	"testing"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safesignal/sosclient/internal/clock"
	"github.com/safesignal/sosclient/internal/models"
)

type fakeDevice struct {
	permission    Permission
	permissionErr error
	fix           models.Fix
	fixErr        error
	block         bool

	permissionCalls int
	positionCalls   int
}

func (d *fakeDevice) RequestPermission(ctx context.Context) (Permission, error) {
	d.permissionCalls++
	return d.permission, d.permissionErr
}

func (d *fakeDevice) CurrentPosition(ctx context.Context) (models.Fix, error) {
	d.positionCalls++
	if d.block {
		<-ctx.Done()
		return models.Fix{}, ctx.Err()
	}
	return d.fix, d.fixErr
}

func TestPermissionRequestedOnce(t *testing.T) {
	device := &fakeDevice{permission: PermissionGranted, fix: models.Fix{Coordinate: models.Coordinate{Latitude: 1, Longitude: 2}}}
	p := NewProvider(device, time.Second, nil)

	assert.Equal(t, PermissionGranted, p.RequestPermission(context.Background()))
	assert.Equal(t, PermissionGranted, p.RequestPermission(context.Background()))
	p.Current(context.Background())

	assert.Equal(t, 1, device.permissionCalls)
}

func TestUndeterminedPermissionIsAskedAgain(t *testing.T) {
	device := &fakeDevice{permission: PermissionUndetermined}
	p := NewProvider(device, time.Second, nil)

	assert.Equal(t, PermissionUndetermined, p.RequestPermission(context.Background()))
	device.permission = PermissionGranted
	assert.Equal(t, PermissionGranted, p.RequestPermission(context.Background()))
	assert.Equal(t, 2, device.permissionCalls)
}

func TestCurrentReturnsCoordinate(t *testing.T) {
	device := &fakeDevice{permission: PermissionGranted, fix: models.Fix{Coordinate: models.Coordinate{Latitude: 1, Longitude: 2}}}
	p := NewProvider(device, time.Second, nil)

	result := p.Current(context.Background())
	require.True(t, result.Available())
	assert.Equal(t, models.Coordinate{Latitude: 1, Longitude: 2}, *result.Coordinate)
	assert.NoError(t, result.Reason)
}

func TestDeniedPermissionDegrades(t *testing.T) {
	device := &fakeDevice{permission: PermissionDenied}
	p := NewProvider(device, time.Second, nil)

	result := p.Current(context.Background())
	assert.False(t, result.Available())
	assert.ErrorIs(t, result.Reason, ErrPermissionDenied)
	assert.Equal(t, 0, device.positionCalls)
}

func TestPermissionErrorTreatedAsDenied(t *testing.T) {
	device := &fakeDevice{permissionErr: errors.New("prompt dismissed")}
	p := NewProvider(device, time.Second, nil)

	assert.Equal(t, PermissionDenied, p.RequestPermission(context.Background()))
	assert.Equal(t, PermissionDenied, p.Permission())
}

func TestDeviceFailureDegrades(t *testing.T) {
	device := &fakeDevice{permission: PermissionGranted, fixErr: errors.New("gps off")}
	p := NewProvider(device, time.Second, nil)

	result := p.Current(context.Background())
	assert.False(t, result.Available())
	assert.ErrorIs(t, result.Reason, ErrUnavailable)
}

func TestDeviceTimeoutDegrades(t *testing.T) {
	device := &fakeDevice{permission: PermissionGranted, block: true}
	p := NewProvider(device, 10*time.Millisecond, nil)

	result := p.Current(context.Background())
	assert.False(t, result.Available())
	assert.ErrorIs(t, result.Reason, ErrUnavailable)
}

func TestInvalidCoordinateDegrades(t *testing.T) {
	device := &fakeDevice{permission: PermissionGranted, fix: models.Fix{Coordinate: models.Coordinate{Latitude: math.NaN(), Longitude: 2}}}
	p := NewProvider(device, time.Second, nil)

	assert.False(t, p.Current(context.Background()).Available())

	device.fix = models.Fix{Coordinate: models.Coordinate{Latitude: 91, Longitude: 2}}
	assert.False(t, p.Current(context.Background()).Available())
}

func TestNilDeviceIsDenied(t *testing.T) {
	p := NewProvider(nil, time.Second, nil)
	assert.ErrorIs(t, p.Current(context.Background()).Reason, ErrPermissionDenied)
}

func TestShellDevice(t *testing.T) {
	c := clock.NewFake(time.Unix(1700000000, 0))
	d := NewShellDevice(c, time.Minute)

	status, err := d.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionUndetermined, status)

	_, err = d.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	d.SetPermission(PermissionGranted)
	d.ReportFix(models.Fix{Coordinate: models.Coordinate{Latitude: 10, Longitude: 20}})

	fix, err := d.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.0, fix.Coordinate.Latitude)
	assert.Equal(t, c.Now(), fix.Timestamp)

	c.Advance(2 * time.Minute)
	_, err = d.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStaticAndDisabledDevices(t *testing.T) {
	static := NewProvider(NewStaticDevice(models.Coordinate{Latitude: 3, Longitude: 4}), time.Second, nil)
	result := static.Current(context.Background())
	require.True(t, result.Available())
	assert.Equal(t, 3.0, result.Coordinate.Latitude)

	disabled := NewProvider(DisabledDevice{}, time.Second, nil)
	assert.ErrorIs(t, disabled.Current(context.Background()).Reason, ErrPermissionDenied)
}

type fakeCityReader struct {
	city *geoip2.City
	err  error
	ip   net.IP
}

func (r *fakeCityReader) City(ip net.IP) (*geoip2.City, error) {
	r.ip = ip
	return r.city, r.err
}

func (r *fakeCityReader) Close() error { return nil }

func TestGeoIPDevice(t *testing.T) {
	city := &geoip2.City{}
	city.Location.Latitude = 48.85
	city.Location.Longitude = 2.35
	city.Location.AccuracyRadius = 20

	reader := &fakeCityReader{city: city}
	d := &GeoIPDevice{reader: reader, ip: net.ParseIP("203.0.113.9")}

	fix, err := d.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 48.85, fix.Coordinate.Latitude)
	assert.Equal(t, 2.35, fix.Coordinate.Longitude)
	assert.Equal(t, 20000.0, fix.Accuracy)
	assert.Equal(t, "203.0.113.9", reader.ip.String())

	reader.city = &geoip2.City{}
	_, err = d.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewGeoIPDeviceRejectsBadIP(t *testing.T) {
	_, err := NewGeoIPDevice("/nonexistent.mmdb", "not-an-ip")
	assert.ErrorContains(t, err, "invalid public IP")
}

func TestResetAsksAgain(t *testing.T) {
	device := &fakeDevice{permission: PermissionDenied}
	p := NewProvider(device, time.Second, nil)

	assert.Equal(t, PermissionDenied, p.RequestPermission(context.Background()))
	device.permission = PermissionGranted
	assert.Equal(t, PermissionDenied, p.RequestPermission(context.Background()))

	p.Reset()
	assert.Equal(t, PermissionUndetermined, p.Permission())
	assert.Equal(t, PermissionGranted, p.RequestPermission(context.Background()))
	assert.Equal(t, 2, device.permissionCalls)
}
