package location

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/safesignal/sosclient/internal/models"
)

type cityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// GeoIPDevice approximates the position from a public IP address using a
// MaxMind City database. Accuracy is the database's radius in meters.
type GeoIPDevice struct {
	reader cityLookup
	ip     net.IP
}

func NewGeoIPDevice(databasePath, publicIP string) (*GeoIPDevice, error) {
	ip := net.ParseIP(publicIP)
	if ip == nil {
		return nil, fmt.Errorf("invalid public IP %q", publicIP)
	}

	reader, err := geoip2.Open(databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}

	return &GeoIPDevice{reader: reader, ip: ip}, nil
}

func (d *GeoIPDevice) RequestPermission(ctx context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (d *GeoIPDevice) CurrentPosition(ctx context.Context) (models.Fix, error) {
	if err := ctx.Err(); err != nil {
		return models.Fix{}, err
	}

	record, err := d.reader.City(d.ip)
	if err != nil {
		return models.Fix{}, fmt.Errorf("geoip lookup failed: %w", err)
	}
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return models.Fix{}, ErrUnavailable
	}

	return models.Fix{
		Coordinate: models.Coordinate{
			Latitude:  record.Location.Latitude,
			Longitude: record.Location.Longitude,
		},
		Accuracy:  float64(record.Location.AccuracyRadius) * 1000,
		Timestamp: time.Now(),
	}, nil
}

func (d *GeoIPDevice) Close() error {
	return d.reader.Close()
}
