package config

import (
	"time"
)

const (
	LocationSourceShell  = "shell"
	LocationSourceStatic = "static"
	LocationSourceGeoIP  = "geoip"
	LocationSourceNone   = "none"
)

type LocationConfig struct {
	Source        string        `yaml:"source"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxFixAge     time.Duration `yaml:"max_fix_age"`
	StaticLat     float64       `yaml:"static_lat"`
	StaticLng     float64       `yaml:"static_lng"`
	GeoIPDatabase string        `yaml:"geoip_database"`
	PublicIP      string        `yaml:"public_ip"`
}

func loadLocationConfig() *LocationConfig {
	return &LocationConfig{
		Source:        getEnv("LOCATION_SOURCE", LocationSourceShell),
		Timeout:       getEnvAsDuration("LOCATION_TIMEOUT", 5*time.Second),
		MaxFixAge:     getEnvAsDuration("LOCATION_MAX_FIX_AGE", 2*time.Minute),
		StaticLat:     getEnvAsFloat64("LOCATION_STATIC_LAT", 0),
		StaticLng:     getEnvAsFloat64("LOCATION_STATIC_LNG", 0),
		GeoIPDatabase: getEnv("LOCATION_GEOIP_DATABASE", ""),
		PublicIP:      getEnv("LOCATION_PUBLIC_IP", ""),
	}
}
