package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App         *AppConfig         `yaml:"app"`
	API         *APIConfig         `yaml:"api"`
	Gesture     *GestureConfig     `yaml:"gesture"`
	Location    *LocationConfig    `yaml:"location"`
	Credentials *CredentialsConfig `yaml:"credentials"`
	Redis       *RedisConfig       `yaml:"redis"`
	Maps        *MapsConfig        `yaml:"maps"`
	WebSocket   *WebSocketConfig   `yaml:"websocket"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	LogOutput   string `yaml:"log_output"`
}

// APIConfig points at the alert/contact/auth REST service.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

func Load() (*Config, error) {
	config := &Config{
		App:         loadAppConfig(),
		API:         loadAPIConfig(),
		Gesture:     loadGestureConfig(),
		Location:    loadLocationConfig(),
		Credentials: loadCredentialsConfig(),
		Redis:       loadRedisConfig(),
		Maps:        loadMapsConfig(),
		WebSocket:   loadWebSocketConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.Gesture.HoldThreshold <= 0 {
		return fmt.Errorf("GESTURE_HOLD_THRESHOLD must be positive, got %s", c.Gesture.HoldThreshold)
	}
	switch c.Location.Source {
	case LocationSourceShell, LocationSourceStatic, LocationSourceGeoIP, LocationSourceNone:
	default:
		return fmt.Errorf("unknown LOCATION_SOURCE %q", c.Location.Source)
	}
	if c.Location.Source == LocationSourceGeoIP && c.Location.GeoIPDatabase == "" {
		return fmt.Errorf("LOCATION_GEOIP_DATABASE is required when LOCATION_SOURCE=geoip")
	}
	switch c.Credentials.Backend {
	case CredentialsBackendMemory, CredentialsBackendRedis:
	default:
		return fmt.Errorf("unknown CREDENTIALS_BACKEND %q", c.Credentials.Backend)
	}
	return nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "SafeSignal"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8090),
		Host:        getEnv("APP_HOST", "127.0.0.1"),
		Debug:       getEnvAsBool("APP_DEBUG", false),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		LogOutput:   getEnv("LOG_OUTPUT", "stdout"),
	}
}

func loadAPIConfig() *APIConfig {
	return &APIConfig{
		BaseURL:   strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:3000"), "/"),
		Timeout:   getEnvAsDuration("API_TIMEOUT", 15*time.Second),
		UserAgent: getEnv("API_USER_AGENT", "safesignal-client/1.0"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
}

func IsDevelopment() bool {
	return getEnv("APP_ENV", "development") == "development"
}
