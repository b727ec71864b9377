package config

import (
	"time"
)

const (
	CredentialsBackendMemory = "memory"
	CredentialsBackendRedis  = "redis"
)

type CredentialsConfig struct {
	Backend string        `yaml:"backend"`
	Key     string        `yaml:"key"`
	TTL     time.Duration `yaml:"ttl"`
}

func loadCredentialsConfig() *CredentialsConfig {
	return &CredentialsConfig{
		Backend: getEnv("CREDENTIALS_BACKEND", CredentialsBackendMemory),
		Key:     getEnv("CREDENTIALS_KEY", "safesignal:token"),
		TTL:     getEnvAsDuration("CREDENTIALS_TTL", 0),
	}
}
