package config

import (
	"fmt"
	"time"
)

// RedisConfig is only read when the token lives in redis
// (CREDENTIALS_BACKEND=redis); the websocket mirror reuses the connection.
// One token and a trickle of events need no pool tuning.
type RedisConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLS          bool          `yaml:"tls"`
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvAsInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvAsInt("REDIS_DB", 0),
		DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 3*time.Second),
		ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", time.Second),
		WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", time.Second),
		TLS:          getEnvAsBool("REDIS_TLS", false),
	}
}
