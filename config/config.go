// Package config holds the settings of the traffic view client. Every
// setting has a default, can be overridden by an environment variable,
// and again by a command-line flag.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

// Feed source kinds.
const (
	SourceWebSocket = "websocket"
	SourceRedis     = "redis"
)

// Config holds the client configuration.
type Config struct {
	Debug bool

	// Endpoint is the FlowSync feed, e.g. ws://localhost:8080/ws.
	Endpoint string
	// Source selects where frames come from: websocket or redis.
	Source string

	RedisAddr    string
	RedisDB      int
	RedisChannel string

	// LightsFile and LightsRedisKey seed traffic lights. The file wins
	// when both are set.
	LightsFile     string
	LightsRedisKey string

	// HTTPAddr serves the snapshot API. Empty disables it.
	HTTPAddr string

	// ReconnectMaxAttempts caps consecutive failed connection attempts;
	// zero retries forever.
	ReconnectMaxAttempts int
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for anything unset or unparsable.
func FromEnv() Config {
	return Config{
		Debug:                os.Getenv("DEBUG") == "true" || os.Getenv("DEBUG") == "1",
		Endpoint:             getEnv("FLOWSYNC_ENDPOINT", "ws://localhost:8080/ws"),
		Source:               getEnv("FLOWSYNC_SOURCE", SourceWebSocket),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisChannel:         getEnv("REDIS_CHANNEL", "trafficlight_events"),
		LightsFile:           os.Getenv("LIGHTS_FILE"),
		LightsRedisKey:       os.Getenv("LIGHTS_REDIS_KEY"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8090"),
		ReconnectMaxAttempts: getEnvInt("RECONNECT_MAX_ATTEMPTS", 0),
	}
}

// BindFlags registers a flag for every field, defaulting to the
// current value of c, so that flags override the environment.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&c.Debug, "debug", c.Debug, "enable debug logging")
	flags.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "feed WebSocket endpoint")
	flags.StringVar(&c.Source, "source", c.Source, "feed source: websocket or redis")
	flags.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address")
	flags.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")
	flags.StringVar(&c.RedisChannel, "redis-channel", c.RedisChannel, "Redis pub/sub channel carrying feed events")
	flags.StringVar(&c.LightsFile, "lights-file", c.LightsFile, "YAML file of traffic lights to seed")
	flags.StringVar(&c.LightsRedisKey, "lights-redis-key", c.LightsRedisKey, "Redis hash of traffic lights to seed")
	flags.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "address of the snapshot API (empty disables it)")
	flags.IntVar(&c.ReconnectMaxAttempts, "reconnect-max-attempts", c.ReconnectMaxAttempts, "consecutive failed connection attempts before giving up (0 = never)")
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.Source == SourceRedis || (c.LightsFile == "" && c.LightsRedisKey != "")
}

// Validate checks settings that have no usable fallback.
func (c Config) Validate() error {
	switch c.Source {
	case SourceWebSocket:
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint is required for the %s source", SourceWebSocket)
		}
	case SourceRedis:
		if c.RedisChannel == "" {
			return fmt.Errorf("redis channel is required for the %s source", SourceRedis)
		}
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source, SourceWebSocket, SourceRedis)
	}
	if c.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("reconnect-max-attempts must not be negative")
	}
	return nil
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}
