package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"DEBUG", "FLOWSYNC_ENDPOINT", "FLOWSYNC_SOURCE", "REDIS_DB", "HTTP_ADDR", "RECONNECT_MAX_ATTEMPTS"} {
		t.Setenv(key, "")
	}
	c := FromEnv()
	if c.Debug || c.Endpoint != "ws://localhost:8080/ws" || c.Source != SourceWebSocket || c.HTTPAddr != ":8090" {
		t.Errorf("defaults = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestEnvThenFlags(t *testing.T) {
	t.Setenv("DEBUG", "1")
	t.Setenv("FLOWSYNC_ENDPOINT", "ws://feed.internal:9000/ws")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "4")

	c := FromEnv()
	if !c.Debug || c.Endpoint != "ws://feed.internal:9000/ws" || c.RedisDB != 0 || c.ReconnectMaxAttempts != 4 {
		t.Fatalf("from env = %+v", c)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(flags)
	if err := flags.Parse([]string{"--source=redis", "--redis-channel=events", "--reconnect-max-attempts=2"}); err != nil {
		t.Fatal(err)
	}
	if c.Source != SourceRedis || c.RedisChannel != "events" || c.ReconnectMaxAttempts != 2 {
		t.Errorf("after flags = %+v", c)
	}
	if c.Endpoint != "ws://feed.internal:9000/ws" {
		t.Errorf("unset flag overrode env: endpoint = %q", c.Endpoint)
	}
	if !c.NeedsRedis() {
		t.Error("redis source does not need redis")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		ok     bool
	}{
		{"websocket", Config{Source: SourceWebSocket, Endpoint: "ws://x/ws"}, true},
		{"websocket without endpoint", Config{Source: SourceWebSocket}, false},
		{"redis", Config{Source: SourceRedis, RedisChannel: "c"}, true},
		{"redis without channel", Config{Source: SourceRedis}, false},
		{"unknown source", Config{Source: "nats", Endpoint: "x"}, false},
		{"negative attempts", Config{Source: SourceWebSocket, Endpoint: "x", ReconnectMaxAttempts: -1}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.config.Validate(); (err == nil) != test.ok {
				t.Errorf("Validate = %v, want ok=%v", err, test.ok)
			}
		})
	}
}
