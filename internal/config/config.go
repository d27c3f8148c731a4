// Package config resolves connection targets once at startup. Resolution
// order is flags (applied by the caller) over environment over an optional
// env file over defaults; the resolved value is passed down explicitly, never
// cached in a global.
package config

import (
	"log/slog"
	"net"
	"os"

	"github.com/joho/godotenv"
)

// Config carries every externally supplied target address.
type Config struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	AgentHost     string
	AgentPort     string
}

// Load reads the optional env file, then the process environment. A missing
// env file is not an error; local development keeps targets in local.env, the
// deployed environment injects real variables.
func Load(envFile string) Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("env file not loaded, using process environment", "file", envFile, "error", err)
		}
	}
	return Config{
		RedisHost:     getenv("REDIS_HOST", "localhost"),
		RedisPort:     getenv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AgentHost:     getenv("BATCHING_AGENT_HOST", "localhost"),
		AgentPort:     getenv("BATCHING_AGENT_PORT", "8080"),
	}
}

// RedisAddr returns the direct-mode host:port target.
func (c Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

// AgentURL returns the batched-mode base URL.
func (c Config) AgentURL() string {
	return "http://" + net.JoinHostPort(c.AgentHost, c.AgentPort)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
