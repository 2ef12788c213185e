// Package config loads the process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort        = 8080
	defaultHTTPTimeout = 30 * time.Second
)

// Config holds the settings shared by the CLI and the HTTP server.
type Config struct {
	// GitHubToken is the optional upstream credential.
	GitHubToken string
	// DefaultUsername is used by the stats command when no user is given.
	DefaultUsername string

	Env                string
	Port               int
	CorsAllowedOrigins []string

	GitHubAPIURL      string
	GitHubGraphQLURL  string
	HTTPTimeout       time.Duration
	RateLimitMaxSleep time.Duration
}

// IsDev reports whether the process runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// Load reads a .env file when one exists and builds a Config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		GitHubToken:      get("GITHUB_TOKEN", ""),
		DefaultUsername:  get("GITHUB_USERNAME", ""),
		Env:              get("APP_ENV", "production"),
		GitHubAPIURL:     get("GITHUB_API_URL", ""),
		GitHubGraphQLURL: get("GITHUB_GRAPHQL_URL", ""),
	}

	port, err := strconv.Atoi(get("PORT", strconv.Itoa(defaultPort)))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", get("PORT", ""))
	}
	cfg.Port = port

	for _, origin := range strings.Split(get("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CorsAllowedOrigins = append(cfg.CorsAllowedOrigins, origin)
		}
	}

	if cfg.HTTPTimeout, err = time.ParseDuration(get("HTTP_TIMEOUT", defaultHTTPTimeout.String())); err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if cfg.RateLimitMaxSleep, err = time.ParseDuration(get("RATE_LIMIT_MAX_SLEEP", "0s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX_SLEEP: %w", err)
	}

	return cfg, nil
}
