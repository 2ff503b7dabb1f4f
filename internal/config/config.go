// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultLinearAPIURL is Linear's public GraphQL endpoint.
const DefaultLinearAPIURL = "https://api.linear.app/graphql"

// Config holds all configuration parameters for the application.
type Config struct {
	Linear  LinearConfig
	Logging LoggingConfig
}

// LinearConfig holds Linear specific configuration.
type LinearConfig struct {
	// APIKey is a personal API key, sent verbatim in the Authorization header
	APIKey string
	// OAuthToken is an OAuth access token, sent as a bearer token
	OAuthToken string
	// TeamID overrides the team configured in the import document when set
	TeamID string
	// APIURL is the GraphQL endpoint
	APIURL string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// HasCredentials reports whether an API key or an OAuth token is configured.
func (c LinearConfig) HasCredentials() bool {
	return c.APIKey != "" || c.OAuthToken != ""
}

// LoadConfig initializes and loads configuration from environment variables.
// A .env file in the working directory is read first if present; variables
// already set in the environment win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindEnv(v, map[string]string{
		"linear.api_key":     "LINEAR_API_KEY",
		"linear.oauth_token": "LINEAR_OAUTH_TOKEN",
		"linear.team_id":     "LINEAR_TEAM_ID",
		"linear.api_url":     "LINEAR_API_URL",
		"log.level":          "LOG_LEVEL",
		"log.format":         "LOG_FORMAT",
	}); err != nil {
		return nil, err
	}

	v.SetDefault("linear.api_url", DefaultLinearAPIURL)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	config := &Config{
		Linear: LinearConfig{
			APIKey:     v.GetString("linear.api_key"),
			OAuthToken: v.GetString("linear.oauth_token"),
			TeamID:     v.GetString("linear.team_id"),
			APIURL:     v.GetString("linear.api_url"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func bindEnv(v *viper.Viper, keys map[string]string) error {
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// validateConfig checks values that are wrong regardless of the command.
func validateConfig(config *Config) error {
	var problems []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[config.Logging.Level] {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", config.Logging.Level))
	}
	if config.Logging.Format != "text" && config.Logging.Format != "json" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", config.Logging.Format))
	}
	if config.Linear.APIURL == "" {
		problems = append(problems, "LINEAR_API_URL must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateLinearConfig validates the settings needed to mutate Linear.
func ValidateLinearConfig(config *Config) error {
	if !config.Linear.HasCredentials() {
		return fmt.Errorf("missing required environment variables: [LINEAR_API_KEY or LINEAR_OAUTH_TOKEN]")
	}
	return nil
}
