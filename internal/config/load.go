package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SCREENING_SERVER_PORT.
const EnvPrefix = "SCREENING"

var defaults = map[string]any{
	"server.port":                       8080,
	"server.log_level":                  "info",
	"auth.token_lifetime_minutes":       720,
	"llm.enabled":                       false,
	"llm.model_name":                    "gemini-2.5-flash",
	"llm.max_retries":                   3,
	"llm.retry_delay_seconds":           2,
	"llm.temperature":                   0.7,
	"llm.requests_per_minute":           30,
	"llm.max_concurrent":                2,
	"task.queue_size":                   100,
	"task.worker_count":                 2,
	"screening.session_timeout_minutes": 30,
	"screening.confidence_threshold":    0.85,
	"screening.min_margin":              0.30,
	"screening.probability_floor":       1e-6,
	"screening.plausibility_floor":      0.01,
	"screening.min_information_gain":    0.01,
	"screening.explanation_limit":       3,
}

// Keys without defaults still need binding so Unmarshal sees their env vars.
var envOnlyKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"llm.gemini_api_key",
	"llm.prompt_template_path",
	"screening.knowledge_base_path",
	"privacy.child_id_key",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	cfg, err := LoadUnvalidated(nil)
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return cfg, nil
}

// LoadUnvalidated reads configuration from the same sources as Load without
// validating the result, for tools that only need part of it. Each flag in
// bindings overrides its key when the flag was set on the command line.
func LoadUnvalidated(bindings map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Optional config.yaml in the working directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}
	for key, flag := range bindings {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("error binding flag for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}
