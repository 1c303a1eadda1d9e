package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Task      TaskConfig      `mapstructure:"task"`
	Screening ScreeningConfig `mapstructure:"screening" validate:"required"`
	Privacy   PrivacyConfig   `mapstructure:"privacy" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// TokenLifetime returns the operator token lifetime as a duration.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// LLMConfig contains the settings of the education-article generator.
// Generation is skipped entirely when Enabled is false.
type LLMConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	GeminiAPIKey       string  `mapstructure:"gemini_api_key" validate:"required_if=Enabled true"`
	ModelName          string  `mapstructure:"model_name" validate:"required"`
	PromptTemplatePath string  `mapstructure:"prompt_template_path"`
	MaxRetries         int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds  int     `mapstructure:"retry_delay_seconds" validate:"gte=0"`
	Temperature        float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	RequestsPerMinute  int     `mapstructure:"requests_per_minute" validate:"gt=0"`
	MaxConcurrent      int     `mapstructure:"max_concurrent" validate:"gt=0"`
}

// TaskConfig contains background task processing settings.
type TaskConfig struct {
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
}

// ScreeningConfig contains the session and inference engine settings.
type ScreeningConfig struct {
	SessionTimeoutMinutes int     `mapstructure:"session_timeout_minutes" validate:"required,gt=0"`
	KnowledgeBasePath     string  `mapstructure:"knowledge_base_path"`
	ConfidenceThreshold   float64 `mapstructure:"confidence_threshold" validate:"gt=0,lte=1"`
	MinMargin             float64 `mapstructure:"min_margin" validate:"gte=0,lt=1"`
	ProbabilityFloor      float64 `mapstructure:"probability_floor" validate:"gt=0,lt=0.1"`
	PlausibilityFloor     float64 `mapstructure:"plausibility_floor" validate:"gte=0,lt=1"`
	MinInformationGain    float64 `mapstructure:"min_information_gain" validate:"gte=0"`
	ExplanationLimit      int     `mapstructure:"explanation_limit" validate:"gt=0"`
}

// SessionTimeout returns the idle timeout of a screening session.
func (c ScreeningConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

// PrivacyConfig contains settings for pseudonymizing child identifiers.
type PrivacyConfig struct {
	ChildIDKey string `mapstructure:"child_id_key" validate:"required,min=16"`
}
