// Package config loads runtime configuration from the environment.
//
// Settings read from SCRIVENER_-prefixed variables (SCRIVENER_API_PORT,
// SCRIVENER_LOG_LEVEL, ...). Integration credentials keep the names the
// rest of the deployment already uses: GONG_API_KEY, ANTHROPIC_API_KEY,
// GOOGLE_APPLICATION_CREDENTIALS, SLACK_BOT_TOKEN, DATABASE_URL, NATS_URL.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix = "SCRIVENER"

	defaultPort     = 8750
	defaultLogLevel = "info"
	defaultNatsURL  = "nats://localhost:4222"
	defaultModel    = "claude-sonnet-4-20250514"
)

// Config is the flat runtime configuration for the worker.
type Config struct {
	Port     int
	APIToken string
	LogLevel string

	DatabaseURL string
	NatsURL     string
	NatsToken   string

	GongAPIKey    string
	GongAPISecret string
	HomeDomain    string

	AnthropicAPIKey string
	AnthropicModel  string

	GoogleCredentials string

	SlackBotToken string
	SlackChannel  string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on the provided viper
// instance.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.port", defaultPort)
	v.SetDefault("api.token", "")
	v.SetDefault("api.url", fmt.Sprintf("http://localhost:%d", defaultPort))
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("nats.url", defaultNatsURL)
	v.SetDefault("anthropic.model", defaultModel)

	// The credentials the surrounding deployment already exports, under
	// the names it exports them as.
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("nats.url", "NATS_URL")
	_ = v.BindEnv("nats.token", "NATS_TOKEN")
	_ = v.BindEnv("gong.api_key", "GONG_API_KEY")
	_ = v.BindEnv("gong.api_secret", "GONG_API_SECRET")
	_ = v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("google.credentials", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("slack.bot_token", "SLACK_BOT_TOKEN")
	_ = v.BindEnv("slack.channel", "SLACK_CHANNEL")
}

// Load parses worker configuration from viper and validates that every
// integration the worker talks to has its credentials set.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:              v.GetInt("api.port"),
		APIToken:          v.GetString("api.token"),
		LogLevel:          v.GetString("log.level"),
		DatabaseURL:       v.GetString("database.url"),
		NatsURL:           v.GetString("nats.url"),
		NatsToken:         v.GetString("nats.token"),
		GongAPIKey:        v.GetString("gong.api_key"),
		GongAPISecret:     v.GetString("gong.api_secret"),
		HomeDomain:        v.GetString("home_domain"),
		AnthropicAPIKey:   v.GetString("anthropic.api_key"),
		AnthropicModel:    v.GetString("anthropic.model"),
		GoogleCredentials: v.GetString("google.credentials"),
		SlackBotToken:     v.GetString("slack.bot_token"),
		SlackChannel:      v.GetString("slack.channel"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	required := []struct {
		value string
		name  string
	}{
		{c.DatabaseURL, "DATABASE_URL"},
		{c.GongAPIKey, "GONG_API_KEY"},
		{c.GongAPISecret, "GONG_API_SECRET"},
		{c.AnthropicAPIKey, "ANTHROPIC_API_KEY"},
		{c.GoogleCredentials, "GOOGLE_APPLICATION_CREDENTIALS"},
		{c.SlackBotToken, "SLACK_BOT_TOKEN"},
		{c.SlackChannel, "SLACK_CHANNEL"},
		{c.HomeDomain, "SCRIVENER_HOME_DOMAIN"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("SCRIVENER_API_PORT must be a valid port number, got %d", c.Port)
	}
	return nil
}
