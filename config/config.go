package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultTokenTTL = 6 * time.Hour

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	LogLevel       string
	// DebugTokens enables logging of issued tokens and their claims.
	DebugTokens bool
	LiveKit     LiveKitConfig
}

// LiveKitConfig holds the key pair shared with the media server.
type LiveKitConfig struct {
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "4000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEBUG_TOKENS", false)
	v.SetDefault("LIVEKIT_API_KEY", "")
	v.SetDefault("LIVEKIT_API_SECRET", "")
	v.SetDefault("LIVEKIT_TOKEN_TTL", defaultTokenTTL.String())

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("module", "config").Err(err).Msg("no .env file, using environment only")
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	// Parse allowed origins (comma-separated)
	var origins []string
	for _, o := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Port:           v.GetString("PORT"),
		Environment:    v.GetString("ENVIRONMENT"),
		AllowedOrigins: origins,
		LogLevel:       v.GetString("LOG_LEVEL"),
		DebugTokens:    v.GetBool("DEBUG_TOKENS"),
		LiveKit: LiveKitConfig{
			APIKey:    v.GetString("LIVEKIT_API_KEY"),
			APISecret: v.GetString("LIVEKIT_API_SECRET"),
			TokenTTL:  v.GetDuration("LIVEKIT_TOKEN_TTL"),
		},
	}
}

// Validate checks the values that have no safe fallback.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	if c.LiveKit.TokenTTL <= 0 {
		return fmt.Errorf("LIVEKIT_TOKEN_TTL must be positive, got %s", c.LiveKit.TokenTTL)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
