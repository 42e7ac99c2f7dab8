package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/basel-ax/emojify/internal/domain"
)

// Environment keys
const (
	KeyReplicateAPIToken      = "REPLICATE_API_TOKEN"
	KeyReplicateBaseURL       = "REPLICATE_BASE_URL"
	KeyReplicateCheckInterval = "REPLICATE_CHECK_INTERVAL"
	KeyReplicateMaxAttempts   = "REPLICATE_MAX_ATTEMPTS"
	KeyReplicateHTTPTimeout   = "REPLICATE_HTTP_TIMEOUT"
	KeyServerAddr             = "SERVER_ADDR"
	KeyGinMode                = "GIN_MODE"
	KeyCORSAllowedOrigins     = "CORS_ALLOWED_ORIGINS"
)

const missingTokenMessage = "The REPLICATE_API_TOKEN environment variable is not set. See README.md for instructions on how to set it."

// ReplicateConfig holds the inference provider settings
type ReplicateConfig struct {
	APIToken      string
	BaseURL       string
	CheckInterval time.Duration
	// MaxAttempts bounds status polling; zero polls until a terminal status.
	MaxAttempts int
	// HTTPTimeout of zero leaves the transport default in place.
	HTTPTimeout time.Duration
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Addr               string
	GinMode            string
	CORSAllowedOrigins []string
}

// Config holds all configuration for the application
type Config struct {
	Replicate ReplicateConfig
	Server    ServerConfig
}

// Load reads the optional .env files and the environment. A missing API token
// is not a load error; Validate reports it.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(KeyReplicateBaseURL, "https://api.replicate.com")
	v.SetDefault(KeyReplicateCheckInterval, 2)
	v.SetDefault(KeyReplicateMaxAttempts, 0)
	v.SetDefault(KeyReplicateHTTPTimeout, 0)
	v.SetDefault(KeyServerAddr, ":8080")
	v.SetDefault(KeyGinMode, "release")
	v.SetDefault(KeyCORSAllowedOrigins, "http://localhost:3000")

	config := &Config{
		Replicate: ReplicateConfig{
			APIToken:      strings.TrimSpace(v.GetString(KeyReplicateAPIToken)),
			BaseURL:       strings.TrimRight(v.GetString(KeyReplicateBaseURL), "/"),
			CheckInterval: time.Duration(v.GetInt(KeyReplicateCheckInterval)) * time.Second,
			MaxAttempts:   v.GetInt(KeyReplicateMaxAttempts),
			HTTPTimeout:   time.Duration(v.GetInt(KeyReplicateHTTPTimeout)) * time.Second,
		},
		Server: ServerConfig{
			Addr:               v.GetString(KeyServerAddr),
			GinMode:            v.GetString(KeyGinMode),
			CORSAllowedOrigins: splitList(v.GetString(KeyCORSAllowedOrigins)),
		},
	}

	if config.Replicate.CheckInterval <= 0 {
		return nil, fmt.Errorf("%s must be positive", KeyReplicateCheckInterval)
	}
	if config.Replicate.MaxAttempts < 0 {
		return nil, fmt.Errorf("%s must not be negative", KeyReplicateMaxAttempts)
	}
	if config.Replicate.HTTPTimeout < 0 {
		return nil, fmt.Errorf("%s must not be negative", KeyReplicateHTTPTimeout)
	}

	return config, nil
}

// Validate checks the settings every prediction depends on
func (c *Config) Validate() error {
	if c == nil || c.Replicate.APIToken == "" {
		return domain.NewConfigurationError(missingTokenMessage)
	}
	return nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("error loading %s file: %w", file, err)
		}
	}
	return nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
