package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. A .env file in the working
// directory is loaded into the environment first when present.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/job-mail-tracker/")
	v.AddConfigPath("$HOME/.job-mail-tracker")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("JOB_TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("JOB_TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Classifier defaults; an empty precedence means the built-in order
	v.SetDefault("classifier.precedence", []string{})
	v.SetDefault("classifier.extra_job_board_domains", []string{})
	v.SetDefault("classifier.extra_free_mail_domains", []string{})
	v.SetDefault("classifier.max_body_size", 16384)

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.sqlite_path", "/data/job_tracker.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/job_tracker")
	v.SetDefault("store.retention", "0s")
	v.SetDefault("store.cleanup_interval", "24h")

	// Source defaults
	v.SetDefault("source.type", "none")
	v.SetDefault("gmail.user", "me")
	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("gmail.query", "")
	v.SetDefault("gmail.rate_limit_rps", 5.0)

	// Scan defaults
	v.SetDefault("scan.enabled", false)
	v.SetDefault("scan.interval", "30m")
	v.SetDefault("scan.max_messages", 2000)
	v.SetDefault("scan.workers", 8)

	// SMTP intake defaults
	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.listen_address", "0.0.0.0:10026")
	v.SetDefault("smtp.header", "X-Job-Category")
	v.SetDefault("smtp.relay.enabled", false)
	v.SetDefault("smtp.relay.address", "localhost")
	v.SetDefault("smtp.relay.port", 10025)

	// HTTP defaults
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.listen_address", "0.0.0.0:8080")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
