package config

import (
	"fmt"
	"time"
)

// ClassifierConfig represents the configuration for the rule classifier
type ClassifierConfig struct {
	Precedence           []string
	ExtraJobBoardDomains []string
	ExtraFreeMailDomains []string
	MaxBodySize          int
}

// StoreConfig represents the configuration for the result store
type StoreConfig struct {
	Type            string
	SQLitePath      string
	MySQLDSN        string
	Retention       time.Duration
	CleanupInterval time.Duration
}

// GmailConfig represents the configuration for the Gmail source
type GmailConfig struct {
	User              string
	CredentialsFile   string
	TokenFile         string
	Query             string
	RequestsPerSecond float64
}

// ScanConfig represents the configuration for scheduled scans
type ScanConfig struct {
	Enabled     bool
	Interval    time.Duration
	MaxMessages int
	Workers     int
}

// SMTPConfig represents the configuration for the SMTP intake
type SMTPConfig struct {
	Enabled       bool
	ListenAddress string
	Header        string
	RelayEnabled  bool
	RelayAddress  string
	RelayPort     int
}

// HTTPConfig represents the configuration for the HTTP API
type HTTPConfig struct {
	Enabled       bool
	ListenAddress string
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Precedence:           c.GetStringSlice("classifier.precedence"),
		ExtraJobBoardDomains: c.GetStringSlice("classifier.extra_job_board_domains"),
		ExtraFreeMailDomains: c.GetStringSlice("classifier.extra_free_mail_domains"),
		MaxBodySize:          c.GetInt("classifier.max_body_size"),
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	retention, err := c.GetDuration("store.retention")
	if err != nil {
		return StoreConfig{}, err
	}
	cleanup, err := c.GetDuration("store.cleanup_interval")
	if err != nil {
		return StoreConfig{}, err
	}

	return StoreConfig{
		Type:            c.GetString("store.type"),
		SQLitePath:      c.GetString("store.sqlite_path"),
		MySQLDSN:        c.GetString("store.mysql_dsn"),
		Retention:       retention,
		CleanupInterval: cleanup,
	}, nil
}

// GetSourceType returns the configured message source
func (c *Config) GetSourceType() string {
	return c.GetString("source.type")
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		User:              c.GetString("gmail.user"),
		CredentialsFile:   c.GetString("gmail.credentials_file"),
		TokenFile:         c.GetString("gmail.token_file"),
		Query:             c.GetString("gmail.query"),
		RequestsPerSecond: c.GetFloat64("gmail.rate_limit_rps"),
	}
}

// GetScan returns the scan configuration
func (c *Config) GetScan() (ScanConfig, error) {
	interval, err := c.GetDuration("scan.interval")
	if err != nil {
		return ScanConfig{}, err
	}
	if interval < time.Minute {
		return ScanConfig{}, fmt.Errorf("scan.interval must be at least 1m, got %s", interval)
	}

	return ScanConfig{
		Enabled:     c.GetBool("scan.enabled"),
		Interval:    interval,
		MaxMessages: c.GetInt("scan.max_messages"),
		Workers:     c.GetInt("scan.workers"),
	}, nil
}

// GetSMTP returns the SMTP intake configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:       c.GetBool("smtp.enabled"),
		ListenAddress: c.GetString("smtp.listen_address"),
		Header:        c.GetString("smtp.header"),
		RelayEnabled:  c.GetBool("smtp.relay.enabled"),
		RelayAddress:  c.GetString("smtp.relay.address"),
		RelayPort:     c.GetInt("smtp.relay.port"),
	}
}

// GetHTTP returns the HTTP API configuration
func (c *Config) GetHTTP() HTTPConfig {
	return HTTPConfig{
		Enabled:       c.GetBool("http.enabled"),
		ListenAddress: c.GetString("http.listen_address"),
	}
}
