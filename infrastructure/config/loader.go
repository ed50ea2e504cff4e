package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Helper   HelperConfig   `yaml:"helper"`
	Bilibili BilibiliConfig `yaml:"bilibili"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Google   GoogleConfig   `yaml:"google"`
	Email    EmailConfig    `yaml:"email"`
	Senders  SendersConfig  `yaml:"senders"`
}

// PathsConfig contains directory paths for fetched media
type PathsConfig struct {
	MediaDirectory string `yaml:"media_directory"`
	WorkDirectory  string `yaml:"work_directory"`
}

// HelperConfig contains helper process settings
type HelperConfig struct {
	Runtime        string `yaml:"runtime"`
	Script         string `yaml:"script"`
	TimeoutMinutes int    `yaml:"timeout_minutes"`
}

// BilibiliConfig contains web API settings
type BilibiliConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
	Referer    string `yaml:"referer"`
	UserAgent  string `yaml:"user_agent"`
}

// FetchConfig contains stream selection and verification settings
type FetchConfig struct {
	// Selection picks the streams handed to the downloader: "first" for
	// the listing order, "best" for highest bandwidth
	Selection string `yaml:"selection"`

	// Native downloads in-process instead of delegating to the helper
	Native bool `yaml:"native"`

	// Verify sample-decodes the output after fetching
	Verify bool `yaml:"verify"`
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	ArchiveFolderID string `yaml:"archive_folder_id"`
}

// EmailConfig contains report email settings
type EmailConfig struct {
	FromName    string                     `yaml:"from_name"`
	FromAddress string                     `yaml:"from_address"`
	DefaultCC   []RecipientConfig          `yaml:"default_cc"`
	Recipients  map[string]RecipientConfig `yaml:"recipients"`
}

// RecipientConfig represents an email recipient
type RecipientConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// SendersConfig contains report sender identities
type SendersConfig struct {
	DefaultSender string                  `yaml:"default_sender"`
	Senders       map[string]SenderConfig `yaml:"senders"`
}

// SenderConfig represents a report sender
type SenderConfig struct {
	Name string `yaml:"name"`
}

// SelectionFirst and SelectionBest are the valid fetch.selection values
const (
	SelectionFirst = "first"
	SelectionBest  = "best"
)

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
