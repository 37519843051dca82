package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvBaseURL = "PAWSWIPE_BASE_URL"
	EnvAPIKey  = "PAWSWIPE_API_KEY"
)

// Config represents the CLI configuration
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is one server the CLI can talk to. APIKey may be empty for servers
// without authentication; only decision and admin commands need one.
type Profile struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".pawswipe", "config.yaml"), nil
}

// LoadConfig loads the configuration from file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return loadConfigFrom(configPath)
}

func loadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{
				DefaultProfile: "local",
				Profiles:       make(map[string]Profile),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return saveConfigTo(configPath, cfg)
}

func saveConfigTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResolveProfile picks the server to talk to.
// Priority: command flags > environment variables > config file.
// It returns the profile and its effective name.
func ResolveProfile(name, baseURLFlag, apiKeyFlag string) (*Profile, string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}
	return resolveProfile(cfg, name, baseURLFlag, apiKeyFlag)
}

func resolveProfile(cfg *Config, name, baseURLFlag, apiKeyFlag string) (*Profile, string, error) {
	if name == "" {
		name = cfg.DefaultProfile
	}

	p, ok := cfg.Profiles[name]
	envBaseURL := os.Getenv(EnvBaseURL)
	if !ok && baseURLFlag == "" && envBaseURL == "" {
		return nil, "", fmt.Errorf("profile '%s' not found in config", name)
	}

	switch {
	case baseURLFlag != "":
		p.BaseURL = baseURLFlag
	case envBaseURL != "":
		p.BaseURL = envBaseURL
	}
	switch envAPIKey := os.Getenv(EnvAPIKey); {
	case apiKeyFlag != "":
		p.APIKey = apiKeyFlag
	case envAPIKey != "":
		p.APIKey = envAPIKey
	}

	if p.BaseURL == "" {
		return nil, "", fmt.Errorf("base_url must be configured for profile '%s'", name)
	}
	return &p, name, nil
}

// InitConfig creates a default config file
func InitConfig() error {
	return SaveConfig(defaultConfig())
}

func defaultConfig() *Config {
	return &Config{
		DefaultProfile: "local",
		Profiles: map[string]Profile{
			"local": {
				BaseURL: "http://localhost:8080",
			},
			"shelter": {
				BaseURL: "https://pawswipe.example.org",
				APIKey:  "psk_replace-me",
			},
		},
	}
}
