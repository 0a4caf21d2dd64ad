package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models onboardline.yml.
type Config struct {
	Municipality struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"municipality"`
	Onboarding struct {
		// Months from the employment start date until the checklist's
		// working window ends.
		EndWindowMonths int `yaml:"end_window_months"`
		// Months from the employment start date until the checklist
		// expires and the sweep locks it.
		ExpirationMonths int `yaml:"expiration_months"`
		// Sweep loop interval, Go duration string.
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"onboarding"`
	Directory struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"directory"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; generate one with obl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Municipality.ID == "" {
		return fmt.Errorf("config.municipality.id is required")
	}
	if c.Onboarding.EndWindowMonths <= 0 {
		return fmt.Errorf("config.onboarding.end_window_months must be positive")
	}
	if c.Onboarding.ExpirationMonths < c.Onboarding.EndWindowMonths {
		return fmt.Errorf("config.onboarding.expiration_months must not precede end_window_months")
	}
	if c.Onboarding.SweepInterval == "" {
		return fmt.Errorf("config.onboarding.sweep_interval is required")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "onboardline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(municipalityID string) string {
	return fmt.Sprintf(defaultTemplate, municipalityID)
}

// Default returns the default Config struct for a municipality.
func Default(municipalityID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, municipalityID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `municipality:
  id: %s
  name: ""

onboarding:
  end_window_months: 6
  expiration_months: 9
  sweep_interval: 1h

directory:
  base_url: ""
  api_key: ""
`
