// Package config loads and validates the bot configuration file. The file is
// read once at startup; bad values fail the process there, never at decision
// time. Credentials (access token, API base URL) are deliberately not part of
// the file and come from flags or the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fedibot/fedibot/policy"
)

// ErrInvalid wraps every validation failure, so callers can distinguish a bad
// config from an unreadable file.
var ErrInvalid = errors.New("invalid config")

const DefaultRefreshSeconds = 10

type Config struct {
	// seconds between notification polls; must be positive
	RefreshSeconds *int   `yaml:"refresh_interval"`
	TemplatesDir   string `yaml:"templates_dir"`

	Boosts     policy.Policy `yaml:"boosts"`
	Favourites policy.Policy `yaml:"favourites"`

	// direct message posted when a new follower arrives
	Welcome policy.MessageConfig `yaml:"welcome"`

	// forwarding of $report mentions to the operator
	Report policy.MessageConfig `yaml:"report"`
}

func (c *Config) RefreshInterval() time.Duration {
	secs := DefaultRefreshSeconds
	if c.RefreshSeconds != nil {
		secs = *c.RefreshSeconds
	}
	return time.Duration(secs) * time.Second
}

func (c *Config) Validate() error {
	if c.RefreshSeconds != nil && *c.RefreshSeconds <= 0 {
		return fmt.Errorf("%w: refresh_interval must be a positive number of seconds, got %d", ErrInvalid, *c.RefreshSeconds)
	}
	for name, msg := range map[string]policy.MessageConfig{
		"boosts.missing_message":     c.Boosts.MissingMessage,
		"favourites.missing_message": c.Favourites.MissingMessage,
		"welcome":                    c.Welcome,
		"report":                     c.Report,
	} {
		if msg.Enabled && msg.Template == "" {
			return fmt.Errorf("%w: %s is enabled but names no template", ErrInvalid, name)
		}
	}
	return nil
}

// Load reads, strictly decodes, and validates a YAML config file. Unknown
// keys are rejected so typos surface at startup.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "templates"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
