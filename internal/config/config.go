// Package config holds the module's configuration, loaded from YAML
// the way the teacher's internal/config.Config is, extended with the
// solver/classifier knobs from spec.md §6's configuration table.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DomainFilterMode selects how the passive auto-processor decides
// which domains to submit cookies for, spec.md §4.3.
type DomainFilterMode string

const (
	DomainFilterAll        DomainFilterMode = "ALL"
	DomainFilterInScope    DomainFilterMode = "IN_SCOPE"
	DomainFilterCustomList DomainFilterMode = "CUSTOM_LIST"
)

// Config is the full configuration surface: persisted through the
// host's Preferences per spec.md §6, but also loadable from a
// standalone YAML file for the CLI front end.
type Config struct {
	Version string `yaml:"version"`

	Store struct {
		Path string `yaml:"path"` // cookiedb.path
	} `yaml:"store"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		Path   string   `yaml:"path"`
	} `yaml:"log"`

	Classifier struct {
		AutoProcess      bool             `yaml:"autoProcess"`      // cookiedb.autoProcess
		WorkerThreads    int              `yaml:"workerThreads"`    // cookiedb.workerThreads, 1-10
		QueriesPerMinute int              `yaml:"queriesPerMinute"` // cookiedb.queriesPerMinute, 1-60
		QueueCapacity    int              `yaml:"queueCapacity"`
		DomainFilter     struct {
			Mode    DomainFilterMode `yaml:"mode"`
			Domains []string         `yaml:"domains"`
		} `yaml:"domainFilter"`
	} `yaml:"classifier"`

	AI struct {
		Provider string `yaml:"provider"` // cookiedb.ai.provider: "OpenAI" or "Anthropic"
		Endpoint string `yaml:"endpoint"` // cookiedb.ai.endpoint
		APIKey   string `yaml:"apiKey"`   // cookiedb.openai.apiKey
		Model    string `yaml:"model"`    // cookiedb.openai.model
	} `yaml:"ai"`
}

// NewConfig returns the defaults named throughout spec.md §6 and §4.3.
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}
	c.Store.Path = DefaultStorePath()
	c.Log.Level = "info"
	c.Log.Writer = []string{"console"}
	c.Classifier.WorkerThreads = 3
	c.Classifier.QueriesPerMinute = 10
	c.Classifier.QueueCapacity = 1000
	c.Classifier.DomainFilter.Mode = DomainFilterAll
	c.AI.Provider = "OpenAI"
	c.AI.Model = "gpt-4"
	return c
}

// DefaultStorePath mirrors spec.md §6's persisted-state layout: a
// single embedded database file under a platform-neutral per-user
// directory, overridable by config.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return home + string(os.PathSeparator) + ".burp-cookie-db" + string(os.PathSeparator) + "cookies.db"
}

// Load reads and validates a YAML config file, filling in defaults
// for anything left unset.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values outside the ranges spec.md's configuration table
// requires (worker threads 1-10, rate 1-60).
func (c *Config) Validate() error {
	if c.Classifier.WorkerThreads < 1 || c.Classifier.WorkerThreads > 10 {
		return fmt.Errorf("classifier.workerThreads must be in [1,10], got %d", c.Classifier.WorkerThreads)
	}
	if c.Classifier.QueriesPerMinute < 1 || c.Classifier.QueriesPerMinute > 60 {
		return fmt.Errorf("classifier.queriesPerMinute must be in [1,60], got %d", c.Classifier.QueriesPerMinute)
	}
	switch c.Classifier.DomainFilter.Mode {
	case DomainFilterAll, DomainFilterInScope, DomainFilterCustomList, "":
	default:
		return fmt.Errorf("unknown domainFilter.mode %q", c.Classifier.DomainFilter.Mode)
	}
	return nil
}

// ParseDomainList splits a comma/semicolon/space separated domain
// list, per spec.md §6's domainFilter.domains format.
func ParseDomainList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
