package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	directoryPerm  = 0o700
	configFilePerm = 0o600
)

const (
	DefaultParticipants        = 3
	DefaultNodesPerParticipant = 2
	DefaultTickInterval        = 250 * time.Millisecond
)

var defaultTopics = []string{"chatter", "odom", "tf"}

// Config drives the simulator daemon: how many participants to spin
// up, the node/topic shape of the mesh, and how fast it mutates.
type Config struct {
	Participants        int           `yaml:"participants,omitempty"`
	NodesPerParticipant int           `yaml:"nodesPerParticipant,omitempty"`
	Topics              []string      `yaml:"topics,omitempty"`
	TickInterval        time.Duration `yaml:"tickInterval,omitempty"`
	Ticks               int           `yaml:"ticks,omitempty"` // 0 means run until interrupted
	LogLevel            string        `yaml:"logLevel,omitempty"`
}

func Default() *Config {
	return &Config{
		Participants:        DefaultParticipants,
		NodesPerParticipant: DefaultNodesPerParticipant,
		Topics:              append([]string(nil), defaultTopics...),
		TickInterval:        DefaultTickInterval,
		LogLevel:            "info",
	}
}

// Load reads config.yaml from dir, returning defaults when the file is
// absent or empty. Loaded values are validated and canonicalized.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, configFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Topics = canonicalizeTopics(cfg.Topics)
	return cfg, nil
}

// Save writes the config to dir, creating it when needed.
func Save(dir string, cfg *Config) error {
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	cfg.Topics = canonicalizeTopics(cfg.Topics)

	if err := os.MkdirAll(dir, directoryPerm); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	encoded, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, encoded, configFilePerm); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Participants < 1 {
		return fmt.Errorf("participants must be positive, got %d", c.Participants)
	}
	if c.NodesPerParticipant < 1 {
		return fmt.Errorf("nodesPerParticipant must be positive, got %d", c.NodesPerParticipant)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tickInterval must be positive, got %s", c.TickInterval)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", c.Ticks)
	}
	if len(canonicalizeTopics(c.Topics)) == 0 {
		return errors.New("at least one topic required")
	}
	return nil
}

func canonicalizeTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
