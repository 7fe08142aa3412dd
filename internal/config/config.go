package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for turn execution. All of them can be overridden via an optional
// sezatoare.yaml next to the binary or the working directory.
const (
	DefaultToolTimeout   = 15 * time.Second
	DefaultAgentTimeout  = 60 * time.Second
	DefaultTurnTimeout   = 120 * time.Second
	DefaultHistoryWindow = 20
	DefaultAgentID       = "story_creator"
)

// Server holds runtime configuration for the orchestrator.
type Server struct {
	Port          string        `yaml:"port"`
	DefaultAgent  string        `yaml:"default_agent"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`
	AgentTimeout  time.Duration `yaml:"agent_timeout"`
	TurnTimeout   time.Duration `yaml:"turn_timeout"`
	HistoryWindow int           `yaml:"history_window"`
}

// NewServerConfig builds a Server config from defaults, an optional YAML
// file, and environment variables (PORT wins over the file).
func NewServerConfig(yamlPath string) (*Server, error) {
	cfg := &Server{
		Port:          "8080",
		DefaultAgent:  DefaultAgentID,
		ToolTimeout:   DefaultToolTimeout,
		AgentTimeout:  DefaultAgentTimeout,
		TurnTimeout:   DefaultTurnTimeout,
		HistoryWindow: DefaultHistoryWindow,
	}

	if yamlPath != "" {
		if err := cfg.loadYAML(yamlPath); err != nil {
			return nil, err
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML merges values from a YAML file into the config. A missing file is
// not an error; a malformed one is.
func (c *Server) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	log.Printf("[Config] Loaded server config from %s", path)
	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Server) Validate() error {
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive, got %v", c.ToolTimeout)
	}
	if c.AgentTimeout <= 0 {
		return fmt.Errorf("agent_timeout must be positive, got %v", c.AgentTimeout)
	}
	if c.TurnTimeout < c.AgentTimeout {
		return fmt.Errorf("turn_timeout %v must not be shorter than agent_timeout %v", c.TurnTimeout, c.AgentTimeout)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("history_window cannot be negative, got %d", c.HistoryWindow)
	}
	if c.DefaultAgent == "" {
		return fmt.Errorf("default_agent cannot be empty")
	}
	return nil
}
