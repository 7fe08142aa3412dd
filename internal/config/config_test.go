package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := NewServerConfig("")
	if err != nil {
		t.Fatalf("NewServerConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %s", cfg.Port)
	}
	if cfg.ToolTimeout != 15*time.Second || cfg.AgentTimeout != 60*time.Second || cfg.TurnTimeout != 120*time.Second {
		t.Errorf("timeouts = %v / %v / %v", cfg.ToolTimeout, cfg.AgentTimeout, cfg.TurnTimeout)
	}
	if cfg.HistoryWindow != 20 {
		t.Errorf("history window = %d", cfg.HistoryWindow)
	}
}

func TestYAMLOverridesAndPortEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sezatoare.yaml")
	doc := "port: \"9999\"\ndefault_agent: granny\ntool_timeout: 5s\nagent_timeout: 30s\nturn_timeout: 90s\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewServerConfig(path)
	if err != nil {
		t.Fatalf("NewServerConfig: %v", err)
	}
	if cfg.Port != "9999" || cfg.DefaultAgent != "granny" || cfg.ToolTimeout != 5*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("PORT", "7777")
	cfg, err = NewServerConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7777" {
		t.Errorf("PORT env did not win: %s", cfg.Port)
	}
}

func TestMissingYAMLIsNotAnError(t *testing.T) {
	if _, err := NewServerConfig(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("missing yaml: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []Server{
		{Port: "1", DefaultAgent: "a", ToolTimeout: 0, AgentTimeout: time.Second, TurnTimeout: time.Minute},
		{Port: "1", DefaultAgent: "a", ToolTimeout: time.Second, AgentTimeout: time.Minute, TurnTimeout: time.Second},
		{Port: "1", DefaultAgent: "", ToolTimeout: time.Second, AgentTimeout: time.Second, TurnTimeout: time.Minute},
		{Port: "1", DefaultAgent: "a", ToolTimeout: time.Second, AgentTimeout: time.Second, TurnTimeout: time.Minute, HistoryWindow: -1},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d accepted: %+v", i, c)
		}
	}
}
