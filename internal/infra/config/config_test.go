package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if cfg.Logger.Level != def.Logger.Level {
		t.Errorf("logger.level = %q, want %q", cfg.Logger.Level, def.Logger.Level)
	}
	if cfg.Engine.LatencyBudget != 3*time.Second {
		t.Errorf("latency_budget = %s, want 3s", cfg.Engine.LatencyBudget)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Schedule != "@every 30s" {
		t.Errorf("sweeper defaults wrong: %+v", cfg.Sweeper)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
logger:
  level: debug
  format: json
engine:
  latency_budget: 5s
  dispatch_timeout: 500ms
agents:
  - id: architecture-agent
    domain: system-architecture
    level: 0
    priority: 100
  - id: security-agent
    domain: security
    depends_on: [architecture-agent]
    level: 2
    priority: 90
cross_domain_rules:
  - domain: security
    supporting: [system-architecture, deployment]
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Format != "json" {
		t.Errorf("logger = %+v", cfg.Logger)
	}
	if cfg.Logger.Output != "stderr" {
		t.Errorf("output should keep default, got %q", cfg.Logger.Output)
	}
	if cfg.Engine.LatencyBudget != 5*time.Second {
		t.Errorf("latency_budget = %s, want 5s", cfg.Engine.LatencyBudget)
	}
	if cfg.Engine.DispatchTimeout != 500*time.Millisecond {
		t.Errorf("dispatch_timeout = %s, want 500ms", cfg.Engine.DispatchTimeout)
	}
	if len(cfg.Agents) != 2 || cfg.Agents[1].DependsOn[0] != "architecture-agent" {
		t.Errorf("agents = %+v", cfg.Agents)
	}
	if len(cfg.CrossDomainRules) != 1 || len(cfg.CrossDomainRules[0].Supporting) != 2 {
		t.Errorf("cross_domain_rules = %+v", cfg.CrossDomainRules)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logger: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CONSILIUM_LOGGER_LEVEL", "debug")
	t.Setenv("CONSILIUM_LOGGER_FORMAT", "json")
	t.Setenv("CONSILIUM_TRACER_ENABLED", "true")
	t.Setenv("CONSILIUM_TRACER_EXPORTER", "stdout")
	t.Setenv("CONSILIUM_ENGINE_LATENCY_BUDGET", "10s")
	t.Setenv("CONSILIUM_SWEEPER_ENABLED", "false")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Logger.Level != "debug" || cfg.Logger.Format != "json" {
		t.Errorf("logger = %+v", cfg.Logger)
	}
	if !cfg.Tracer.Enabled || cfg.Tracer.Exporter != "stdout" {
		t.Errorf("tracer = %+v", cfg.Tracer)
	}
	if cfg.Engine.LatencyBudget != 10*time.Second {
		t.Errorf("latency_budget = %s, want 10s", cfg.Engine.LatencyBudget)
	}
	if cfg.Sweeper.Enabled {
		t.Error("sweeper should be disabled")
	}
}

func TestApplyEnvOverridesIgnoresBadDuration(t *testing.T) {
	t.Setenv("CONSILIUM_ENGINE_LATENCY_BUDGET", "soon")
	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Engine.LatencyBudget != 3*time.Second {
		t.Errorf("latency_budget = %s, want default 3s", cfg.Engine.LatencyBudget)
	}
}

func TestValidate(t *testing.T) {
	agent := func(id, dom string, deps ...string) AgentConfig {
		return AgentConfig{ID: id, Domain: dom, DependsOn: deps, Priority: 50}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults ok", func(*Config) {}, ""},
		{"zero budget", func(c *Config) { c.Engine.LatencyBudget = 0 }, "latency_budget"},
		{"negative dispatch timeout", func(c *Config) { c.Engine.DispatchTimeout = -time.Second }, "dispatch_timeout"},
		{"sweeper without schedule", func(c *Config) { c.Sweeper.Schedule = "" }, "sweeper.schedule"},
		{"sweeper zero load", func(c *Config) { c.Sweeper.MaxActiveLoad = 0 }, "max_active_load"},
		{"breaker zero failures", func(c *Config) { c.Breaker.MaxFailures = 0 }, "max_failures"},
		{"agent without id", func(c *Config) {
			c.Agents = []AgentConfig{agent("", "security")}
		}, "id must be set"},
		{"duplicate agent", func(c *Config) {
			c.Agents = []AgentConfig{agent("a", "security"), agent("a", "testing")}
		}, "duplicate id"},
		{"agent without domain", func(c *Config) {
			c.Agents = []AgentConfig{agent("a", "")}
		}, "domain must be set"},
		{"priority out of range", func(c *Config) {
			a := agent("a", "security")
			a.Priority = 101
			c.Agents = []AgentConfig{a}
		}, "priority"},
		{"unknown dependency", func(c *Config) {
			c.Agents = []AgentConfig{agent("a", "security", "ghost")}
		}, "unknown dependency"},
		{"rule without supporting", func(c *Config) {
			c.CrossDomainRules = []CrossDomainRule{{Domain: "security"}}
		}, "supporting"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}
