// Package config loads the engine configuration from YAML with environment
// overrides and validates it before use.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// EngineConfig tunes the orchestration pipeline.
type EngineConfig struct {
	LatencyBudget   time.Duration `yaml:"latency_budget"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"` // 0 = no per-call timeout
	SessionStale    time.Duration `yaml:"session_stale"`
	ContextKeys     []string      `yaml:"context_keys,omitempty"` // empty = built-in defaults
}

// SweeperConfig controls the registry availability sweeper.
type SweeperConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	MaxActiveLoad int    `yaml:"max_active_load"`
}

// BreakerConfig controls the per-responder circuit breaker and rate limiter.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
	RatePerSec  float64       `yaml:"rate_per_sec"` // 0 = unlimited
	RateBurst   int           `yaml:"rate_burst"`
}

// AgentConfig declares one responder in the dependency graph.
type AgentConfig struct {
	ID           string   `yaml:"id"`
	Domain       string   `yaml:"domain"`
	Capabilities []string `yaml:"capabilities,omitempty"`
	DependsOn    []string `yaml:"depends_on,omitempty"`
	Level        int      `yaml:"level"`
	Priority     int      `yaml:"priority"`
}

// CrossDomainRule maps a primary domain to its supporting domain tags.
type CrossDomainRule struct {
	Domain     string   `yaml:"domain"`
	Supporting []string `yaml:"supporting"`
}

// Config is the top-level engine configuration.
type Config struct {
	Logger           LoggerConfig      `yaml:"logger"`
	Tracer           TracerConfig      `yaml:"tracer"`
	Engine           EngineConfig      `yaml:"engine"`
	Sweeper          SweeperConfig     `yaml:"sweeper"`
	Breaker          BreakerConfig     `yaml:"breaker"`
	Agents           []AgentConfig     `yaml:"agents,omitempty"` // empty = built-in roster
	CrossDomainRules []CrossDomainRule `yaml:"cross_domain_rules,omitempty"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Engine: EngineConfig{
			LatencyBudget: 3 * time.Second,
			SessionStale:  30 * time.Minute,
		},
		Sweeper: SweeperConfig{
			Enabled:       true,
			Schedule:      "@every 30s",
			MaxActiveLoad: 10,
		},
		Breaker: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
			RateBurst:   1,
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A missing
// file is not an error: defaults plus env overrides are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps CONSILIUM_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONSILIUM_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("CONSILIUM_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("CONSILIUM_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("CONSILIUM_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("CONSILIUM_ENGINE_LATENCY_BUDGET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Engine.LatencyBudget = d
		}
	}
	if v := os.Getenv("CONSILIUM_ENGINE_DISPATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Engine.DispatchTimeout = d
		}
	}
	if v := os.Getenv("CONSILIUM_SWEEPER_ENABLED"); v == "false" {
		cfg.Sweeper.Enabled = false
	}
	if v := os.Getenv("CONSILIUM_SWEEPER_SCHEDULE"); v != "" {
		cfg.Sweeper.Schedule = v
	}
}

// Validate checks the configuration for structural errors.
func Validate(cfg *Config) error {
	if cfg.Engine.LatencyBudget <= 0 {
		return fmt.Errorf("engine.latency_budget must be positive, got %s", cfg.Engine.LatencyBudget)
	}
	if cfg.Engine.DispatchTimeout < 0 {
		return fmt.Errorf("engine.dispatch_timeout must not be negative, got %s", cfg.Engine.DispatchTimeout)
	}
	if cfg.Sweeper.Enabled {
		if cfg.Sweeper.Schedule == "" {
			return fmt.Errorf("sweeper.schedule must be set when the sweeper is enabled")
		}
		if cfg.Sweeper.MaxActiveLoad <= 0 {
			return fmt.Errorf("sweeper.max_active_load must be positive, got %d", cfg.Sweeper.MaxActiveLoad)
		}
	}
	if cfg.Breaker.Enabled && cfg.Breaker.MaxFailures == 0 {
		return fmt.Errorf("breaker.max_failures must be positive when the breaker is enabled")
	}

	seen := make(map[string]bool, len(cfg.Agents))
	for i, a := range cfg.Agents {
		if a.ID == "" {
			return fmt.Errorf("agents[%d]: id must be set", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
		if a.Domain == "" {
			return fmt.Errorf("agent %q: domain must be set", a.ID)
		}
		if a.Level < 0 {
			return fmt.Errorf("agent %q: level must not be negative, got %d", a.ID, a.Level)
		}
		if a.Priority < 0 || a.Priority > 100 {
			return fmt.Errorf("agent %q: priority must be in [0,100], got %d", a.ID, a.Priority)
		}
	}
	for _, a := range cfg.Agents {
		for _, dep := range a.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("agent %q: unknown dependency %q", a.ID, dep)
			}
		}
	}

	for i, r := range cfg.CrossDomainRules {
		if r.Domain == "" {
			return fmt.Errorf("cross_domain_rules[%d]: domain must be set", i)
		}
		if len(r.Supporting) == 0 {
			return fmt.Errorf("cross_domain_rules[%d] (%s): supporting must not be empty", i, r.Domain)
		}
	}
	return nil
}
