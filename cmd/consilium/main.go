package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"consilium/internal/adapter/agents"
	"consilium/internal/domain"
	"consilium/internal/infra/config"
	"consilium/internal/infra/logger"
	"consilium/internal/infra/tracer"
	"consilium/internal/usecase/consistency"
	"consilium/internal/usecase/consult"
	"consilium/internal/usecase/depgraph"
	"consilium/internal/usecase/registry"
	"consilium/internal/usecase/resolution"
	"consilium/internal/usecase/routing"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "consult":
		if err := runConsult(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "consult: %v\n", err)
			os.Exit(1)
		}
	case "health":
		if err := runHealth(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "health: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'consilium --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`consilium - Multi-agent consultation routing engine

USAGE:
    consilium COMMAND [FLAGS]

COMMANDS:
    consult     Route one consultation through the specialist roster
    health      Report engine health (registry, dependency graph, context)

FLAGS (consult):
    --config PATH      Config file path (default: ./config.yaml)
    --domain NAME      Primary domain of the request (required)
    --query TEXT       The question to consult on (required)
    --context K=V      Context attribute, repeatable
    --json             Emit the full result as JSON

FLAGS (health):
    --config PATH      Config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml
    Environment: CONSILIUM_* variables override config

EXAMPLES:
    consilium consult --domain implementation --query "Spring Boot service with JWT auth" \
        --context project-context=pos --context architectural-decisions=adr-001 \
        --context current-task=checkout --context domain-constraints=pci
    consilium health`)
}

// contextFlag collects repeated --context K=V pairs.
type contextFlag map[string]string

func (c contextFlag) String() string { return fmt.Sprintf("%v", map[string]string(c)) }

func (c contextFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("context must be KEY=VALUE, got %q", s)
	}
	c[k] = v
	return nil
}

// engine bundles the wired pipeline with its teardown hooks.
type engine struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *consult.Orchestrator
	sweeper      *registry.Sweeper
	closeLog     func() error
	stopTracer   func(context.Context) error
}

func (e *engine) close(ctx context.Context) {
	if e.sweeper != nil {
		e.sweeper.Stop()
	}
	if e.stopTracer != nil {
		_ = e.stopTracer(ctx)
	}
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}

// buildEngine loads config and wires the full consultation pipeline.
func buildEngine(ctx context.Context, configPath string) (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	stopTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("setup tracer: %w", err)
	}

	reg := registry.New(log)
	graph := depgraph.New(log)

	providers := agents.Roster()
	wrap := func(id string, p domain.GuidanceProvider) domain.GuidanceProvider {
		if !cfg.Breaker.Enabled {
			return p
		}
		return agents.NewBreakerProvider(id, p, agents.BreakerConfig{
			MaxFailures: cfg.Breaker.MaxFailures,
			Timeout:     cfg.Breaker.OpenTimeout,
			RatePerSec:  cfg.Breaker.RatePerSec,
			RateBurst:   cfg.Breaker.RateBurst,
		}, log)
	}

	if len(cfg.Agents) > 0 {
		for _, a := range cfg.Agents {
			provider, ok := providers[a.ID]
			if !ok {
				log.Warn("no provider for configured agent, skipping", "agent_id", a.ID)
				continue
			}
			graph.Register(a.ID, a.DependsOn, a.Level, a.Priority)
			desc := domain.AgentDescriptor{
				ID:           a.ID,
				Domain:       a.Domain,
				Capabilities: a.Capabilities,
				Available:    true,
			}
			if err := reg.Register(desc, wrap(a.ID, provider)); err != nil {
				return nil, fmt.Errorf("register agent %q: %w", a.ID, err)
			}
		}
		for _, rule := range cfg.CrossDomainRules {
			graph.AddCrossDomainRule(rule.Domain, rule.Supporting...)
		}
	} else {
		graph.Seed()
		for _, desc := range agents.Descriptors() {
			if err := reg.Register(desc, wrap(desc.ID, providers[desc.ID])); err != nil {
				return nil, fmt.Errorf("register agent %q: %w", desc.ID, err)
			}
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("validate dependency graph: %w", err)
	}

	routerOpts := []routing.Option{routing.WithLogger(log)}
	if cfg.Engine.DispatchTimeout > 0 {
		routerOpts = append(routerOpts, routing.WithCallTimeout(cfg.Engine.DispatchTimeout))
	}
	router := routing.New(reg, graph, routerOpts...)

	contexts := consult.NewContextManager(cfg.Engine.ContextKeys,
		consult.WithSessionStaleness(cfg.Engine.SessionStale))

	orch := consult.New(reg, graph, router,
		consistency.New(log), resolution.New(log), contexts,
		consult.WithLatencyBudget(cfg.Engine.LatencyBudget),
		consult.WithLogger(log))

	e := &engine{
		cfg:          cfg,
		logger:       log,
		orchestrator: orch,
		closeLog:     closeLog,
		stopTracer:   stopTracer,
	}

	if cfg.Sweeper.Enabled {
		e.sweeper = registry.NewSweeper(reg, cfg.Sweeper.Schedule, cfg.Sweeper.MaxActiveLoad, log)
		if err := e.sweeper.Start(); err != nil {
			e.close(ctx)
			return nil, fmt.Errorf("start sweeper: %w", err)
		}
	}
	return e, nil
}

func runConsult(args []string) error {
	fs := flag.NewFlagSet("consult", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "config file path")
	domainTag := fs.String("domain", "", "primary domain of the request")
	query := fs.String("query", "", "the question to consult on")
	asJSON := fs.Bool("json", false, "emit the full result as JSON")
	reqContext := contextFlag{}
	fs.Var(reqContext, "context", "context attribute KEY=VALUE, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *domainTag == "" || *query == "" {
		return fmt.Errorf("--domain and --query are required")
	}

	ctx := context.Background()
	eng, err := buildEngine(ctx, *configPath)
	if err != nil {
		return err
	}
	defer eng.close(ctx)

	req := domain.ConsultationRequest{
		RequestID: domain.NewRequestID(),
		Domain:    *domainTag,
		Query:     *query,
		Context:   reqContext,
	}
	result := eng.orchestrator.Consult(ctx, req)

	if *asJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printResult(result)
	}

	if !result.Successful {
		return fmt.Errorf("consultation failed: %s", result.FailureReason)
	}
	return nil
}

func printResult(result domain.OrchestrationResult) {
	fmt.Printf("request:  %s\n", result.RequestID)
	fmt.Printf("duration: %s\n", result.TotalTime)
	if !result.Successful {
		fmt.Printf("outcome:  failed (%s)\n", result.FailureReason)
		return
	}
	if result.Routing != nil {
		fmt.Printf("agents:   %s\n", strings.Join(result.Routing.OrderedAgents, ", "))
	}
	if result.Consistency != nil {
		fmt.Printf("consistency: %.2f (consistent=%t)\n",
			result.Consistency.Score, result.Consistency.Consistent)
	}
	if result.Resolution != nil {
		fmt.Printf("resolution:  %s\n", result.Resolution.Strategy)
	}
	fmt.Printf("\n%s\n", result.Final.Guidance)
	if len(result.Final.Recommendations) > 0 {
		fmt.Println("\nrecommendations:")
		for _, rec := range result.Final.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	eng, err := buildEngine(ctx, *configPath)
	if err != nil {
		return err
	}
	defer eng.close(ctx)

	health := eng.orchestrator.SystemHealth()
	out, err := json.MarshalIndent(health, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !health.Healthy() {
		return fmt.Errorf("engine unhealthy")
	}
	return nil
}
