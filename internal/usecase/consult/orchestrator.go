// Package consult sequences a consultation through context validation,
// routing, consistency checking with conflict resolution, and contextual
// enhancement, producing one terminal result per request.
package consult

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"consilium/internal/domain"
	"consilium/internal/infra/tracer"
	"consilium/internal/usecase/consistency"
	"consilium/internal/usecase/depgraph"
	"consilium/internal/usecase/registry"
	"consilium/internal/usecase/resolution"
	"consilium/internal/usecase/routing"
)

// DefaultLatencyBudget is the soft SLO for one consultation. Exceeding it is
// logged, never failed.
const DefaultLatencyBudget = 3 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Orchestrator wires the engine's stages together. The four stages run
// strictly sequentially per request; concurrent requests share only the
// read-mostly registry and graph.
type Orchestrator struct {
	registry  *registry.Registry
	graph     *depgraph.Graph
	router    *routing.Router
	validator *consistency.Validator
	resolver  *resolution.Resolver
	contexts  ContextValidator
	budget    time.Duration
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLatencyBudget overrides the soft SLO budget.
func WithLatencyBudget(d time.Duration) Option {
	return func(o *Orchestrator) { o.budget = d }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an Orchestrator over the given collaborators.
func New(reg *registry.Registry, graph *depgraph.Graph, router *routing.Router,
	validator *consistency.Validator, resolver *resolution.Resolver,
	contexts ContextValidator, opts ...Option) *Orchestrator {

	o := &Orchestrator{
		registry:  reg,
		graph:     graph,
		router:    router,
		validator: validator,
		resolver:  resolver,
		contexts:  contexts,
		budget:    DefaultLatencyBudget,
		logger:    discardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Consult runs one consultation end to end. It never returns an error or
// lets a panic escape: every outcome, including internal faults, is a
// structured OrchestrationResult with a success flag and failure reason.
func (o *Orchestrator) Consult(ctx context.Context, req domain.ConsultationRequest) (result domain.OrchestrationResult) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = domain.NewRequestID()
	}

	ctx, span := tracer.StartSpan(ctx, "consult",
		tracer.StringAttr("request_id", req.RequestID),
		tracer.StringAttr("domain", req.Domain))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("consultation panicked: %v", rec)
			o.logger.Error("consultation failed", "request_id", req.RequestID, "error", err)
			tracer.RecordError(span, err)
			result = o.failure(req.RequestID, err.Error(), start)
		}
	}()

	o.logger.Info("consultation started", "request_id", req.RequestID, "domain", req.Domain)

	// Stage 1: context check, fails closed.
	validation := o.checkContext(ctx, req)
	if !validation.Sufficient {
		reason := domain.ReasonContextInsufficient
		if len(validation.MissingInputs) > 0 {
			reason = fmt.Sprintf("%s: missing %s", reason, strings.Join(validation.MissingInputs, ", "))
		}
		o.logger.Warn("context insufficient", "request_id", req.RequestID,
			"missing_inputs", validation.MissingInputs, "missing_decisions", validation.MissingDecisions)
		return o.failure(req.RequestID, reason, start)
	}

	// Stage 2: routing. Terminal routing outcomes short-circuit without
	// consistency validation.
	routingResult, err := o.route(ctx, req)
	if err != nil {
		o.logger.Error("routing failed", "request_id", req.RequestID, "error", err)
		tracer.RecordError(span, err)
		return o.failure(req.RequestID, err.Error(), start)
	}
	if !routingResult.Successful() {
		result := o.failure(req.RequestID, routingFailureReason(routingResult.Status), start)
		result.Routing = &routingResult
		return result
	}

	// Stage 3: consistency validation and, when needed, conflict resolution.
	consistencyResult, resolutionResult, final := o.reconcile(ctx, req, routingResult.Responses)

	// Stage 4: contextual enhancement and SLO stamp.
	final = o.enhance(ctx, final, req)
	total := time.Since(start)
	if total > o.budget {
		o.logger.Warn("latency budget exceeded", "request_id", req.RequestID,
			"total", total, "budget", o.budget)
	}

	tracer.SetOK(span)
	o.logger.Info("consultation complete", "request_id", req.RequestID,
		"agents", len(routingResult.Responses), "consistent", consistencyResult.Consistent,
		"total", total)

	return domain.OrchestrationResult{
		RequestID:   req.RequestID,
		Final:       final,
		Routing:     &routingResult,
		Consistency: &consistencyResult,
		Resolution:  resolutionResult,
		TotalTime:   total,
		Successful:  true,
	}
}

func (o *Orchestrator) checkContext(ctx context.Context, req domain.ConsultationRequest) domain.ContextValidation {
	_, span := tracer.StartSpan(ctx, "consult.context_check")
	defer span.End()
	return o.contexts.Validate(req)
}

func (o *Orchestrator) route(ctx context.Context, req domain.ConsultationRequest) (domain.RoutingResult, error) {
	ctx, span := tracer.StartSpan(ctx, "consult.route")
	defer span.End()
	return o.router.Route(ctx, req)
}

// reconcile validates cross-agent consistency and collapses the responses to
// one. The resolution result is nil unless actual conflicts were resolved.
func (o *Orchestrator) reconcile(ctx context.Context, req domain.ConsultationRequest, responses []domain.GuidanceResponse) (domain.ConsistencyResult, *domain.ResolutionResult, domain.GuidanceResponse) {
	_, span := tracer.StartSpan(ctx, "consult.reconcile",
		tracer.IntAttr("responses", len(responses)))
	defer span.End()

	consistencyResult := o.validator.Validate(responses)
	res := o.resolver.Resolve(responses, req, consistencyResult)
	if res.HadConflicts {
		return consistencyResult, &res, res.Resolved
	}
	return consistencyResult, nil, res.Resolved
}

func (o *Orchestrator) enhance(ctx context.Context, resp domain.GuidanceResponse, req domain.ConsultationRequest) domain.GuidanceResponse {
	_, span := tracer.StartSpan(ctx, "consult.enhance")
	defer span.End()
	return o.contexts.Enhance(resp, req)
}

func (o *Orchestrator) failure(requestID, reason string, start time.Time) domain.OrchestrationResult {
	return domain.OrchestrationResult{
		RequestID:     requestID,
		TotalTime:     time.Since(start),
		Successful:    false,
		FailureReason: reason,
	}
}

func routingFailureReason(status domain.RoutingStatus) string {
	switch status {
	case domain.RoutingNoAgentsAvailable:
		return domain.ReasonNoAgentsAvailable
	case domain.RoutingAllAgentsFailed:
		return domain.ReasonAllAgentsFailed
	default:
		return "routing failed"
	}
}

// SystemHealth reports the engine's diagnostic snapshot: registry
// availability, dependency graph acyclicity, and context manager liveness.
func (o *Orchestrator) SystemHealth() domain.SystemHealth {
	return domain.SystemHealth{
		Registry:              o.registry.Health(),
		DependencyGraphValid:  o.graph.Validate() == nil,
		ContextManagerHealthy: o.contexts.Healthy(),
	}
}
