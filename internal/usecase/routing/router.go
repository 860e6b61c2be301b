// Package routing selects the responders worth consulting for a request,
// scores and orders them, and dispatches the request to all of them in
// parallel.
package routing

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"consilium/internal/domain"
	"consilium/internal/usecase/depgraph"
	"consilium/internal/usecase/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Router discovers, scores, orders and dispatches consultations.
type Router struct {
	registry    *registry.Registry
	graph       *depgraph.Graph
	callTimeout time.Duration // 0 = no per-call timeout
	logger      *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithCallTimeout enables a per-candidate dispatch timeout. Timeout counts
// as that candidate's failure and never aborts sibling calls.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Router) { r.callTimeout = d }
}

// WithLogger sets the router's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// New creates a Router over the given registry and dependency graph.
func New(reg *registry.Registry, graph *depgraph.Graph, opts ...Option) *Router {
	r := &Router{
		registry: reg,
		graph:    graph,
		logger:   discardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route runs candidate discovery, priority scoring, dependency ordering and
// parallel dispatch for one request. An empty candidate set or a fully
// failed dispatch are valid terminal outcomes carried in the result status.
// The only error is a cyclic dependency configuration, which is fatal.
func (r *Router) Route(ctx context.Context, req domain.ConsultationRequest) (domain.RoutingResult, error) {
	start := time.Now()

	candidates := r.DiscoverCandidates(req)
	if len(candidates) == 0 {
		r.logger.Warn("no agents available", "request_id", req.RequestID, "domain", req.Domain)
		return domain.RoutingResult{
			RequestID:   req.RequestID,
			Status:      domain.RoutingNoAgentsAvailable,
			RoutingTime: time.Since(start),
		}, nil
	}

	reqCaps := CapabilitiesFromQuery(req.Query)
	scores := make(map[string]float64, len(candidates))
	for _, desc := range candidates {
		scores[desc.ID] = r.Score(desc, req, reqCaps)
	}

	// Score decides who is worth consulting; the dependency graph decides
	// the sequence. Sort by score first so graph-level ties keep score order.
	byScore := make([]string, 0, len(candidates))
	for _, desc := range candidates {
		byScore = append(byScore, desc.ID)
	}
	sort.SliceStable(byScore, func(i, j int) bool {
		if scores[byScore[i]] != scores[byScore[j]] {
			return scores[byScore[i]] > scores[byScore[j]]
		}
		return byScore[i] < byScore[j]
	})

	ordered, err := r.graph.OrderForRequest(req.Domain, byScore)
	if err != nil {
		return domain.RoutingResult{}, err
	}
	r.logger.Debug("candidates ordered", "request_id", req.RequestID, "agents", ordered)

	responses := r.Dispatch(ctx, req, ordered)
	elapsed := time.Since(start)

	if len(responses) == 0 {
		r.logger.Warn("all agents failed", "request_id", req.RequestID, "dispatched", len(ordered))
		return domain.RoutingResult{
			RequestID:     req.RequestID,
			Status:        domain.RoutingAllAgentsFailed,
			OrderedAgents: ordered,
			Scores:        scores,
			RoutingTime:   elapsed,
		}, nil
	}

	return domain.RoutingResult{
		RequestID:     req.RequestID,
		Status:        domain.RoutingSuccess,
		Responses:     responses,
		OrderedAgents: ordered,
		Scores:        scores,
		RoutingTime:   elapsed,
	}, nil
}
