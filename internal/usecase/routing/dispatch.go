package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"consilium/internal/domain"
)

// Dispatch invokes every ordered candidate concurrently, waits for all of
// them, and returns the successful responses in dispatch order. Each call is
// isolated: an error, a panic, or an explicit failure flag excludes that one
// candidate and never aborts its siblings. Cancellation of in-flight calls
// is not supported beyond the optional per-call timeout.
func (r *Router) Dispatch(ctx context.Context, req domain.ConsultationRequest, orderedIDs []string) []domain.GuidanceResponse {
	results := make([]domain.GuidanceResponse, len(orderedIDs))

	var wg sync.WaitGroup
	for i, agentID := range orderedIDs {
		provider, err := r.registry.Provider(agentID)
		if err != nil {
			results[i] = domain.FailureResponse(req.RequestID, agentID, "not registered", 0)
			continue
		}

		wg.Add(1)
		go func(idx int, id string, p domain.GuidanceProvider) {
			defer wg.Done()
			results[idx] = r.consultOne(ctx, req, id, p)
		}(i, agentID, provider)
	}
	wg.Wait()

	successes := make([]domain.GuidanceResponse, 0, len(results))
	for _, resp := range results {
		if resp.Successful {
			successes = append(successes, resp)
		} else {
			r.logger.Warn("agent consultation failed",
				"request_id", req.RequestID, "agent_id", resp.AgentID, "reason", resp.FailureReason)
		}
	}
	return successes
}

// consultOne runs a single guidance call with metrics bookkeeping and panic
// isolation.
func (r *Router) consultOne(ctx context.Context, req domain.ConsultationRequest, agentID string, provider domain.GuidanceProvider) (out domain.GuidanceResponse) {
	start := time.Now()
	r.registry.RecordStart(agentID)
	defer func() {
		if rec := recover(); rec != nil {
			out = domain.FailureResponse(req.RequestID, agentID, fmt.Sprintf("panic: %v", rec), time.Since(start))
		}
		r.registry.RecordCompletion(agentID, time.Since(start), out.Successful)
	}()

	callCtx := ctx
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	resp, err := provider.ProvideGuidance(callCtx, req)
	if err != nil {
		return domain.FailureResponse(req.RequestID, agentID, err.Error(), time.Since(start))
	}
	if resp.AgentID == "" {
		resp.AgentID = agentID
	}
	if resp.RequestID == "" {
		resp.RequestID = req.RequestID
	}
	if resp.ProcessingTime == 0 {
		resp.ProcessingTime = time.Since(start)
	}
	return resp
}
