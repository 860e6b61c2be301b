// Package resolution collapses divergent guidance responses into one, either
// by merging consistent answers or by dispatching a named conflict strategy.
package resolution

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"consilium/internal/domain"
)

// lowConfidenceCutoff triggers the highest-confidence strategy when the
// confidence dimension scores below it.
const lowConfidenceCutoff = 0.5

// expertiseOverride routes a query keyword group to a preferred agent
// identity substring when no direct domain match exists.
type expertiseOverride struct {
	keywords       []string
	agentSubstring string
}

var expertiseOverrides = []expertiseOverride{
	{[]string{"event", "kafka", "messaging", "sns", "sqs", "rabbitmq"}, "event-driven"},
	{[]string{"cicd", "pipeline", "build", "jenkins", "github actions", "deployment strategy"}, "cicd"},
	{[]string{"config", "feature flag", "secrets", "vault", "consul", "spring cloud config"}, "configuration"},
	{[]string{"resilience", "circuit breaker", "retry", "chaos", "bulkhead", "resilience4j"}, "resilience"},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Resolver applies conflict resolution strategies to response sets.
type Resolver struct {
	logger *slog.Logger
}

// New creates a Resolver.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = discardLogger()
	}
	return &Resolver{logger: logger}
}

// Resolve produces a single response from a response set. A single response
// passes through untouched; a consistent set is merged; an inconsistent set
// goes through strategy dispatch.
func (r *Resolver) Resolve(responses []domain.GuidanceResponse, req domain.ConsultationRequest, consistency domain.ConsistencyResult) domain.ResolutionResult {
	start := time.Now()

	if len(responses) < 2 {
		return domain.ResolutionResult{
			Resolved:       responses[0],
			Method:         "no conflicts detected",
			HadConflicts:   false,
			ResolutionTime: time.Since(start),
		}
	}

	if consistency.Consistent {
		return domain.ResolutionResult{
			Resolved:       r.MergeConsistent(responses, req),
			Method:         "responses are consistent - merged",
			HadConflicts:   false,
			ResolutionTime: time.Since(start),
		}
	}

	strategy := SelectStrategy(consistency)
	resolved := r.Apply(strategy, responses, req)
	r.logger.Info("conflicts resolved",
		"request_id", req.RequestID, "strategy", strategy, "responses", len(responses))

	return domain.ResolutionResult{
		Resolved:       resolved,
		Strategy:       strategy,
		Method:         fmt.Sprintf("conflicts resolved using %s", strategy),
		HadConflicts:   true,
		ResolutionTime: time.Since(start),
	}
}

// SelectStrategy picks the resolution strategy for an inconsistent result,
// in priority order: architectural conflicts, cross-domain conflicts, shaky
// confidence, then the default weighted merge.
func SelectStrategy(consistency domain.ConsistencyResult) domain.ResolutionStrategy {
	if consistency.HasArchitecturalConflicts() {
		return domain.StrategyArchitecturalPriority
	}
	if consistency.HasCrossDomainConflicts() {
		return domain.StrategyDomainExpertise
	}
	if consistency.Confidence.Score < lowConfidenceCutoff {
		return domain.StrategyHighestConfidence
	}
	return domain.StrategyWeightedMerge
}

// Apply runs one named strategy over the response set.
func (r *Resolver) Apply(strategy domain.ResolutionStrategy, responses []domain.GuidanceResponse, req domain.ConsultationRequest) domain.GuidanceResponse {
	switch strategy {
	case domain.StrategyArchitecturalPriority:
		return architecturalPriority(responses)
	case domain.StrategyDomainExpertise:
		return domainExpertise(responses, req)
	case domain.StrategyHighestConfidence:
		return highestConfidence(responses)
	case domain.StrategyWeightedMerge:
		return weightedMerge(responses, req)
	default:
		return responses[0]
	}
}

// architecturalPriority picks the most confident response from an
// architecture or governance specialist, falling back to the global maximum.
func architecturalPriority(responses []domain.GuidanceResponse) domain.GuidanceResponse {
	var best *domain.GuidanceResponse
	for i := range responses {
		id := responses[i].AgentID
		if !strings.Contains(id, "architecture") && !strings.Contains(id, "governance") {
			continue
		}
		if best == nil || responses[i].Confidence > best.Confidence {
			best = &responses[i]
		}
	}
	if best != nil {
		return *best
	}
	return highestConfidence(responses)
}

// domainExpertise prefers the responder matching the request domain, then
// keyword-group overrides, then the highest confidence.
func domainExpertise(responses []domain.GuidanceResponse, req domain.ConsultationRequest) domain.GuidanceResponse {
	if resp, ok := mostConfidentMatching(responses, req.Domain); ok {
		return resp
	}

	query := strings.ToLower(req.Query)
	for _, override := range expertiseOverrides {
		for _, kw := range override.keywords {
			if !strings.Contains(query, kw) {
				continue
			}
			if resp, ok := mostConfidentMatching(responses, override.agentSubstring); ok {
				return resp
			}
			break
		}
	}
	return highestConfidence(responses)
}

func mostConfidentMatching(responses []domain.GuidanceResponse, idSubstring string) (domain.GuidanceResponse, bool) {
	var best *domain.GuidanceResponse
	for i := range responses {
		if !strings.Contains(responses[i].AgentID, idSubstring) {
			continue
		}
		if best == nil || responses[i].Confidence > best.Confidence {
			best = &responses[i]
		}
	}
	if best == nil {
		return domain.GuidanceResponse{}, false
	}
	return *best, true
}

// highestConfidence picks argmax by confidence; ties keep the earlier response.
func highestConfidence(responses []domain.GuidanceResponse) domain.GuidanceResponse {
	best := responses[0]
	for _, resp := range responses[1:] {
		if resp.Confidence > best.Confidence {
			best = resp
		}
	}
	return best
}

// weightedMerge synthesizes one response: every input's guidance annotated
// with its confidence-normalized weight, deduplicated recommendation union,
// and the arithmetic mean confidence.
func weightedMerge(responses []domain.GuidanceResponse, req domain.ConsultationRequest) domain.GuidanceResponse {
	var totalConfidence float64
	for _, resp := range responses {
		totalConfidence += resp.Confidence
	}

	var sb strings.Builder
	sb.WriteString("## Merged Guidance (Weighted by Confidence)\n\n")
	for _, resp := range responses {
		weight := 0.0
		if totalConfidence > 0 {
			weight = resp.Confidence / totalConfidence
		}
		fmt.Fprintf(&sb, "### %s (Weight: %.2f)\n%s\n\n", resp.AgentID, weight, resp.Guidance)
	}

	return domain.GuidanceResponse{
		RequestID:       req.RequestID,
		AgentID:         "merged-response",
		Guidance:        sb.String(),
		Confidence:      meanConfidence(responses),
		Recommendations: unionRecommendations(responses),
		Successful:      true,
	}
}

// MergeConsistent merges a consistent response set without weighting.
func (r *Resolver) MergeConsistent(responses []domain.GuidanceResponse, req domain.ConsultationRequest) domain.GuidanceResponse {
	var sb strings.Builder
	sb.WriteString("## Consistent Multi-Agent Guidance\n\n")
	for _, resp := range responses {
		fmt.Fprintf(&sb, "**%s**: %s\n\n", resp.AgentID, resp.Guidance)
	}

	return domain.GuidanceResponse{
		RequestID:       req.RequestID,
		AgentID:         "consistent-merge",
		Guidance:        sb.String(),
		Confidence:      meanConfidence(responses),
		Recommendations: unionRecommendations(responses),
		Successful:      true,
	}
}

func meanConfidence(responses []domain.GuidanceResponse) float64 {
	if len(responses) == 0 {
		return 0
	}
	var sum float64
	for _, resp := range responses {
		sum += resp.Confidence
	}
	return sum / float64(len(responses))
}

func unionRecommendations(responses []domain.GuidanceResponse) []string {
	seen := make(map[string]struct{})
	var union []string
	for _, resp := range responses {
		for _, rec := range resp.Recommendations {
			if _, dup := seen[rec]; dup {
				continue
			}
			seen[rec] = struct{}{}
			union = append(union, rec)
		}
	}
	return union
}
