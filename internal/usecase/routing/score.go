package routing

import (
	"consilium/internal/domain"
)

// Priority score weights. Domain affinity dominates; the static
// dependency-graph priority only perturbs the composite score.
const (
	domainMatchWeight     = 0.4
	capabilityMatchWeight = 0.3
	performanceWeight     = 0.2
	availabilityWeight    = 0.1
	graphPriorityWeight   = 0.1

	crossDomainScore       = 0.7
	neutralCapabilityScore = 0.5

	// Latency above this many milliseconds scores zero.
	latencyCeilingMillis = 5000.0
	// In-flight requests at or above this count score zero.
	loadCeiling = 10.0
)

// Score computes the composite priority score for one candidate. reqCaps is
// the query-derived capability set (pass the result of CapabilitiesFromQuery
// so it is computed once per request). The result is always finite.
func (r *Router) Score(desc domain.AgentDescriptor, req domain.ConsultationRequest, reqCaps []string) float64 {
	score := r.domainScore(desc, req.Domain) * domainMatchWeight
	score += capabilityScore(desc, reqCaps) * capabilityMatchWeight

	metrics, err := r.registry.Metrics(desc.ID)
	if err == nil {
		score += performanceScore(metrics) * performanceWeight
		score += availabilityScore(metrics) * availabilityWeight
	}

	score += (float64(r.graph.Priority(desc.ID)) / 100.0) * graphPriorityWeight
	return score
}

// domainScore is 1.0 for an exact domain match, 0.7 for a cross-domain
// supporting agent, 0.0 otherwise.
func (r *Router) domainScore(desc domain.AgentDescriptor, requestDomain string) float64 {
	if desc.Domain == requestDomain {
		return 1.0
	}
	if _, ok := r.graph.CrossDomainAgents(requestDomain)[desc.ID]; ok {
		return crossDomainScore
	}
	return 0.0
}

// capabilityScore is the overlap between the query-derived capability set
// and the descriptor's capabilities, relative to the request set. A request
// implying no capability yields the neutral score.
func capabilityScore(desc domain.AgentDescriptor, reqCaps []string) float64 {
	if len(reqCaps) == 0 {
		return neutralCapabilityScore
	}
	matched := 0
	for _, want := range reqCaps {
		if desc.HasCapability(want) {
			matched++
		}
	}
	return float64(matched) / float64(len(reqCaps))
}

// performanceScore averages a latency-derived score with accuracy.
func performanceScore(m domain.AgentMetrics) float64 {
	latencyScore := 1.0 - float64(m.AverageLatency.Milliseconds())/latencyCeilingMillis
	if latencyScore < 0 {
		latencyScore = 0
	}
	return (latencyScore + m.Accuracy) / 2.0
}

// availabilityScore favors lightly loaded responders.
func availabilityScore(m domain.AgentMetrics) float64 {
	s := 1.0 - float64(m.ActiveRequests)/loadCeiling
	if s < 0 {
		return 0
	}
	return s
}
