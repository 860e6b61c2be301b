package domain

import "time"

// RoutingStatus is the terminal outcome of the routing stage.
// NoAgentsAvailable and AllAgentsFailed are valid, non-retryable results,
// not errors (see errors.go for the distinction).
type RoutingStatus string

const (
	RoutingSuccess           RoutingStatus = "success"
	RoutingNoAgentsAvailable RoutingStatus = "no_agents_available"
	RoutingAllAgentsFailed   RoutingStatus = "all_agents_failed"
)

// RoutingResult captures candidate selection, ordering and dispatch output.
type RoutingResult struct {
	RequestID     string             `json:"request_id"`
	Status        RoutingStatus      `json:"status"`
	Responses     []GuidanceResponse `json:"responses,omitempty"`
	OrderedAgents []string           `json:"ordered_agents,omitempty"`
	Scores        map[string]float64 `json:"scores,omitempty"`
	RoutingTime   time.Duration      `json:"routing_time"`
}

// Successful reports whether at least one responder answered.
func (r RoutingResult) Successful() bool { return r.Status == RoutingSuccess }

// ResolutionStrategy names a procedure for collapsing conflicting responses.
type ResolutionStrategy string

const (
	StrategyArchitecturalPriority ResolutionStrategy = "architectural_priority"
	StrategyDomainExpertise       ResolutionStrategy = "domain_expertise"
	StrategyHighestConfidence     ResolutionStrategy = "highest_confidence"
	StrategyWeightedMerge         ResolutionStrategy = "weighted_merge"
)

// ResolutionResult is the outcome of conflict resolution over a response set.
type ResolutionResult struct {
	Resolved       GuidanceResponse   `json:"resolved"`
	Strategy       ResolutionStrategy `json:"strategy,omitempty"`
	Method         string             `json:"method"`
	HadConflicts   bool               `json:"had_conflicts"`
	ResolutionTime time.Duration      `json:"resolution_time"`
}

// ContextValidation is the context-check collaborator's verdict on a request.
type ContextValidation struct {
	Sufficient       bool          `json:"sufficient"`
	MissingInputs    []string      `json:"missing_inputs,omitempty"`
	MissingDecisions []string      `json:"missing_decisions,omitempty"`
	ValidationTime   time.Duration `json:"validation_time"`
}

// Failure reasons reported on OrchestrationResult for terminal non-error outcomes.
const (
	ReasonContextInsufficient = "context insufficient"
	ReasonNoAgentsAvailable   = "no agents available"
	ReasonAllAgentsFailed     = "all agents failed"
)

// OrchestrationResult is the single terminal outcome returned to Consult callers.
type OrchestrationResult struct {
	RequestID     string             `json:"request_id"`
	Final         GuidanceResponse   `json:"final,omitempty"`
	Routing       *RoutingResult     `json:"routing,omitempty"`
	Consistency   *ConsistencyResult `json:"consistency,omitempty"`
	Resolution    *ResolutionResult  `json:"resolution,omitempty"`
	TotalTime     time.Duration      `json:"total_time"`
	Successful    bool               `json:"successful"`
	FailureReason string             `json:"failure_reason,omitempty"`
}

// MeetsLatencyBudget reports whether the consultation finished inside budget.
func (r OrchestrationResult) MeetsLatencyBudget(budget time.Duration) bool {
	return r.TotalTime <= budget
}

// SystemHealth is the engine's diagnostic snapshot.
type SystemHealth struct {
	Registry              RegistryHealth `json:"registry"`
	DependencyGraphValid  bool           `json:"dependency_graph_valid"`
	ContextManagerHealthy bool           `json:"context_manager_healthy"`
}

// Healthy reports overall engine health.
func (h SystemHealth) Healthy() bool {
	return h.Registry.Healthy() && h.DependencyGraphValid && h.ContextManagerHealthy
}
