package domain

import (
	"context"
	"time"
)

// AgentDescriptor identifies a specialist responder and the work it claims.
type AgentDescriptor struct {
	ID           string   `json:"id"           yaml:"id"`
	Domain       string   `json:"domain"       yaml:"domain"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Available    bool     `json:"available"    yaml:"available"`
}

// HasCapability reports whether the descriptor claims the given capability tag.
func (d AgentDescriptor) HasCapability(capability string) bool {
	for _, c := range d.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// AgentMetrics is a live performance snapshot for one responder.
// Mutated only through registry update calls; read by the scoring stage.
type AgentMetrics struct {
	AverageLatency time.Duration `json:"average_latency"`
	Accuracy       float64       `json:"accuracy"` // in [0,1]
	ActiveRequests int           `json:"active_requests"`
}

// GuidanceProvider is the single capability every responder must implement.
// Implementations may be slow and may fail; callers isolate failures per
// responder and never let them abort sibling consultations.
type GuidanceProvider interface {
	ProvideGuidance(ctx context.Context, req ConsultationRequest) (GuidanceResponse, error)
}

// RegistryHealth is a read-only availability snapshot of the roster.
type RegistryHealth struct {
	TotalAgents     int            `json:"total_agents"`
	AvailableAgents int            `json:"available_agents"`
	Availability    float64        `json:"availability"` // available / total, 1.0 when empty
	AgentsByDomain  map[string]int `json:"agents_by_domain"`
}

// Healthy reports whether enough of the roster is serving traffic.
func (h RegistryHealth) Healthy() bool {
	return h.Availability > 0.8
}
