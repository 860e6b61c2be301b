// Package registry holds the live roster of specialist responders: their
// descriptors, guidance providers, and per-responder performance metrics.
package registry

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"consilium/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EWMA smoothing factor for latency and accuracy updates.
const metricAlpha = 0.1

// Instance bundles a registered responder with its mutable metrics.
type Instance struct {
	Descriptor domain.AgentDescriptor
	Provider   domain.GuidanceProvider
	metrics    domain.AgentMetrics
}

// Registry is a process-wide, thread-safe responder store. Descriptors are
// never deleted mid-request; metrics are mutated only through the narrow
// record methods below and read (never written) by the scoring stage.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Instance
	logger *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = discardLogger()
	}
	return &Registry{
		agents: make(map[string]*Instance),
		logger: logger,
	}
}

// Register adds a responder. Returns ErrDuplicate if the identity is taken.
func (r *Registry) Register(desc domain.AgentDescriptor, provider domain.GuidanceProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[desc.ID]; exists {
		return domain.ErrDuplicate
	}
	r.agents[desc.ID] = &Instance{
		Descriptor: desc,
		Provider:   provider,
		metrics:    domain.AgentMetrics{Accuracy: 1.0},
	}
	r.logger.Info("agent registered", "agent_id", desc.ID, "domain", desc.Domain)
	return nil
}

// Get returns the descriptor for the given identity, or ErrNotFound.
func (r *Registry) Get(agentID string) (domain.AgentDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.agents[agentID]
	if !ok {
		return domain.AgentDescriptor{}, domain.ErrNotFound
	}
	return inst.Descriptor, nil
}

// Provider returns the guidance provider for the given identity.
func (r *Registry) Provider(agentID string) (domain.GuidanceProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.agents[agentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return inst.Provider, nil
}

// All returns every registered descriptor, sorted by identity.
func (r *Registry) All() []domain.AgentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]domain.AgentDescriptor, 0, len(r.agents))
	for _, inst := range r.agents {
		descs = append(descs, inst.Descriptor)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	return descs
}

// ForDomain returns descriptors whose domain equals the given tag.
func (r *Registry) ForDomain(domainTag string) []domain.AgentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var descs []domain.AgentDescriptor
	for _, inst := range r.agents {
		if inst.Descriptor.Domain == domainTag {
			descs = append(descs, inst.Descriptor)
		}
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	return descs
}

// WithCapabilities returns descriptors whose capability set intersects the
// given capabilities.
func (r *Registry) WithCapabilities(capabilities []string) []domain.AgentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var descs []domain.AgentDescriptor
	for _, inst := range r.agents {
		for _, want := range capabilities {
			if inst.Descriptor.HasCapability(want) {
				descs = append(descs, inst.Descriptor)
				break
			}
		}
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	return descs
}

// Metrics returns a copy of the responder's current metrics.
func (r *Registry) Metrics(agentID string) (domain.AgentMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.agents[agentID]
	if !ok {
		return domain.AgentMetrics{}, domain.ErrNotFound
	}
	return inst.metrics, nil
}

// SetAvailability flips a responder's availability flag.
func (r *Registry) SetAvailability(agentID string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.agents[agentID]
	if !ok {
		return domain.ErrNotFound
	}
	if inst.Descriptor.Available != available {
		r.logger.Info("agent availability changed", "agent_id", agentID, "available", available)
	}
	inst.Descriptor.Available = available
	return nil
}

// RecordStart increments the responder's in-flight request count.
func (r *Registry) RecordStart(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.agents[agentID]; ok {
		inst.metrics.ActiveRequests++
	}
}

// RecordCompletion decrements the in-flight count and folds the observed
// latency and outcome into the responder's running averages.
func (r *Registry) RecordCompletion(agentID string, elapsed time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.agents[agentID]
	if !ok {
		return
	}
	if inst.metrics.ActiveRequests > 0 {
		inst.metrics.ActiveRequests--
	}
	if inst.metrics.AverageLatency == 0 {
		inst.metrics.AverageLatency = elapsed
	} else {
		inst.metrics.AverageLatency = time.Duration(
			(1-metricAlpha)*float64(inst.metrics.AverageLatency) + metricAlpha*float64(elapsed))
	}
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	inst.metrics.Accuracy = (1-metricAlpha)*inst.metrics.Accuracy + metricAlpha*outcome
}

// Health returns an availability snapshot of the roster.
func (r *Registry) Health() domain.RegistryHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := domain.RegistryHealth{
		TotalAgents:    len(r.agents),
		AgentsByDomain: make(map[string]int),
	}
	for _, inst := range r.agents {
		health.AgentsByDomain[inst.Descriptor.Domain]++
		if inst.Descriptor.Available {
			health.AvailableAgents++
		}
	}
	if health.TotalAgents == 0 {
		health.Availability = 1.0
	} else {
		health.Availability = float64(health.AvailableAgents) / float64(health.TotalAgents)
	}
	return health
}
