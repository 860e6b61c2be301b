package routing

import (
	"sort"

	"consilium/internal/domain"
)

// DiscoverCandidates returns the deduplicated union of eligible responders:
// same-domain agents, agents whose capabilities match the query-derived set,
// cross-domain supporting agents, and specialized-type matches. Only
// available responders survive.
func (r *Router) DiscoverCandidates(req domain.ConsultationRequest) []domain.AgentDescriptor {
	seen := make(map[string]domain.AgentDescriptor)
	add := func(descs ...domain.AgentDescriptor) {
		for _, d := range descs {
			if !d.Available {
				continue
			}
			if _, dup := seen[d.ID]; !dup {
				seen[d.ID] = d
			}
		}
	}

	add(r.registry.ForDomain(req.Domain)...)

	if reqCaps := CapabilitiesFromQuery(req.Query); len(reqCaps) > 0 {
		add(r.registry.WithCapabilities(reqCaps)...)
	}

	for agentID := range r.graph.CrossDomainAgents(req.Domain) {
		if desc, err := r.registry.Get(agentID); err == nil {
			add(desc)
		}
	}

	if types := triggeredTypes(req.Query); len(types) > 0 {
		all := r.registry.All()
		for _, st := range types {
			for _, desc := range all {
				if st.matches(desc.Capabilities) {
					add(desc)
				}
			}
		}
	}

	candidates := make([]domain.AgentDescriptor, 0, len(seen))
	for _, desc := range seen {
		candidates = append(candidates, desc)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates
}
