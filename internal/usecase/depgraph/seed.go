package depgraph

// Seed populates the graph with the default responder roster: foundational
// agents at level 0, specialized agents at level 1 depending on them, and the
// pair-navigator at level 2. Priority weights range 50-100.
func (g *Graph) Seed() {
	// Level 0: foundational, no prerequisites.
	g.Register("architecture-agent", nil, 0, 100)
	g.Register("implementation-agent", nil, 0, 90)
	g.Register("deployment-agent", nil, 0, 80)
	g.Register("testing-agent", nil, 0, 70)

	// Level 1: specialized, require foundational agents.
	g.Register("architectural-governance-agent", []string{"architecture-agent"}, 1, 85)
	g.Register("integration-gateway-agent", []string{"architecture-agent", "implementation-agent"}, 1, 75)
	g.Register("security-agent", []string{"implementation-agent", "deployment-agent"}, 1, 95)
	g.Register("observability-agent", []string{"deployment-agent", "implementation-agent"}, 1, 65)
	g.Register("documentation-agent", []string{"architecture-agent", "implementation-agent"}, 1, 50)
	g.Register("business-domain-agent", []string{"architecture-agent", "implementation-agent"}, 1, 60)

	// Level 2.
	g.Register("pair-navigator-agent", []string{"implementation-agent"}, 2, 80)

	// Cross-domain coordination rules. Repeated AddCrossDomainRule calls
	// accumulate, so each primary domain ends up with the union of its
	// supporting domains.
	g.AddCrossDomainRule("implementation", "security", "observability", "business")
	g.AddCrossDomainRule("deployment", "security", "observability")
	g.AddCrossDomainRule("integration", "security", "governance")
	g.AddCrossDomainRule("testing", "security")
	g.AddCrossDomainRule("system-architecture", "governance")
}
