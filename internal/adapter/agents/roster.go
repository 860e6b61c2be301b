package agents

import "consilium/internal/domain"

// Descriptors returns the registry descriptors for the built-in roster.
// Capability tags line up with the routing stage's query-derived tags so
// capability discovery can find these responders.
func Descriptors() []domain.AgentDescriptor {
	return []domain.AgentDescriptor{
		{
			ID:     "architecture-agent",
			Domain: "system-architecture",
			Capabilities: []string{"architecture", "ddd", "microservices", "system-design",
				"integration-patterns", "boundaries", "spring-boot"},
			Available: true,
		},
		{
			ID:     "implementation-agent",
			Domain: "implementation",
			Capabilities: []string{"spring-boot", "business-logic", "data-access", "rest-api",
				"microservices"},
			Available: true,
		},
		{
			ID:     "testing-agent",
			Domain: "testing",
			Capabilities: []string{"testing", "unit-testing", "integration-testing",
				"contract-testing", "test-automation", "tdd", "quality-assurance"},
			Available: true,
		},
		{
			ID:     "deployment-agent",
			Domain: "deployment",
			Capabilities: []string{"deployment", "docker", "kubernetes", "cicd",
				"containerization", "infrastructure", "monitoring", "deployment-strategies",
				"secrets-management", "security"},
			Available: true,
		},
		{
			ID:     "architectural-governance-agent",
			Domain: "system-architecture",
			Capabilities: []string{"architecture", "domain-boundaries", "technical-debt",
				"adrs", "api-gateway", "event-driven", "versioning"},
			Available: true,
		},
		{
			ID:     "integration-gateway-agent",
			Domain: "integration",
			Capabilities: []string{"api-gateway", "rest-api", "openapi", "routing",
				"rate-limiting", "authentication", "authorization", "caching",
				"error-handling", "contract-testing", "resilience", "circuit-breakers",
				"retry-patterns"},
			Available: true,
		},
		{
			ID:     "security-agent",
			Domain: "security",
			Capabilities: []string{"security", "authentication", "authorization", "owasp",
				"input-validation", "secrets-management", "encryption", "rate-limiting",
				"security-scanning"},
			Available: true,
		},
		{
			ID:     "observability-agent",
			Domain: "observability",
			Capabilities: []string{"observability", "metrics", "tracing", "monitoring",
				"instrumentation", "alerts", "logging", "slo", "distributed-tracing"},
			Available: true,
		},
		{
			ID:     "documentation-agent",
			Domain: "documentation",
			Capabilities: []string{"documentation", "api-docs", "openapi", "readme",
				"changelog", "markdown"},
			Available: true,
		},
		{
			ID:     "business-domain-agent",
			Domain: "business-domain",
			Capabilities: []string{"business-rules", "workflow-design", "event-driven",
				"payment-integration", "eventual-consistency", "compliance"},
			Available: true,
		},
		{
			ID:     "pair-navigator-agent",
			Domain: "pair-programming",
			Capabilities: []string{"loop-detection", "drift-prevention", "simplification",
				"code-review"},
			Available: true,
		},
	}
}
