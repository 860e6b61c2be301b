// Package agents provides the built-in specialist responders and decorators
// that wrap them with resilience concerns.
package agents

import (
	"context"
	"strings"
	"time"

	"consilium/internal/domain"
)

// topic is one keyword-routed guidance block inside a responder.
type topic struct {
	keywords        []string
	guidance        string
	recommendations []string
	confidence      float64
}

// StaticResponder answers consultations from a fixed guidance table. The
// first topic whose keywords appear in the query wins; unmatched queries
// fall back to general guidance at reduced confidence.
type StaticResponder struct {
	id       string
	domain   string
	topics   []topic
	fallback topic
}

// NewStaticResponder builds a responder for the given identity.
func NewStaticResponder(id, dom string, topics []topic, fallback topic) *StaticResponder {
	return &StaticResponder{id: id, domain: dom, topics: topics, fallback: fallback}
}

// ProvideGuidance implements domain.GuidanceProvider.
func (r *StaticResponder) ProvideGuidance(ctx context.Context, req domain.ConsultationRequest) (domain.GuidanceResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.GuidanceResponse{}, err
	}
	start := time.Now()
	query := strings.ToLower(req.Query)

	matched := r.fallback
	for _, t := range r.topics {
		if containsAny(query, t.keywords) {
			matched = t
			break
		}
	}

	var b strings.Builder
	b.WriteString(r.domain)
	b.WriteString(" analysis for ")
	b.WriteString(req.Domain)
	b.WriteString(":\n\n")
	b.WriteString(matched.guidance)

	return domain.SuccessResponse(req.RequestID, r.id, b.String(), matched.confidence, matched.recommendations, time.Since(start)), nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var _ domain.GuidanceProvider = (*StaticResponder)(nil)

// Roster returns the built-in specialist responders keyed by agent ID,
// matching the identities registered by the dependency graph seed.
func Roster() map[string]domain.GuidanceProvider {
	return map[string]domain.GuidanceProvider{
		"architecture-agent": NewStaticResponder("architecture-agent", "system-architecture",
			[]topic{
				{
					keywords: []string{"microservice", "service boundary", "decompos"},
					guidance: "Service Boundary Design:\n" +
						"- Partition services along business capabilities, not data shape\n" +
						"- Each service owns its datastore; share nothing at the schema level\n" +
						"- Prefer asynchronous integration between bounded contexts",
					recommendations: []string{"Define service boundaries from domain capabilities", "Keep one datastore per service", "Use asynchronous messaging between contexts"},
					confidence:      0.92,
				},
				{
					keywords: []string{"api gateway", "gateway", "routing"},
					guidance: "API Gateway Topology:\n" +
						"- Terminate external traffic at a single gateway tier\n" +
						"- Push cross-cutting concerns (auth, throttling) into the gateway\n" +
						"- Keep service-to-service calls off the gateway path",
					recommendations: []string{"Route external traffic through the api-gateway-pattern", "Centralize authentication at the edge"},
					confidence:      0.9,
				},
				{
					keywords: []string{"domain-driven", "ddd", "bounded context"},
					guidance: "Domain-Driven Design:\n" +
						"- Model aggregates around transactional invariants\n" +
						"- Translate between contexts through anti-corruption layers",
					recommendations: []string{"Apply the ddd-pattern with explicit bounded contexts", "Introduce anti-corruption layers at context seams"},
					confidence:      0.91,
				},
			},
			topic{
				guidance:        "General Architecture Guidance:\n- Favor evolutionary architecture with explicit trade-off records\n- Document decisions as ADRs alongside the code",
				recommendations: []string{"Record architectural decisions as ADRs"},
				confidence:      0.75,
			}),

		"security-agent": NewStaticResponder("security-agent", "security",
			[]topic{
				{
					keywords: []string{"jwt", "token", "authentication", "login", "auth"},
					guidance: "Token-Based Authentication:\n" +
						"- Issue short-lived access tokens signed with RS256\n" +
						"- Keep sessions stateless; rotate refresh tokens on use\n" +
						"- Validate issuer, audience and expiry on every request",
					recommendations: []string{"Use short-lived signed tokens", "Rotate refresh tokens on each use", "Validate all token claims server-side"},
					confidence:      0.94,
				},
				{
					keywords: []string{"xss", "csrf", "sql-injection", "injection", "vulnerability"},
					guidance: "Vulnerability Hardening:\n" +
						"- Encode output per sink context to block XSS\n" +
						"- Use parameterized queries exclusively\n" +
						"- Send security headers (CSP, HSTS, X-Content-Type-Options)",
					recommendations: []string{"Parameterize every database query", "Set a strict Content-Security-Policy"},
					confidence:      0.93,
				},
				{
					keywords: []string{"secrets", "credential", "vault", "key management"},
					guidance: "Secrets Management:\n" +
						"- Never commit credentials; source them from a managed secret store\n" +
						"- Scope each workload's credentials to least privilege\n" +
						"- Rotate automatically and audit access",
					recommendations: []string{"Move credentials into a managed secret store", "Enforce least-privilege access per workload"},
					confidence:      0.92,
				},
				{
					keywords: []string{"encrypt", "tls", "ssl"},
					guidance: "Encryption:\n" +
						"- Require TLS 1.2+ for all transit, including internal hops\n" +
						"- Encrypt sensitive data at rest with envelope encryption",
					recommendations: []string{"Enforce TLS for all service traffic", "Apply envelope encryption for data at rest"},
					confidence:      0.92,
				},
			},
			topic{
				guidance:        "General Security Guidance:\n- Apply defense in depth and validate all input at trust boundaries\n- Run dependency and container scans in the pipeline",
				recommendations: []string{"Validate input at every trust boundary", "Add security scanning to the pipeline"},
				confidence:      0.8,
			}),

		"implementation-agent": NewStaticResponder("implementation-agent", "implementation",
			[]topic{
				{
					keywords: []string{"spring boot", "spring-boot", "rest", "controller"},
					guidance: "Service Implementation:\n" +
						"- Keep controllers thin; push rules into the domain layer\n" +
						"- Validate request payloads at the boundary\n" +
						"- Return problem-detail error bodies with stable codes",
					recommendations: []string{"Keep transport handlers thin", "Validate payloads at the service boundary"},
					confidence:      0.9,
				},
				{
					keywords: []string{"repository", "persistence", "database", "transaction"},
					guidance: "Persistence:\n" +
						"- Wrap multi-step writes in a single transaction per aggregate\n" +
						"- Keep repository interfaces in the domain, drivers in adapters",
					recommendations: []string{"One transaction per aggregate write", "Isolate drivers behind repository interfaces"},
					confidence:      0.89,
				},
			},
			topic{
				guidance:        "General Implementation Guidance:\n- Small modules, explicit dependencies, tests beside the code",
				recommendations: []string{"Keep modules small with explicit dependencies"},
				confidence:      0.75,
			}),

		"testing-agent": NewStaticResponder("testing-agent", "testing",
			[]topic{
				{
					keywords: []string{"unit test", "unit-test", "coverage", "mock"},
					guidance: "Unit Testing:\n" +
						"- Test observable behavior, not private structure\n" +
						"- Prefer fakes over mocks for collaborators you own",
					recommendations: []string{"Assert behavior rather than structure", "Prefer fakes over mocks"},
					confidence:      0.88,
				},
				{
					keywords: []string{"integration", "contract", "e2e", "end-to-end"},
					guidance: "Integration Testing:\n" +
						"- Pin provider contracts with consumer-driven contract tests\n" +
						"- Keep end-to-end suites small and deterministic",
					recommendations: []string{"Add consumer-driven contract tests", "Keep end-to-end coverage thin"},
					confidence:      0.87,
				},
			},
			topic{
				guidance:        "General Testing Guidance:\n- Build the test pyramid from fast unit tests upward",
				recommendations: []string{"Favor fast unit tests at the base of the pyramid"},
				confidence:      0.72,
			}),

		"deployment-agent": NewStaticResponder("deployment-agent", "deployment",
			[]topic{
				{
					keywords: []string{"kubernetes", "k8s", "container", "docker"},
					guidance: "Container Deployment:\n" +
						"- Build minimal images; run as non-root\n" +
						"- Declare liveness and readiness probes per workload\n" +
						"- Set resource requests and limits explicitly",
					recommendations: []string{"Run containers as non-root", "Declare readiness probes for every workload"},
					confidence:      0.89,
				},
				{
					keywords: []string{"blue-green", "canary", "rollout", "rollback"},
					guidance: "Deployment Strategies:\n" +
						"- Use canary rollouts gated on error-rate and latency\n" +
						"- Keep rollback a single reversible step",
					recommendations: []string{"Gate canary promotion on error-rate and latency", "Keep rollback one step"},
					confidence:      0.88,
				},
			},
			topic{
				guidance:        "General Deployment Guidance:\n- Automate the path to production; no manual mutation of environments",
				recommendations: []string{"Automate the full path to production"},
				confidence:      0.74,
			}),

		"architectural-governance-agent": NewStaticResponder("architectural-governance-agent", "system-architecture",
			[]topic{
				{
					keywords: []string{"governance", "standard", "compliance", "review"},
					guidance: "Architectural Governance:\n" +
						"- Express standards as automatable fitness functions\n" +
						"- Review deviations, not conformance",
					recommendations: []string{"Encode standards as fitness functions", "Review only deviations from standards"},
					confidence:      0.9,
				},
			},
			topic{
				guidance:        "General Governance Guidance:\n- Keep standards few, automated, and versioned with the code",
				recommendations: []string{"Version standards alongside the code"},
				confidence:      0.76,
			}),

		"integration-gateway-agent": NewStaticResponder("integration-gateway-agent", "integration",
			[]topic{
				{
					keywords: []string{"api gateway", "gateway", "rate limit", "throttl"},
					guidance: "Gateway Integration:\n" +
						"- Enforce per-client rate limits at the edge\n" +
						"- Normalize upstream errors into stable client-facing codes",
					recommendations: []string{"Enforce rate limits per client at the edge", "Normalize upstream errors at the gateway"},
					confidence:      0.88,
				},
				{
					keywords: []string{"webhook", "third-party", "partner", "external"},
					guidance: "External Integration:\n" +
						"- Verify webhook signatures and replay-protect with timestamps\n" +
						"- Isolate partner calls behind an anti-corruption layer",
					recommendations: []string{"Verify signatures on inbound webhooks", "Wrap partner APIs in an anti-corruption layer"},
					confidence:      0.87,
				},
			},
			topic{
				guidance:        "General Integration Guidance:\n- Make every cross-system call timeout-bounded and idempotent",
				recommendations: []string{"Bound and idempotency-key every cross-system call"},
				confidence:      0.73,
			}),

		"observability-agent": NewStaticResponder("observability-agent", "observability",
			[]topic{
				{
					keywords: []string{"metric", "monitoring", "alert", "slo"},
					guidance: "Monitoring:\n" +
						"- Alert on symptoms (SLO burn), page on user impact only\n" +
						"- Track the four golden signals per service",
					recommendations: []string{"Alert on SLO burn rate", "Track latency, traffic, errors and saturation"},
					confidence:      0.88,
				},
				{
					keywords: []string{"trace", "tracing", "span", "correlation"},
					guidance: "Distributed Tracing:\n" +
						"- Propagate trace context across every async boundary\n" +
						"- Sample head-based in production, tail-based for errors",
					recommendations: []string{"Propagate trace context through queues", "Tail-sample error traces"},
					confidence:      0.87,
				},
			},
			topic{
				guidance:        "General Observability Guidance:\n- Structured logs with request correlation from day one",
				recommendations: []string{"Emit structured logs with request IDs"},
				confidence:      0.72,
			}),

		"documentation-agent": NewStaticResponder("documentation-agent", "documentation",
			[]topic{
				{
					keywords: []string{"api doc", "openapi", "swagger", "reference"},
					guidance: "API Documentation:\n" +
						"- Generate reference docs from the contract, never by hand\n" +
						"- Fail the build when the contract and docs diverge",
					recommendations: []string{"Generate API docs from the contract", "Fail builds on doc drift"},
					confidence:      0.85,
				},
			},
			topic{
				guidance:        "General Documentation Guidance:\n- Keep docs next to code and review them in the same PR",
				recommendations: []string{"Review documentation in the same change"},
				confidence:      0.7,
			}),

		"business-domain-agent": NewStaticResponder("business-domain-agent", "business-domain",
			[]topic{
				{
					keywords: []string{"workflow", "business rule", "process", "pricing"},
					guidance: "Business Rules:\n" +
						"- Capture rules as explicit domain policies, not scattered conditionals\n" +
						"- Version rule changes and trace decisions to requirements",
					recommendations: []string{"Model business rules as named policies", "Version every rule change"},
					confidence:      0.86,
				},
			},
			topic{
				guidance:        "General Business Domain Guidance:\n- Keep the ubiquitous language consistent from requirements to code",
				recommendations: []string{"Align code names with the business vocabulary"},
				confidence:      0.71,
			}),

		"pair-navigator-agent": NewStaticResponder("pair-navigator-agent", "pair-programming",
			[]topic{
				{
					keywords: []string{"refactor", "code review", "naming", "readability"},
					guidance: "Code Navigation:\n" +
						"- Refactor in small reversible steps behind green tests\n" +
						"- Name things after the domain concept, not the mechanism",
					recommendations: []string{"Refactor in small steps behind green tests", "Name after domain concepts"},
					confidence:      0.84,
				},
			},
			topic{
				guidance:        "General Pairing Guidance:\n- Narrow the change, verify, then widen",
				recommendations: []string{"Keep each change narrow and verified"},
				confidence:      0.7,
			}),
	}
}
