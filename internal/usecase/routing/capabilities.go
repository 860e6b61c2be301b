package routing

import (
	"sort"
	"strings"
)

// capabilityRule maps query keywords to one capability tag. Matching is
// case-insensitive substring containment, evaluated once per request.
type capabilityRule struct {
	keywords   []string
	capability string
}

// capabilityRules is the static keyword -> capability table. Order is not
// significant; the derived capability set is deduplicated and sorted.
var capabilityRules = []capabilityRule{
	{[]string{"spring boot"}, "spring-boot"},
	{[]string{"security"}, "security"},
	{[]string{"test"}, "testing"},
	{[]string{"deploy"}, "deployment"},
	{[]string{"document"}, "documentation"},
	{[]string{"architecture"}, "architecture"},

	{[]string{"event", "kafka", "sns", "sqs", "rabbitmq", "messaging"}, "event-driven"},
	{[]string{"event schema", "schema"}, "event-schemas"},
	{[]string{"idempotent", "event handler"}, "idempotency"},
	{[]string{"event sourcing", "cqrs"}, "event-sourcing"},

	{[]string{"cicd", "ci/cd", "pipeline", "build", "jenkins", "github actions"}, "cicd"},
	{[]string{"maven", "gradle", "build automation"}, "build-automation"},
	{[]string{"sast", "dast", "security scanning"}, "security-scanning"},
	{[]string{"blue-green", "canary", "deployment strategy"}, "deployment-strategies"},

	{[]string{"config", "configuration", "spring cloud config"}, "configuration"},
	{[]string{"consul", "etcd"}, "centralized-config"},
	{[]string{"feature flag", "toggle"}, "feature-flags"},
	{[]string{"vault", "secrets", "aws secrets"}, "secrets-management"},

	{[]string{"resilience", "circuit breaker", "retry"}, "resilience"},
	{[]string{"resilience4j", "hystrix"}, "circuit-breakers"},
	{[]string{"bulkhead", "rate limit"}, "bulkhead-pattern"},
	{[]string{"chaos", "failure injection"}, "chaos-engineering"},
}

// CapabilitiesFromQuery derives the capability set implied by a query.
// Returns a sorted, deduplicated slice; empty when nothing matches.
func CapabilitiesFromQuery(query string) []string {
	q := strings.ToLower(query)
	seen := make(map[string]struct{})
	for _, rule := range capabilityRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				seen[rule.capability] = struct{}{}
				break
			}
		}
	}
	caps := make([]string, 0, len(seen))
	for c := range seen {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return caps
}

// specializedType describes one specialized responder kind: the query
// keywords that call for it and the capability substrings that mark a
// responder as that kind.
type specializedType struct {
	name              string
	queryKeywords     []string
	capabilityMarkers []string
}

var specializedTypes = []specializedType{
	{
		name:              "event-driven",
		queryKeywords:     []string{"event", "kafka", "sns", "sqs", "rabbitmq", "message"},
		capabilityMarkers: []string{"event", "kafka", "sns-sqs", "rabbitmq", "message-brokers"},
	},
	{
		name:              "cicd",
		queryKeywords:     []string{"cicd", "ci/cd", "pipeline", "build", "deploy", "jenkins"},
		capabilityMarkers: []string{"build-automation", "deployment-strategies", "security-scanning", "pipeline-orchestration"},
	},
	{
		name:              "configuration",
		queryKeywords:     []string{"config", "configuration", "feature flag", "secrets", "vault", "consul"},
		capabilityMarkers: []string{"spring-cloud-config", "feature-flags", "secrets-management", "configuration-validation"},
	},
	{
		name:              "resilience",
		queryKeywords:     []string{"resilience", "circuit breaker", "retry", "chaos", "bulkhead", "failure"},
		capabilityMarkers: []string{"circuit-breakers", "retry-patterns", "bulkhead-patterns", "chaos-engineering"},
	},
}

// triggeredTypes returns the specialized types a query calls for.
func triggeredTypes(query string) []specializedType {
	q := strings.ToLower(query)
	var out []specializedType
	for _, st := range specializedTypes {
		for _, kw := range st.queryKeywords {
			if strings.Contains(q, kw) {
				out = append(out, st)
				break
			}
		}
	}
	return out
}

// matchesType reports whether any capability contains one of the type's
// marker substrings.
func (st specializedType) matches(capabilities []string) bool {
	for _, cap := range capabilities {
		for _, marker := range st.capabilityMarkers {
			if strings.Contains(cap, marker) {
				return true
			}
		}
	}
	return false
}
