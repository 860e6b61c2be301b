package consult

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kaptinlin/jsonschema"

	"consilium/internal/domain"
)

// ContextValidator is the context collaborator consumed by the orchestrator:
// it vets a request's context before routing and decorates the final
// response afterwards.
type ContextValidator interface {
	Validate(req domain.ConsultationRequest) domain.ContextValidation
	Enhance(resp domain.GuidanceResponse, req domain.ConsultationRequest) domain.GuidanceResponse
	Healthy() bool
}

// DefaultRequiredContextKeys are the context attributes a request must carry.
var DefaultRequiredContextKeys = []string{
	"project-context",
	"architectural-decisions",
	"current-task",
	"domain-constraints",
}

// DefaultSessionStaleness is how long a session context stays fresh.
const DefaultSessionStaleness = 30 * time.Minute

// sessionAttributeKey selects the session identity from request context;
// requests without it fall back to per-request sessions.
const sessionAttributeKey = "session-id"

// decisionMarkers flag recommendations worth recording as session decisions.
var decisionMarkers = []string{"architecture", "pattern", "design", "boundary"}

type sessionContext struct {
	updatedAt time.Time
	decisions []string
}

// ContextManager implements ContextValidator with a required-key check, an
// optional JSON-Schema pass over the request context, and an in-memory
// session store feeding the enhancement stage.
type ContextManager struct {
	mu           sync.Mutex
	sessions     map[string]*sessionContext
	requiredKeys []string
	schema       *jsonschema.Schema
	staleness    time.Duration
	now          func() time.Time
}

// ManagerOption configures a ContextManager.
type ManagerOption func(*ContextManager)

// WithSessionStaleness overrides the session freshness window.
func WithSessionStaleness(d time.Duration) ManagerOption {
	return func(m *ContextManager) { m.staleness = d }
}

// WithContextSchema compiles a JSON Schema that request context maps must
// additionally satisfy.
func WithContextSchema(schemaJSON []byte) (ManagerOption, error) {
	schema, err := jsonschema.NewCompiler().Compile(schemaJSON)
	if err != nil {
		return nil, domain.WrapOp("ContextManager.WithContextSchema", err)
	}
	return func(m *ContextManager) { m.schema = schema }, nil
}

// NewContextManager creates a ContextManager. Nil requiredKeys falls back to
// DefaultRequiredContextKeys.
func NewContextManager(requiredKeys []string, opts ...ManagerOption) *ContextManager {
	if requiredKeys == nil {
		requiredKeys = DefaultRequiredContextKeys
	}
	m := &ContextManager{
		sessions:     make(map[string]*sessionContext),
		requiredKeys: requiredKeys,
		staleness:    DefaultSessionStaleness,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Validate fails closed: any missing required attribute, schema violation,
// or stale session context makes the request insufficient.
func (m *ContextManager) Validate(req domain.ConsultationRequest) domain.ContextValidation {
	start := m.now()

	var missingInputs, missingDecisions []string
	for _, key := range m.requiredKeys {
		if req.Context[key] == "" {
			missingInputs = append(missingInputs, key)
		}
	}

	if m.schema != nil {
		instance := make(map[string]any, len(req.Context))
		for k, v := range req.Context {
			instance[k] = v
		}
		if result := m.schema.Validate(instance); !result.IsValid() {
			missingInputs = append(missingInputs, fmt.Sprintf("context-schema: %s", result.Error()))
		}
	}

	m.mu.Lock()
	session, ok := m.sessions[m.sessionID(req)]
	if ok {
		if m.now().Sub(session.updatedAt) > m.staleness {
			missingInputs = append(missingInputs, "stale-session-context")
		}
		if len(session.decisions) == 0 {
			missingDecisions = append(missingDecisions, "architectural-decisions")
		}
	}
	m.mu.Unlock()

	return domain.ContextValidation{
		Sufficient:       len(missingInputs) == 0 && len(missingDecisions) == 0,
		MissingInputs:    missingInputs,
		MissingDecisions: missingDecisions,
		ValidationTime:   m.now().Sub(start),
	}
}

// Enhance folds session history into the response and records new
// architectural decisions for later requests in the same session.
func (m *ContextManager) Enhance(resp domain.GuidanceResponse, req domain.ConsultationRequest) domain.GuidanceResponse {
	id := m.sessionID(req)

	m.mu.Lock()
	session, ok := m.sessions[id]
	if !ok {
		session = &sessionContext{}
		m.sessions[id] = session
	}

	prior := make([]string, len(session.decisions))
	copy(prior, session.decisions)

	for _, rec := range resp.Recommendations {
		lower := strings.ToLower(rec)
		for _, marker := range decisionMarkers {
			if strings.Contains(lower, marker) {
				session.decisions = append(session.decisions, rec)
				break
			}
		}
	}
	session.updatedAt = m.now()
	m.mu.Unlock()

	if len(prior) == 0 {
		return resp
	}

	var sb strings.Builder
	sb.WriteString(resp.Guidance)
	sb.WriteString("\n\n## Session Context\n")
	fmt.Fprintf(&sb, "Prior decisions in this session (%d):\n", len(prior))
	for _, d := range prior {
		sb.WriteString("- " + d + "\n")
	}

	enhanced := resp
	enhanced.Guidance = sb.String()
	enhanced.Recommendations = append(append([]string{}, resp.Recommendations...),
		"Review prior session decisions for alignment")
	return enhanced
}

// Healthy reports whether the session store is serviceable.
func (m *ContextManager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions != nil
}

func (m *ContextManager) sessionID(req domain.ConsultationRequest) string {
	if id := req.Context[sessionAttributeKey]; id != "" {
		return id
	}
	return req.RequestID
}
