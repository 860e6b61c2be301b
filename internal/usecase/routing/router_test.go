package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/internal/domain"
	"consilium/internal/usecase/depgraph"
	"consilium/internal/usecase/registry"
)

type fakeProvider struct {
	confidence float64
	guidance   string
	recs       []string
	err        error
	panics     bool
	delay      time.Duration
}

func (p fakeProvider) ProvideGuidance(ctx context.Context, req domain.ConsultationRequest) (domain.GuidanceResponse, error) {
	if p.panics {
		panic("fake provider exploded")
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return domain.GuidanceResponse{}, ctx.Err()
		}
	}
	if p.err != nil {
		return domain.GuidanceResponse{}, p.err
	}
	return domain.SuccessResponse(req.RequestID, "", p.guidance, p.confidence, p.recs, 0), nil
}

func newDesc(id, domainTag string, caps ...string) domain.AgentDescriptor {
	return domain.AgentDescriptor{ID: id, Domain: domainTag, Capabilities: caps, Available: true}
}

func testRouter(t *testing.T, opts ...Option) (*Router, *registry.Registry, *depgraph.Graph) {
	t.Helper()
	reg := registry.New(nil)
	graph := depgraph.New(nil)
	return New(reg, graph, opts...), reg, graph
}

func TestRouteNoAgentsAvailable(t *testing.T) {
	router, _, _ := testRouter(t)

	result, err := router.Route(context.Background(), domain.ConsultationRequest{
		RequestID: "r1", Domain: "implementation", Query: "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoutingNoAgentsAvailable, result.Status)
	assert.False(t, result.Successful())
	assert.Empty(t, result.Responses)
	assert.Empty(t, result.OrderedAgents)
}

func TestRouteSuccess(t *testing.T) {
	router, reg, graph := testRouter(t)
	graph.Register("implementation-agent", nil, 0, 90)
	require.NoError(t, reg.Register(
		newDesc("implementation-agent", "implementation", "spring-boot"),
		fakeProvider{confidence: 0.9, guidance: "thin controllers"}))

	result, err := router.Route(context.Background(), domain.ConsultationRequest{
		RequestID: "r1", Domain: "implementation", Query: "spring boot layering",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoutingSuccess, result.Status)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, "implementation-agent", result.Responses[0].AgentID)
	assert.Equal(t, "r1", result.Responses[0].RequestID)
	assert.Contains(t, result.Scores, "implementation-agent")
}

func TestRouteAllAgentsFailed(t *testing.T) {
	router, reg, graph := testRouter(t)
	graph.Register("implementation-agent", nil, 0, 90)
	require.NoError(t, reg.Register(
		newDesc("implementation-agent", "implementation"),
		fakeProvider{err: errors.New("backend down")}))

	result, err := router.Route(context.Background(), domain.ConsultationRequest{
		RequestID: "r1", Domain: "implementation", Query: "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoutingAllAgentsFailed, result.Status)
	assert.Empty(t, result.Responses)
	assert.Equal(t, []string{"implementation-agent"}, result.OrderedAgents)
}

func TestRouteCyclicDependencyIsError(t *testing.T) {
	router, reg, graph := testRouter(t)
	graph.Register("x-agent", []string{"y-agent"}, 0, 50)
	graph.Register("y-agent", []string{"x-agent"}, 0, 50)
	require.NoError(t, reg.Register(newDesc("x-agent", "impl"), fakeProvider{confidence: 0.9}))
	require.NoError(t, reg.Register(newDesc("y-agent", "impl"), fakeProvider{confidence: 0.9}))

	_, err := router.Route(context.Background(), domain.ConsultationRequest{
		RequestID: "r1", Domain: "impl", Query: "anything",
	})
	assert.ErrorIs(t, err, domain.ErrCyclicDependency)
}

func TestRoutePartialFailureIsolation(t *testing.T) {
	router, reg, graph := testRouter(t)
	graph.Register("good-agent", nil, 0, 90)
	graph.Register("bad-agent", nil, 0, 80)
	graph.Register("panicky-agent", nil, 0, 70)
	require.NoError(t, reg.Register(newDesc("good-agent", "impl"), fakeProvider{confidence: 0.9, guidance: "ok"}))
	require.NoError(t, reg.Register(newDesc("bad-agent", "impl"), fakeProvider{err: errors.New("boom")}))
	require.NoError(t, reg.Register(newDesc("panicky-agent", "impl"), fakeProvider{panics: true}))

	result, err := router.Route(context.Background(), domain.ConsultationRequest{
		RequestID: "r1", Domain: "impl", Query: "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoutingSuccess, result.Status)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, "good-agent", result.Responses[0].AgentID)
	assert.Len(t, result.OrderedAgents, 3)
}

func TestRouteCallTimeout(t *testing.T) {
	router, reg, graph := testRouter(t, WithCallTimeout(10*time.Millisecond))
	graph.Register("slow-agent", nil, 0, 90)
	require.NoError(t, reg.Register(newDesc("slow-agent", "impl"),
		fakeProvider{confidence: 0.9, delay: 500 * time.Millisecond}))

	result, err := router.Route(context.Background(), domain.ConsultationRequest{
		RequestID: "r1", Domain: "impl", Query: "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoutingAllAgentsFailed, result.Status)
}

func TestDiscoverCandidates(t *testing.T) {
	router, reg, graph := testRouter(t)
	graph.Register("implementation-agent", nil, 0, 90)
	graph.Register("security-agent", nil, 1, 95)
	graph.Register("testing-agent", nil, 0, 70)
	graph.AddCrossDomainRule("implementation", "security")

	require.NoError(t, reg.Register(newDesc("implementation-agent", "implementation"), fakeProvider{}))
	require.NoError(t, reg.Register(newDesc("security-agent", "security", "security"), fakeProvider{}))
	require.NoError(t, reg.Register(newDesc("testing-agent", "testing", "testing"), fakeProvider{}))

	// Domain match plus cross-domain support.
	candidates := router.DiscoverCandidates(domain.ConsultationRequest{
		Domain: "implementation", Query: "structure the service",
	})
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"implementation-agent", "security-agent"}, ids)

	// Capability match pulls in the testing agent.
	candidates = router.DiscoverCandidates(domain.ConsultationRequest{
		Domain: "implementation", Query: "how should I test this",
	})
	ids = ids[:0]
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, "testing-agent")
}

func TestDiscoverCandidatesSkipsUnavailable(t *testing.T) {
	router, reg, _ := testRouter(t)
	require.NoError(t, reg.Register(newDesc("implementation-agent", "implementation"), fakeProvider{}))
	require.NoError(t, reg.SetAvailability("implementation-agent", false))

	candidates := router.DiscoverCandidates(domain.ConsultationRequest{
		Domain: "implementation", Query: "anything",
	})
	assert.Empty(t, candidates)
}

func TestDiscoverCandidatesSpecializedType(t *testing.T) {
	router, reg, _ := testRouter(t)
	require.NoError(t, reg.Register(
		newDesc("resilience-agent", "resilience-engineering", "circuit-breakers", "retry-patterns"),
		fakeProvider{}))

	candidates := router.DiscoverCandidates(domain.ConsultationRequest{
		Domain: "implementation", Query: "tune the circuit breaker",
	})
	require.Len(t, candidates, 1)
	assert.Equal(t, "resilience-agent", candidates[0].ID)
}

func TestScoreExactDomainBeatsCrossDomain(t *testing.T) {
	router, reg, graph := testRouter(t)
	graph.Register("implementation-agent", nil, 0, 90)
	graph.Register("security-agent", nil, 1, 95)
	graph.AddCrossDomainRule("implementation", "security")
	require.NoError(t, reg.Register(newDesc("implementation-agent", "implementation"), fakeProvider{}))
	require.NoError(t, reg.Register(newDesc("security-agent", "security"), fakeProvider{}))

	req := domain.ConsultationRequest{Domain: "implementation", Query: "plain question"}
	implDesc, _ := reg.Get("implementation-agent")
	secDesc, _ := reg.Get("security-agent")

	implScore := router.Score(implDesc, req, nil)
	secScore := router.Score(secDesc, req, nil)
	assert.Greater(t, implScore, secScore)

	// Cross-domain affinity contributes 0.7 against 1.0 for the exact match;
	// with identical metrics the gap is exactly 0.3 domain weight minus the
	// graph priority difference.
	assert.InDelta(t, 0.3*0.4-(0.95-0.90)*0.1, implScore-secScore, 1e-9)
}

func TestScoreBounds(t *testing.T) {
	router, reg, graph := testRouter(t)
	graph.Register("implementation-agent", nil, 0, 100)
	require.NoError(t, reg.Register(
		newDesc("implementation-agent", "implementation", "spring-boot", "testing"),
		fakeProvider{}))

	desc, _ := reg.Get("implementation-agent")
	score := router.Score(desc, domain.ConsultationRequest{Domain: "implementation"},
		[]string{"spring-boot", "testing"})

	// Weights sum to 1.1 with the graph priority perturbation.
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.1)
}

func TestDispatchUnregisteredAgent(t *testing.T) {
	router, _, _ := testRouter(t)
	responses := router.Dispatch(context.Background(),
		domain.ConsultationRequest{RequestID: "r1"}, []string{"ghost-agent"})
	assert.Empty(t, responses)
}

func TestDispatchPreservesOrder(t *testing.T) {
	router, reg, _ := testRouter(t)
	require.NoError(t, reg.Register(newDesc("a-agent", "x"), fakeProvider{confidence: 0.9, guidance: "a"}))
	require.NoError(t, reg.Register(newDesc("b-agent", "x"), fakeProvider{confidence: 0.8, guidance: "b"}))

	responses := router.Dispatch(context.Background(),
		domain.ConsultationRequest{RequestID: "r1"}, []string{"b-agent", "a-agent"})
	require.Len(t, responses, 2)
	assert.Equal(t, "b-agent", responses[0].AgentID)
	assert.Equal(t, "a-agent", responses[1].AgentID)
}
