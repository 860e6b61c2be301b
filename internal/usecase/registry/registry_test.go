package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/internal/domain"
)

type stubProvider struct{}

func (stubProvider) ProvideGuidance(_ context.Context, req domain.ConsultationRequest) (domain.GuidanceResponse, error) {
	return domain.SuccessResponse(req.RequestID, "stub", "ok", 0.9, nil, 0), nil
}

func desc(id, domainTag string, caps ...string) domain.AgentDescriptor {
	return domain.AgentDescriptor{ID: id, Domain: domainTag, Capabilities: caps, Available: true}
}

func TestRegisterAndGet(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(desc("security-agent", "security", "owasp"), stubProvider{}))

	got, err := reg.Get("security-agent")
	require.NoError(t, err)
	assert.Equal(t, "security", got.Domain)
	assert.True(t, got.HasCapability("owasp"))

	provider, err := reg.Provider("security-agent")
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestRegisterDuplicate(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(desc("a", "x"), stubProvider{}))
	err := reg.Register(desc("a", "y"), stubProvider{})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestGetNotFound(t *testing.T) {
	reg := New(nil)
	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = reg.Provider("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = reg.Metrics("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, reg.SetAvailability("missing", false), domain.ErrNotFound)
}

func TestAllSorted(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(desc("b", "x"), stubProvider{}))
	require.NoError(t, reg.Register(desc("a", "x"), stubProvider{}))
	require.NoError(t, reg.Register(desc("c", "y"), stubProvider{}))

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
}

func TestForDomainAndCapabilities(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(desc("sec", "security", "owasp", "jwt"), stubProvider{}))
	require.NoError(t, reg.Register(desc("obs", "observability", "metrics"), stubProvider{}))

	byDomain := reg.ForDomain("security")
	require.Len(t, byDomain, 1)
	assert.Equal(t, "sec", byDomain[0].ID)

	byCaps := reg.WithCapabilities([]string{"metrics", "jwt"})
	require.Len(t, byCaps, 2)

	assert.Empty(t, reg.ForDomain("nope"))
	assert.Empty(t, reg.WithCapabilities([]string{"nope"}))
}

func TestMetricsLifecycle(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(desc("a", "x"), stubProvider{}))

	reg.RecordStart("a")
	m, err := reg.Metrics("a")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ActiveRequests)
	assert.Equal(t, 1.0, m.Accuracy)

	reg.RecordCompletion("a", 100*time.Millisecond, true)
	m, err = reg.Metrics("a")
	require.NoError(t, err)
	assert.Equal(t, 0, m.ActiveRequests)
	assert.Equal(t, 100*time.Millisecond, m.AverageLatency)
	assert.InDelta(t, 1.0, m.Accuracy, 1e-9)

	// A failure pulls the accuracy EWMA down by one alpha step.
	reg.RecordStart("a")
	reg.RecordCompletion("a", 300*time.Millisecond, false)
	m, err = reg.Metrics("a")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, m.Accuracy, 1e-9)
	assert.Greater(t, m.AverageLatency, 100*time.Millisecond)
	assert.Less(t, m.AverageLatency, 300*time.Millisecond)
}

func TestHealth(t *testing.T) {
	reg := New(nil)
	health := reg.Health()
	assert.Equal(t, 1.0, health.Availability)
	assert.True(t, health.Healthy())

	require.NoError(t, reg.Register(desc("a", "x"), stubProvider{}))
	require.NoError(t, reg.Register(desc("b", "x"), stubProvider{}))
	require.NoError(t, reg.Register(desc("c", "y"), stubProvider{}))
	require.NoError(t, reg.SetAvailability("c", false))

	health = reg.Health()
	assert.Equal(t, 3, health.TotalAgents)
	assert.Equal(t, 2, health.AvailableAgents)
	assert.InDelta(t, 2.0/3.0, health.Availability, 1e-9)
	assert.False(t, health.Healthy())
	assert.Equal(t, 2, health.AgentsByDomain["x"])
}
