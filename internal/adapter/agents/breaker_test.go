package agents

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consilium/internal/domain"
)

type flakyProvider struct {
	failures int
	calls    int
}

func (p *flakyProvider) ProvideGuidance(_ context.Context, req domain.ConsultationRequest) (domain.GuidanceResponse, error) {
	p.calls++
	if p.calls <= p.failures {
		return domain.GuidanceResponse{}, errors.New("transient failure")
	}
	return domain.SuccessResponse(req.RequestID, "flaky", "recovered", 0.9, nil, 0), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBreakerPassthrough(t *testing.T) {
	inner := &flakyProvider{}
	p := NewBreakerProvider("flaky", inner, BreakerConfig{}, testLogger())

	resp, err := p.ProvideGuidance(context.Background(), domain.ConsultationRequest{RequestID: "r1"})
	require.NoError(t, err)
	assert.True(t, resp.Successful)
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyProvider{failures: 100}
	p := NewBreakerProvider("flaky", inner, BreakerConfig{MaxFailures: 2}, testLogger())

	for i := 0; i < 2; i++ {
		_, err := p.ProvideGuidance(context.Background(), domain.ConsultationRequest{RequestID: "r1"})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	// Open circuit fails fast without touching the responder.
	callsBefore := inner.calls
	_, err := p.ProvideGuidance(context.Background(), domain.ConsultationRequest{RequestID: "r2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, err.Error(), `agent "flaky" circuit open`)
	assert.Equal(t, callsBefore, inner.calls)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	inner := &flakyProvider{failures: 2}
	p := NewBreakerProvider("flaky", inner, BreakerConfig{
		MaxFailures: 2,
		Timeout:     10 * time.Millisecond,
	}, testLogger())

	for i := 0; i < 2; i++ {
		p.ProvideGuidance(context.Background(), domain.ConsultationRequest{RequestID: "r1"})
	}
	require.Equal(t, gobreaker.StateOpen, p.State())

	time.Sleep(20 * time.Millisecond)

	resp, err := p.ProvideGuidance(context.Background(), domain.ConsultationRequest{RequestID: "r2"})
	require.NoError(t, err)
	assert.True(t, resp.Successful)
}

func TestBreakerRateLimit(t *testing.T) {
	inner := &flakyProvider{}
	p := NewBreakerProvider("flaky", inner, BreakerConfig{
		RatePerSec: 1000,
		RateBurst:  1,
	}, testLogger())

	// Within burst: no observable delay or error.
	_, err := p.ProvideGuidance(context.Background(), domain.ConsultationRequest{RequestID: "r1"})
	require.NoError(t, err)

	// An already-cancelled context surfaces as a rate limit error before
	// the responder is called.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	callsBefore := inner.calls
	_, err = p.ProvideGuidance(ctx, domain.ConsultationRequest{RequestID: "r2"})
	require.Error(t, err)
	assert.Equal(t, callsBefore, inner.calls)
}
