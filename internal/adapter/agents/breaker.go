package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"consilium/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	// If 0, failures never reset until the circuit opens.
	Interval time.Duration
	// RatePerSec caps calls per second to the responder. 0 disables limiting.
	RatePerSec float64
	// RateBurst is the limiter burst size; defaults to 1 when limiting is on.
	RateBurst int
}

// BreakerProvider wraps a GuidanceProvider with circuit breaker protection
// and an optional rate limit. When the wrapped responder fails repeatedly,
// the circuit opens and subsequent calls fail fast without reaching it,
// keeping one misbehaving responder from slowing every consultation.
type BreakerProvider struct {
	id      string
	inner   domain.GuidanceProvider
	breaker *gobreaker.CircuitBreaker[domain.GuidanceResponse]
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewBreakerProvider wraps inner with a circuit breaker.
// If cfg is zero-valued, sensible defaults are used.
func NewBreakerProvider(id string, inner domain.GuidanceProvider, cfg BreakerConfig, logger *slog.Logger) *BreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[domain.GuidanceResponse](gobreaker.Settings{
		Name:        "agent:" + id,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	return &BreakerProvider{
		id:      id,
		inner:   inner,
		breaker: cb,
		limiter: limiter,
		logger:  logger,
	}
}

// ProvideGuidance implements domain.GuidanceProvider. Calls wait for the
// rate limiter, then route through the circuit breaker.
func (p *BreakerProvider) ProvideGuidance(ctx context.Context, req domain.ConsultationRequest) (domain.GuidanceResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return domain.GuidanceResponse{}, fmt.Errorf("agent %q rate limit: %w", p.id, err)
		}
	}

	resp, err := p.breaker.Execute(func() (domain.GuidanceResponse, error) {
		return p.inner.ProvideGuidance(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return domain.GuidanceResponse{}, fmt.Errorf("agent %q circuit open: %w", p.id, err)
		}
		return domain.GuidanceResponse{}, err
	}
	return resp, nil
}

// State returns the current circuit breaker state for monitoring.
func (p *BreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (p *BreakerProvider) Counts() gobreaker.Counts {
	return p.breaker.Counts()
}

var _ domain.GuidanceProvider = (*BreakerProvider)(nil)
