package registry

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Default sweep schedule and saturation point.
const (
	DefaultSweepSchedule = "@every 30s"
	DefaultMaxActiveLoad = 10
)

// Sweeper periodically recomputes responder availability from live load and
// logs the registry health snapshot. A responder saturated past maxActive
// in-flight requests is parked until its load drains.
type Sweeper struct {
	registry  *Registry
	schedule  string
	maxActive int
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewSweeper creates a sweeper for the given registry. Zero values fall back
// to DefaultSweepSchedule and DefaultMaxActiveLoad.
func NewSweeper(registry *Registry, schedule string, maxActive int, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveLoad
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Sweeper{
		registry:  registry,
		schedule:  schedule,
		maxActive: maxActive,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start schedules the sweep job and starts the cron runner.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("registry sweeper started", "schedule", s.schedule, "max_active", s.maxActive)
	return nil
}

// Stop halts the cron runner. Pending sweep runs finish first.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one availability pass. Exported so callers can force a pass
// outside the schedule.
func (s *Sweeper) Sweep() {
	var parked, restored int
	for _, desc := range s.registry.All() {
		metrics, err := s.registry.Metrics(desc.ID)
		if err != nil {
			continue
		}
		saturated := metrics.ActiveRequests >= s.maxActive
		switch {
		case saturated && desc.Available:
			if s.registry.SetAvailability(desc.ID, false) == nil {
				parked++
			}
		case !saturated && !desc.Available:
			if s.registry.SetAvailability(desc.ID, true) == nil {
				restored++
			}
		}
	}

	health := s.registry.Health()
	s.logger.Info("registry sweep complete",
		"total", health.TotalAgents,
		"available", health.AvailableAgents,
		"availability", health.Availability,
		"parked", parked,
		"restored", restored)
}
