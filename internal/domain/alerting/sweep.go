package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/carewatch/carewatch/internal/domain/medication"
)

// Sweeper is the safety net behind the timer engine: every interval it scans
// ungiven doses inside the lookback window and fires the highest escalation
// tier whose deadline has passed. Tiers the engine already delivered are
// skipped through the persisted claim, so the sweep also catches up after
// downtime without duplicating notifications.
type Sweeper struct {
	doses    DoseStore
	meds     MedicationStore
	notifier *Notifier
	clock    Clock
	logger   zerolog.Logger
	interval time.Duration
	lookback time.Duration
}

func NewSweeper(
	doses DoseStore,
	meds MedicationStore,
	notifier *Notifier,
	clock Clock,
	logger zerolog.Logger,
	interval, lookback time.Duration,
) *Sweeper {
	return &Sweeper{
		doses:    doses,
		meds:     meds,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		interval: interval,
		lookback: lookback,
	}
}

// Run sweeps until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fired, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("sweep pass failed")
				continue
			}
			if fired > 0 {
				s.logger.Info().Int("fired", fired).Msg("sweep pass fired escalations")
			}
		}
	}
}

// SweepOnce runs a single pass and returns how many tiers it attempted to
// fire. Only the highest crossed tier fires per dose; a dose far past its
// windows does not replay the earlier, now stale, tiers.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	pending, err := s.doses.ListUngivenSince(ctx, now.Add(-s.lookback))
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, dose := range pending {
		med, err := s.meds.GetByID(ctx, dose.MedicationID)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("dose", dose.ID.String()).
				Msg("cannot load medication during sweep")
			continue
		}

		var tier string
		switch {
		case !now.Before(med.EscalateAt(dose.ScheduledAt)):
			tier = medication.TierCritical
		case !now.Before(med.AlertAt(dose.ScheduledAt)):
			tier = medication.TierAlert
		default:
			continue
		}
		if dose.TierNotified(tier) {
			continue
		}
		s.notifier.FireTier(ctx, dose.ID, tier)
		fired++
	}
	return fired, nil
}
