package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewatch/carewatch/internal/domain/medication"
)

// Generator materializes dose records from medication schedules and keeps the
// engine armed. Each pass is idempotent: doses are inserted at most once per
// medication and scheduled instant, and re-arming a pending chain is a no-op.
type Generator struct {
	meds     MedicationStore
	doses    DoseStore
	patients PatientDirectory
	engine   *Engine
	clock    Clock
	logger   zerolog.Logger
	interval time.Duration
	lookback time.Duration
}

func NewGenerator(
	meds MedicationStore,
	doses DoseStore,
	patients PatientDirectory,
	engine *Engine,
	clock Clock,
	logger zerolog.Logger,
	lookback time.Duration,
) *Generator {
	return &Generator{
		meds:     meds,
		doses:    doses,
		patients: patients,
		engine:   engine,
		clock:    clock,
		logger:   logger,
		interval: time.Minute,
		lookback: lookback,
	}
}

// Run generates and arms doses until the context is canceled. One pass runs
// immediately so a restart re-arms pending doses without waiting a tick.
func (g *Generator) Run(ctx context.Context) {
	if err := g.GenerateOnce(ctx); err != nil {
		g.logger.Error().Err(err).Msg("schedule generation pass failed")
	}
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.GenerateOnce(ctx); err != nil {
				g.logger.Error().Err(err).Msg("schedule generation pass failed")
			}
		}
	}
}

// GenerateOnce inserts dose records for every active medication across every
// day the lookback window touches, then arms every ungiven dose inside it.
func (g *Generator) GenerateOnce(ctx context.Context) error {
	meds, err := g.meds.ListActive(ctx)
	if err != nil {
		return err
	}
	now := g.clock.Now()

	byID := make(map[uuid.UUID]*medication.Medication, len(meds))
	for _, med := range meds {
		byID[med.ID] = med
		info, err := g.patients.Info(ctx, med.PatientID)
		if err != nil {
			g.logger.Warn().Err(err).
				Str("medication", med.ID.String()).
				Msg("cannot resolve patient, skipping medication")
			continue
		}
		for _, hhmm := range med.ScheduleTimes {
			occurrences, ok := occurrencesWithin(hhmm, now, g.lookback, info.Location)
			if !ok {
				g.logger.Warn().
					Str("medication", med.ID.String()).
					Str("time", hhmm).
					Msg("unparseable schedule time")
				continue
			}
			for _, occurrence := range occurrences {
				created, err := g.doses.CreateIfAbsent(ctx, &medication.DoseRecord{
					MedicationID: med.ID,
					PatientID:    med.PatientID,
					ScheduledAt:  occurrence,
				})
				if err != nil {
					g.logger.Error().Err(err).
						Str("medication", med.ID.String()).
						Time("scheduled_at", occurrence).
						Msg("cannot create dose record")
					continue
				}
				if created {
					g.logger.Info().
						Str("medication", med.Name).
						Time("scheduled_at", occurrence).
						Msg("dose generated")
				}
			}
		}
	}

	// Arm (or re-arm after restart) everything still pending.
	pending, err := g.doses.ListUngivenSince(ctx, now.Add(-g.lookback))
	if err != nil {
		return err
	}
	for _, dose := range pending {
		med, ok := byID[dose.MedicationID]
		if !ok {
			// Deactivated since generation; let existing doses run out
			// through the sweep instead of the engine.
			continue
		}
		g.engine.Arm(med, dose)
	}
	return nil
}

// occurrencesWithin maps an "HH:MM" local schedule entry onto concrete
// instants in the patient's timezone, one per calendar day the lookback
// window touches up to and including today. Covering every day in the window
// keeps downtime spanning midnight from swallowing the previous day's doses:
// they are still materialized here and then escalated by the sweep.
func occurrencesWithin(hhmm string, now time.Time, lookback time.Duration, loc *time.Location) ([]time.Time, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return nil, false
	}
	if loc == nil {
		loc = time.UTC
	}
	windowStart := now.Add(-lookback)
	day := windowStart.In(loc)
	today := now.In(loc)

	var out []time.Time
	for !day.After(today) {
		occurrence := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		if !occurrence.Before(windowStart) {
			out = append(out, occurrence)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out, true
}
