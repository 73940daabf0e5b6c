package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewatch/carewatch/internal/domain/medication"
)

// Engine owns the in-memory timer chains: for every armed dose it schedules
// one timer per upcoming escalation tier. Administering the dose cancels the
// whole chain. Timers that would fire in the past fire immediately, so a dose
// armed late (restart, late configuration) still escalates.
type Engine struct {
	mu       sync.Mutex
	timers   map[string][]Timer
	notifier *Notifier
	clock    Clock
	logger   zerolog.Logger
	stopped  bool
}

func NewEngine(notifier *Notifier, clock Clock, logger zerolog.Logger) *Engine {
	return &Engine{
		timers:   make(map[string][]Timer),
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

func doseKey(medicationID uuid.UUID, scheduledAt time.Time) string {
	return fmt.Sprintf("%s_%d", medicationID, scheduledAt.Unix())
}

// Arm schedules the escalation chain for one dose occurrence. Arming the same
// occurrence again while its chain is pending is a no-op, so the scheduler
// can re-arm on every pass without duplicating timers.
func (e *Engine) Arm(med *medication.Medication, dose *medication.DoseRecord) {
	if dose.GivenAt != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	key := doseKey(dose.MedicationID, dose.ScheduledAt)
	if _, armed := e.timers[key]; armed {
		return
	}

	now := e.clock.Now()
	doseID := dose.ID

	type tierPoint struct {
		tier string
		at   time.Time
	}
	points := []tierPoint{
		{medication.TierAlert, med.AlertAt(dose.ScheduledAt)},
		{medication.TierCritical, med.EscalateAt(dose.ScheduledAt)},
	}
	if reminderAt := med.ReminderAt(dose.ScheduledAt); !reminderAt.IsZero() {
		points = append([]tierPoint{{medication.TierReminder, reminderAt}}, points...)
	}

	var chain []Timer
	overdue := ""
	for _, p := range points {
		if !p.at.After(now) {
			// Already crossed. A stale reminder is worthless (the dose is
			// due by now), so only alert and critical count; of those,
			// remember the highest. Claims in TiersNotified keep earlier
			// deliveries from repeating.
			if p.tier != medication.TierReminder {
				overdue = p.tier
			}
			continue
		}
		tier := p.tier
		final := tier == medication.TierCritical
		t := e.clock.AfterFunc(p.at.Sub(now), func() {
			e.notifier.FireTier(context.Background(), doseID, tier)
			if final {
				e.release(key)
			}
		})
		chain = append(chain, t)
	}

	if overdue != "" {
		tier := overdue
		go func() {
			e.notifier.FireTier(context.Background(), doseID, tier)
			if tier == medication.TierCritical {
				e.release(key)
			}
		}()
	}

	e.timers[key] = chain
	e.logger.Debug().
		Str("medication", med.Name).
		Time("scheduled_at", dose.ScheduledAt).
		Int("pending_timers", len(chain)).
		Msg("dose armed")
}

// CancelDose stops every pending timer for the dose occurrence. Called when
// the dose is administered.
func (e *Engine) CancelDose(medicationID uuid.UUID, scheduledAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := doseKey(medicationID, scheduledAt)
	chain, ok := e.timers[key]
	if !ok {
		return
	}
	for _, t := range chain {
		t.Stop()
	}
	delete(e.timers, key)
	e.logger.Debug().Str("key", key).Msg("escalation chain canceled")
}

// Armed reports whether a chain is currently tracked for the occurrence.
func (e *Engine) Armed(medicationID uuid.UUID, scheduledAt time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[doseKey(medicationID, scheduledAt)]
	return ok
}

// Stop cancels every chain. The engine refuses new arms afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for key, chain := range e.timers {
		for _, t := range chain {
			t.Stop()
		}
		delete(e.timers, key)
	}
}

func (e *Engine) release(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.timers, key)
}
