package medication

import (
	"time"

	"github.com/google/uuid"
)

// Escalation window defaults in minutes. Critical medications use tighter
// windows than regular ones.
const (
	DefaultAlertMinutes            = 15
	DefaultEscalateMinutes         = 30
	DefaultCriticalAlertMinutes    = 10
	DefaultCriticalEscalateMinutes = 20
	DefaultReminderMinutes         = 10
)

// Medication is a recurring prescription with one or more scheduled intake
// times per day, expressed as "HH:MM" in the patient's timezone.
type Medication struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	PatientID            uuid.UUID `db:"patient_id" json:"patient_id"`
	Name                 string    `db:"name" json:"name"`
	Dose                 string    `db:"dose" json:"dose"`
	Instructions         *string   `db:"instructions" json:"instructions,omitempty"`
	ScheduleTimes        []string  `db:"schedule_times" json:"schedule_times"`
	Critical             bool      `db:"critical" json:"critical"`
	ReminderBeforeMin    int       `db:"reminder_before_minutes" json:"reminder_before_minutes"`
	AlertAfterMinutes    int       `db:"alert_after_minutes" json:"alert_after_minutes"`
	EscalateAfterMinutes int       `db:"escalate_after_minutes" json:"escalate_after_minutes"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// DoseStatus is the lifecycle state of one scheduled dose.
type DoseStatus string

const (
	// DosePending means the dose is not yet due, or due but inside the alert window.
	DosePending DoseStatus = "PENDING"
	// DoseLate means the alert window has elapsed without administration.
	DoseLate DoseStatus = "LATE"
	// DoseCriticalMissed means the escalation window has elapsed without administration.
	DoseCriticalMissed DoseStatus = "CRITICAL_MISSED"
	// DoseGiven is terminal: the dose was administered.
	DoseGiven DoseStatus = "GIVEN"
)

// Escalation tiers recorded on a dose as its windows elapse.
const (
	TierReminder = "reminder"
	TierAlert    = "alert"
	TierCritical = "critical"
)

// DoseRecord is one concrete occurrence of a medication's schedule on a given
// day. TiersNotified persists which escalation tiers already fired so a tier
// is delivered at most once across timers, sweeps and restarts.
type DoseRecord struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MedicationID  uuid.UUID  `db:"medication_id" json:"medication_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	ScheduledAt   time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status        DoseStatus `db:"status" json:"status"`
	GivenAt       *time.Time `db:"given_at" json:"given_at,omitempty"`
	GivenBy       *uuid.UUID `db:"given_by" json:"given_by,omitempty"`
	PhotoHash     *string    `db:"photo_hash" json:"photo_hash,omitempty"`
	PhotoTakenAt  *time.Time `db:"photo_taken_at" json:"photo_taken_at,omitempty"`
	TiersNotified []string   `db:"tiers_notified" json:"tiers_notified"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Evidence is the administration proof required to mark a dose given: a hash
// of the photo taken at administration time and when it was taken.
type Evidence struct {
	PhotoHash    string    `json:"photo_hash"`
	PhotoTakenAt time.Time `json:"photo_taken_at"`
}

// TierNotified reports whether the given tier already fired for this dose.
func (d *DoseRecord) TierNotified(tier string) bool {
	for _, t := range d.TiersNotified {
		if t == tier {
			return true
		}
	}
	return false
}

// AlertAt returns the instant the alert tier is due for this dose.
func (m *Medication) AlertAt(scheduledAt time.Time) time.Time {
	return scheduledAt.Add(time.Duration(m.AlertAfterMinutes) * time.Minute)
}

// EscalateAt returns the instant the critical tier is due for this dose.
func (m *Medication) EscalateAt(scheduledAt time.Time) time.Time {
	return scheduledAt.Add(time.Duration(m.EscalateAfterMinutes) * time.Minute)
}

// ReminderAt returns the instant the pre-dose reminder is due, or zero time
// when reminders are disabled.
func (m *Medication) ReminderAt(scheduledAt time.Time) time.Time {
	if m.ReminderBeforeMin <= 0 {
		return time.Time{}
	}
	return scheduledAt.Add(-time.Duration(m.ReminderBeforeMin) * time.Minute)
}
