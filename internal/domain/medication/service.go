package medication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyGiven    = errors.New("dose was already administered")
	ErrMissingEvidence = errors.New("administration photo evidence is required")
	ErrStaleEvidence   = errors.New("administration photo is not fresh")
)

// EvidenceFreshness bounds how old (or how far in the future) an
// administration photo timestamp may be, same discipline as check-in photos.
const EvidenceFreshness = 60 * time.Second

// Canceler stops any pending escalation timers for a dose. The alerting
// engine satisfies this; a nil canceler is valid when no engine is running.
type Canceler interface {
	CancelDose(medicationID uuid.UUID, scheduledAt time.Time)
}

// Announcer delivers informational family notifications after routine state
// changes. A nil announcer is valid when no notification pipeline is wired.
type Announcer interface {
	Announce(ctx context.Context, patientID uuid.UUID, event string, data map[string]string)
}

type Service struct {
	meds      Repository
	doses     DoseRepository
	canceler  Canceler
	announcer Announcer
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(meds Repository, doses DoseRepository, canceler Canceler, logger zerolog.Logger) *Service {
	return &Service{
		meds:     meds,
		doses:    doses,
		canceler: canceler,
		logger:   logger,
		now:      time.Now,
	}
}

// SetAnnouncer wires the family notification pipeline.
func (s *Service) SetAnnouncer(a Announcer) {
	s.announcer = a
}

// applyDefaults fills the escalation windows a prescription omits. Critical
// medications get the tighter windows.
func applyDefaults(m *Medication) {
	if m.ReminderBeforeMin == 0 {
		m.ReminderBeforeMin = DefaultReminderMinutes
	}
	if m.AlertAfterMinutes == 0 {
		if m.Critical {
			m.AlertAfterMinutes = DefaultCriticalAlertMinutes
		} else {
			m.AlertAfterMinutes = DefaultAlertMinutes
		}
	}
	if m.EscalateAfterMinutes == 0 {
		if m.Critical {
			m.EscalateAfterMinutes = DefaultCriticalEscalateMinutes
		} else {
			m.EscalateAfterMinutes = DefaultEscalateMinutes
		}
	}
}

func validate(m *Medication) error {
	if m.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.Dose == "" {
		return fmt.Errorf("dose is required")
	}
	if len(m.ScheduleTimes) == 0 {
		return fmt.Errorf("at least one schedule time is required")
	}
	seen := make(map[string]bool)
	for _, ts := range m.ScheduleTimes {
		if _, err := time.Parse("15:04", ts); err != nil {
			return fmt.Errorf("invalid schedule time %q, expected HH:MM", ts)
		}
		if seen[ts] {
			return fmt.Errorf("duplicate schedule time %q", ts)
		}
		seen[ts] = true
	}
	if m.AlertAfterMinutes <= 0 {
		return fmt.Errorf("alert_after_minutes must be positive")
	}
	if m.EscalateAfterMinutes <= m.AlertAfterMinutes {
		return fmt.Errorf("escalate_after_minutes (%d) must exceed alert_after_minutes (%d)",
			m.EscalateAfterMinutes, m.AlertAfterMinutes)
	}
	if m.ReminderBeforeMin < 0 {
		return fmt.Errorf("reminder_before_minutes must not be negative")
	}
	return nil
}

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	applyDefaults(m)
	if err := validate(m); err != nil {
		return err
	}
	m.IsActive = true
	if err := s.meds.Create(ctx, m); err != nil {
		return err
	}
	s.logger.Info().
		Str("medication", m.ID.String()).
		Str("name", m.Name).
		Bool("critical", m.Critical).
		Strs("schedule", m.ScheduleTimes).
		Msg("medication configured")
	return nil
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.meds.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	applyDefaults(m)
	if err := validate(m); err != nil {
		return err
	}
	return s.meds.Update(ctx, m)
}

// DeactivateMedication stops future dose generation for the medication.
// Already generated doses keep escalating until given.
func (s *Service) DeactivateMedication(ctx context.Context, id uuid.UUID) error {
	return s.meds.Deactivate(ctx, id)
}

func (s *Service) ListMedications(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	return s.meds.ListByPatient(ctx, patientID, limit, offset)
}

// Administer marks a dose as given. The transition requires photo evidence:
// a hash of the administration photo with a timestamp taken within
// EvidenceFreshness of now. The transition itself is atomic: exactly one
// caller wins, later calls get ErrAlreadyGiven. Winning cancels any pending
// escalation timers for the dose and announces the administration to the
// family.
func (s *Service) Administer(ctx context.Context, doseID, givenBy uuid.UUID, ev Evidence) (*DoseRecord, error) {
	if givenBy == uuid.Nil {
		return nil, fmt.Errorf("given_by is required")
	}
	if ev.PhotoHash == "" || ev.PhotoTakenAt.IsZero() {
		return nil, ErrMissingEvidence
	}

	now := s.now()
	delta := now.Sub(ev.PhotoTakenAt)
	if delta < 0 {
		delta = -delta
	}
	if delta > EvidenceFreshness {
		return nil, ErrStaleEvidence
	}

	claimed, err := s.doses.MarkGiven(ctx, doseID, givenBy, now, ev)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrAlreadyGiven
	}
	dose, err := s.doses.GetByID(ctx, doseID)
	if err != nil {
		return nil, err
	}
	if s.canceler != nil {
		s.canceler.CancelDose(dose.MedicationID, dose.ScheduledAt)
	}
	if s.announcer != nil {
		if med, err := s.meds.GetByID(ctx, dose.MedicationID); err == nil {
			s.announcer.Announce(ctx, dose.PatientID, "medication-given", map[string]string{
				"medication": med.Name,
				"dose":       med.Dose,
			})
		} else {
			s.logger.Warn().Err(err).
				Str("dose", doseID.String()).
				Msg("cannot load medication for administration announcement")
		}
	}
	s.logger.Info().
		Str("dose", doseID.String()).
		Str("medication", dose.MedicationID.String()).
		Time("scheduled_at", dose.ScheduledAt).
		Str("given_by", givenBy.String()).
		Msg("dose administered")
	return dose, nil
}

func (s *Service) GetDose(ctx context.Context, id uuid.UUID) (*DoseRecord, error) {
	return s.doses.GetByID(ctx, id)
}

func (s *Service) ListDoses(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]*DoseRecord, int, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -7)
	}
	return s.doses.ListByPatient(ctx, patientID, from, to, limit, offset)
}
