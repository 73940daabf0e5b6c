package medication

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Medication, int, error)
	ListActive(ctx context.Context) ([]*Medication, error)
}

type DoseRepository interface {
	// CreateIfAbsent inserts the dose unless one already exists for the same
	// medication and scheduled instant. Reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, d *DoseRecord) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*DoseRecord, error)
	GetBySchedule(ctx context.Context, medicationID uuid.UUID, scheduledAt time.Time) (*DoseRecord, error)
	// MarkGiven atomically transitions an ungiven dose to GIVEN, storing the
	// administration evidence alongside. Reports whether this call won the
	// transition.
	MarkGiven(ctx context.Context, id uuid.UUID, givenBy uuid.UUID, at time.Time, ev Evidence) (bool, error)
	// MarkTierNotified atomically appends tier to the dose's notified set and
	// moves it to status, unless the dose is already given or the tier was
	// already claimed. Reports whether this call claimed the tier.
	MarkTierNotified(ctx context.Context, id uuid.UUID, tier string, status DoseStatus) (bool, error)
	// ListUngivenSince returns every ungiven dose scheduled at or after since,
	// including doses still in the future so the engine can arm them ahead of
	// their scheduled time.
	ListUngivenSince(ctx context.Context, since time.Time) ([]*DoseRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]*DoseRecord, int, error)
}
