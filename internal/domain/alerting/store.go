package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carewatch/carewatch/internal/domain/medication"
)

// DoseStore is the subset of dose persistence the escalation machinery needs.
// medication.DoseRepository satisfies it.
type DoseStore interface {
	CreateIfAbsent(ctx context.Context, d *medication.DoseRecord) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*medication.DoseRecord, error)
	MarkTierNotified(ctx context.Context, id uuid.UUID, tier string, status medication.DoseStatus) (bool, error)
	ListUngivenSince(ctx context.Context, since time.Time) ([]*medication.DoseRecord, error)
}

// MedicationStore is the subset of medication persistence the escalation
// machinery needs. medication.Repository satisfies it.
type MedicationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error)
	ListActive(ctx context.Context) ([]*medication.Medication, error)
}

// PatientInfo is the part of a patient the scheduler and resolver need.
type PatientInfo struct {
	FullName string
	Location *time.Location
}

// PatientDirectory resolves patient display and timezone data.
type PatientDirectory interface {
	Info(ctx context.Context, patientID uuid.UUID) (*PatientInfo, error)
}
