package attendance

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *ShiftRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*ShiftRecord, error)
	Update(ctx context.Context, s *ShiftRecord) error
	OpenShiftByCaregiver(ctx context.Context, caregiverID uuid.UUID) (*ShiftRecord, error)
	OpenShiftByPatient(ctx context.Context, patientID uuid.UUID) (*ShiftRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ShiftRecord, int, error)
}
