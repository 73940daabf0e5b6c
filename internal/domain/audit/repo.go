package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, eventType string, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
