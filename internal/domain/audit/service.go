package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record writes one audit entry. uuid.Nil actor or patient are stored as
// absent. The signature matches what the attendance and alerting packages
// expect from their Auditor interfaces.
func (s *Service) Record(ctx context.Context, eventType string, actorID, patientID uuid.UUID, details map[string]interface{}) error {
	if eventType == "" {
		return fmt.Errorf("event_type is required")
	}
	e := &Entry{EventType: eventType, Details: details}
	if actorID != uuid.Nil {
		a := actorID
		e.ActorID = &a
	}
	if patientID != uuid.Nil {
		p := patientID
		e.PatientID = &p
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}
	s.logger.Warn().
		Str("event", eventType).
		Interface("details", details).
		Msg("audit event recorded")
	return nil
}

func (s *Service) List(ctx context.Context, eventType string, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, eventType, patientID, limit, offset)
}
