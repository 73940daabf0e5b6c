package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if p.OwnerID == uuid.Nil {
		return fmt.Errorf("owner_id is required")
	}
	if (p.HomeLat == nil) != (p.HomeLng == nil) {
		return fmt.Errorf("home location requires both latitude and longitude")
	}
	if p.RadiusMeters <= 0 {
		p.RadiusMeters = DefaultRadiusMeters
	}
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %s", p.Timezone)
	}
	if p.ExpectedCaregiver != nil {
		if _, err := time.Parse("15:04", *p.ExpectedCaregiver); err != nil {
			return fmt.Errorf("invalid expected_caregiver_time %q, expected HH:MM", *p.ExpectedCaregiver)
		}
	}
	p.IsActive = true
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %s", p.Timezone)
		}
	}
	if p.RadiusMeters <= 0 {
		return fmt.Errorf("radius_meters must be positive")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListActivePatients returns every patient still under supervision.
func (s *Service) ListActivePatients(ctx context.Context) ([]*Patient, error) {
	return s.repo.ListActive(ctx)
}

// Location resolves the patient's timezone, falling back to the default when
// the stored value fails to load.
func (p *Patient) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}
	return loc
}
