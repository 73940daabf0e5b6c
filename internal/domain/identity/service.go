package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	users  UserRepository
	prefs  PreferencesRepository
	tokens PushTokenRepository
}

func NewService(users UserRepository, prefs PreferencesRepository, tokens PushTokenRepository) *Service {
	return &Service{users: users, prefs: prefs, tokens: tokens}
}

// -- Users --

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("invalid email: %s", u.Email)
	}
	if u.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if !ValidRoles[u.Role] {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	if u.Role != RoleAdmin && u.PatientID == nil {
		return fmt.Errorf("patient_id is required for role %s", u.Role)
	}
	u.IsActive = true
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, email)
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	if u.Role != "" && !ValidRoles[u.Role] {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	return s.users.Update(ctx, u)
}

func (s *Service) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Deactivate(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// ListFamily returns the active family members (owner and observers) of a patient.
func (s *Service) ListFamily(ctx context.Context, patientID uuid.UUID) ([]*User, error) {
	return s.users.ListByPatient(ctx, patientID, FamilyRoles)
}

// ListCaregivers returns the active caregivers assigned to a patient.
func (s *Service) ListCaregivers(ctx context.Context, patientID uuid.UUID) ([]*User, error) {
	return s.users.ListByPatient(ctx, patientID, []Role{RoleCaregiver})
}

// -- Preferences --

// GetPreferences returns the user's notification preferences, falling back to
// the defaults when none were ever saved.
func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) (*NotificationPreferences, error) {
	p, err := s.prefs.GetByUser(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, p *NotificationPreferences) error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if (p.QuietHoursStart == nil) != (p.QuietHoursEnd == nil) {
		return fmt.Errorf("quiet hours require both start and end")
	}
	if p.QuietHoursStart != nil {
		if err := validateClockTime(*p.QuietHoursStart); err != nil {
			return fmt.Errorf("quiet_hours_start: %w", err)
		}
		if err := validateClockTime(*p.QuietHoursEnd); err != nil {
			return fmt.Errorf("quiet_hours_end: %w", err)
		}
	}
	return s.prefs.Upsert(ctx, p)
}

func validateClockTime(v string) error {
	if _, err := time.Parse("15:04", v); err != nil {
		return fmt.Errorf("invalid time %q, expected HH:MM", v)
	}
	return nil
}

// -- Push tokens --

var validPlatforms = map[string]bool{"ios": true, "android": true, "web": true}

func (s *Service) RegisterDevice(ctx context.Context, t *PushToken) error {
	if t.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if t.Token == "" {
		return fmt.Errorf("token is required")
	}
	if t.Platform == "" {
		t.Platform = "web"
	}
	if !validPlatforms[t.Platform] {
		return fmt.Errorf("invalid platform: %s", t.Platform)
	}
	return s.tokens.Register(ctx, t)
}

func (s *Service) ListDevices(ctx context.Context, userID uuid.UUID) ([]*PushToken, error) {
	return s.tokens.ListByUser(ctx, userID)
}

func (s *Service) RemoveDevice(ctx context.Context, userID uuid.UUID, token string) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	return s.tokens.Remove(ctx, userID, token)
}
