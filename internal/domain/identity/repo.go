package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, roles []Role) ([]*User, error)
}

type PreferencesRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*NotificationPreferences, error)
	Upsert(ctx context.Context, p *NotificationPreferences) error
}

type PushTokenRepository interface {
	Register(ctx context.Context, t *PushToken) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*PushToken, error)
	Remove(ctx context.Context, userID uuid.UUID, token string) error
}
