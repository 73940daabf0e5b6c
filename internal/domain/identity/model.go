package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what a user can see and do for a patient.
type Role string

const (
	// RoleOwner is the primary family member responsible for the patient.
	RoleOwner Role = "owner"
	// RoleObserver is a family member with read access who receives alerts.
	RoleObserver Role = "observer"
	// RoleCaregiver is the hired caregiver who administers care on site.
	RoleCaregiver Role = "caregiver"
	// RoleAdmin is a platform operator.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles accepted on user creation.
var ValidRoles = map[Role]bool{
	RoleOwner:     true,
	RoleObserver:  true,
	RoleCaregiver: true,
	RoleAdmin:     true,
}

// FamilyRoles are the roles counted as family for alert escalation.
var FamilyRoles = []Role{RoleOwner, RoleObserver}

// User represents an account: a family member, a caregiver, or an admin.
type User struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	FullName  string     `db:"full_name" json:"full_name"`
	Role      Role       `db:"role" json:"role"`
	PatientID *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// NotificationPreferences controls which channels a user is reachable on and
// when. Quiet hours are local times in "HH:MM"; a critical alert may override
// them when CriticalOverrideQuiet is set.
type NotificationPreferences struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	UserID                uuid.UUID `db:"user_id" json:"user_id"`
	PushEnabled           bool      `db:"push_enabled" json:"push_enabled"`
	EmailEnabled          bool      `db:"email_enabled" json:"email_enabled"`
	SMSEnabled            bool      `db:"sms_enabled" json:"sms_enabled"`
	QuietHoursStart       *string   `db:"quiet_hours_start" json:"quiet_hours_start,omitempty"`
	QuietHoursEnd         *string   `db:"quiet_hours_end" json:"quiet_hours_end,omitempty"`
	CriticalOverrideQuiet bool      `db:"critical_override_quiet" json:"critical_override_quiet"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultPreferences returns the preferences applied to a user who never
// configured any.
func DefaultPreferences(userID uuid.UUID) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:                userID,
		PushEnabled:           true,
		EmailEnabled:          true,
		SMSEnabled:            false,
		CriticalOverrideQuiet: true,
	}
}

// PushToken is a registered device token for push delivery.
type PushToken struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	LastSeen  time.Time `db:"last_seen" json:"last_seen"`
}
