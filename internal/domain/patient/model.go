package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the elder being cared for. The home coordinates and radius bound
// where a caregiver may check in; the timezone anchors dose schedules and
// quiet hours.
type Patient struct {
	ID                uuid.UUID `db:"id" json:"id"`
	FullName          string    `db:"full_name" json:"full_name"`
	OwnerID           uuid.UUID `db:"owner_id" json:"owner_id"`
	Address           *string   `db:"address" json:"address,omitempty"`
	HomeLat           *float64  `db:"home_lat" json:"home_lat,omitempty"`
	HomeLng           *float64  `db:"home_lng" json:"home_lng,omitempty"`
	RadiusMeters      float64   `db:"radius_meters" json:"radius_meters"`
	Timezone          string    `db:"timezone" json:"timezone"`
	ExpectedCaregiver *string   `db:"expected_caregiver_time" json:"expected_caregiver_time,omitempty"`
	Notes             *string   `db:"notes" json:"notes,omitempty"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultRadiusMeters is used when a patient has no explicit check-in radius.
const DefaultRadiusMeters = 30.0

// DefaultTimezone is used when a patient has no explicit timezone.
const DefaultTimezone = "America/Santiago"
