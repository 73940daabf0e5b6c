package attendance

import (
	"time"

	"github.com/google/uuid"
)

// ShiftRecord is one caregiver shift at a patient's home, opened by a
// check-in and closed by a check-out.
type ShiftRecord struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	CaregiverID     uuid.UUID  `db:"caregiver_id" json:"caregiver_id"`
	CheckInAt       time.Time  `db:"check_in_at" json:"check_in_at"`
	CheckInLat      float64    `db:"check_in_lat" json:"check_in_lat"`
	CheckInLng      float64    `db:"check_in_lng" json:"check_in_lng"`
	CheckInDistance float64    `db:"check_in_distance" json:"check_in_distance"`
	PhotoURL        *string    `db:"photo_url" json:"photo_url,omitempty"`
	PhotoTakenAt    *time.Time `db:"photo_taken_at" json:"photo_taken_at,omitempty"`
	CheckOutAt      *time.Time `db:"check_out_at" json:"check_out_at,omitempty"`
	CheckOutLat     *float64   `db:"check_out_lat" json:"check_out_lat,omitempty"`
	CheckOutLng     *float64   `db:"check_out_lng" json:"check_out_lng,omitempty"`
	WeightKg        *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// CheckInRequest is the payload for opening a shift.
type CheckInRequest struct {
	PatientID    uuid.UUID  `json:"patient_id"`
	CaregiverID  uuid.UUID  `json:"caregiver_id"`
	Lat          float64    `json:"lat"`
	Lng          float64    `json:"lng"`
	PhotoURL     *string    `json:"photo_url,omitempty"`
	PhotoTakenAt *time.Time `json:"photo_taken_at,omitempty"`
}

// CheckOutRequest is the payload for closing the open shift.
type CheckOutRequest struct {
	CaregiverID uuid.UUID `json:"caregiver_id"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}
