package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one security-relevant event: a critically missed medication, a
// check-in attempt outside the home radius, a stale proof photo.
type Entry struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	EventType string                 `db:"event_type" json:"event_type"`
	ActorID   *uuid.UUID             `db:"actor_id" json:"actor_id,omitempty"`
	PatientID *uuid.UUID             `db:"patient_id" json:"patient_id,omitempty"`
	Details   map[string]interface{} `db:"details" json:"details,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}
