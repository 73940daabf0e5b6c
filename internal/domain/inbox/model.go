package inbox

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one delivered (or attempted) notification persisted for the
// recipient's in-app feed.
type Notification struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	RecipientID       uuid.UUID  `db:"recipient_id" json:"recipient_id"`
	PatientID         *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Type              string     `db:"type" json:"type"`
	Severity          string     `db:"severity" json:"severity"`
	Title             string     `db:"title" json:"title"`
	Body              string     `db:"body" json:"body"`
	Channels          []string   `db:"channels" json:"channels"`
	DeliveredChannels []string   `db:"delivered_channels" json:"delivered_channels"`
	ReadAt            *time.Time `db:"read_at" json:"read_at,omitempty"`
	ResolvedAt        *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy        *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// Stats summarizes a recipient's feed.
type Stats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}
