package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewatch/carewatch/internal/domain/medication"
	"github.com/carewatch/carewatch/internal/platform/notification"
)

// Preferences mirrors a user's channel and quiet-hours configuration.
type Preferences struct {
	PushEnabled           bool
	EmailEnabled          bool
	SMSEnabled            bool
	QuietHoursStart       *string
	QuietHoursEnd         *string
	CriticalOverrideQuiet bool
}

// Contact is one reachable person with their delivery endpoints.
type Contact struct {
	UserID     uuid.UUID
	FullName   string
	Email      string
	Phone      string
	PushTokens []string
	Prefs      Preferences
}

// ContactDirectory provides the people around a patient. The identity and
// attendance services back it via an adapter.
type ContactDirectory interface {
	// FamilyContacts returns the patient's active family members.
	FamilyContacts(ctx context.Context, patientID uuid.UUID) ([]Contact, error)
	// OnDutyCaregiver returns the caregiver with an open shift, if any.
	OnDutyCaregiver(ctx context.Context, patientID uuid.UUID) (*Contact, bool, error)
}

// Recipient is a contact narrowed to the channels a message may use.
type Recipient struct {
	Contact
	Channels []notification.Channel
}

// Resolver selects who gets notified at each escalation tier and filters the
// channels by each person's preferences and quiet hours.
type Resolver struct {
	contacts ContactDirectory
	logger   zerolog.Logger
}

func NewResolver(contacts ContactDirectory, logger zerolog.Logger) *Resolver {
	return &Resolver{contacts: contacts, logger: logger}
}

// Resolve returns the recipients for a tier. Reminder and alert tiers target
// the on-duty caregiver, falling back to the family when nobody is on shift.
// The critical tier always targets the whole family plus the caregiver, and
// overrides quiet hours for contacts who opted into the override, regardless
// of the medication's own criticality flag.
func (r *Resolver) Resolve(ctx context.Context, patientID uuid.UUID, tier string, now time.Time, loc *time.Location) ([]Recipient, error) {
	var contacts []Contact

	caregiver, onDuty, err := r.contacts.OnDutyCaregiver(ctx, patientID)
	if err != nil {
		return nil, err
	}

	switch tier {
	case medication.TierCritical:
		family, err := r.contacts.FamilyContacts(ctx, patientID)
		if err != nil {
			return nil, err
		}
		contacts = family
		if onDuty {
			contacts = append(contacts, *caregiver)
		}
	default:
		if onDuty {
			contacts = []Contact{*caregiver}
		} else {
			family, err := r.contacts.FamilyContacts(ctx, patientID)
			if err != nil {
				return nil, err
			}
			contacts = family
		}
	}

	isCritical := tier == medication.TierCritical
	var recipients []Recipient
	for _, c := range contacts {
		channels := allowedChannels(c.Prefs, isCritical, now, loc)
		if len(channels) == 0 {
			r.logger.Debug().
				Str("user", c.UserID.String()).
				Str("tier", tier).
				Msg("contact filtered out by preferences")
			continue
		}
		recipients = append(recipients, Recipient{Contact: c, Channels: channels})
	}
	return recipients, nil
}

// allowedChannels applies channel toggles and quiet hours. During quiet hours
// everything is suppressed unless the alert is critical and the contact opted
// into the critical override.
func allowedChannels(p Preferences, critical bool, now time.Time, loc *time.Location) []notification.Channel {
	if inQuietHours(p, now, loc) {
		if !(critical && p.CriticalOverrideQuiet) {
			return nil
		}
	}
	var channels []notification.Channel
	if p.PushEnabled {
		channels = append(channels, notification.ChannelPush)
	}
	if p.EmailEnabled {
		channels = append(channels, notification.ChannelEmail)
	}
	if p.SMSEnabled {
		channels = append(channels, notification.ChannelSMS)
	}
	return channels
}

// inQuietHours reports whether the local time falls inside the contact's
// quiet window. Windows may wrap midnight (22:00 to 07:00).
func inQuietHours(p Preferences, now time.Time, loc *time.Location) bool {
	if p.QuietHoursStart == nil || p.QuietHoursEnd == nil {
		return false
	}
	start, err1 := time.Parse("15:04", *p.QuietHoursStart)
	end, err2 := time.Parse("15:04", *p.QuietHoursEnd)
	if err1 != nil || err2 != nil {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	cur := local.Hour()*60 + local.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()

	if s == e {
		return false
	}
	if s < e {
		return cur >= s && cur < e
	}
	return cur >= s || cur < e
}
