package alerting

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewatch/carewatch/internal/platform/notification"
)

// Courier delivers informational family notifications for routine events:
// medication administered, caregiver checked in or out, check-in rejected
// outside the home radius. Unlike the escalation Notifier it has no tier
// claims; events are one-shot and fired at the moment they happen. The
// medication and attendance services call it through their Announcer
// interfaces.
type Courier struct {
	contacts  ContactDirectory
	patients  PatientDirectory
	sink      Sink
	templates *notification.TemplateEngine
	clock     Clock
	logger    zerolog.Logger
}

func NewCourier(
	contacts ContactDirectory,
	patients PatientDirectory,
	sink Sink,
	templates *notification.TemplateEngine,
	clock Clock,
	logger zerolog.Logger,
) *Courier {
	return &Courier{
		contacts:  contacts,
		patients:  patients,
		sink:      sink,
		templates: templates,
		clock:     clock,
		logger:    logger,
	}
}

// Announce renders the event's template and sends it to the patient's whole
// family, filtered by each contact's channel preferences and quiet hours.
// Critical-severity events (a rejected check-in) override quiet hours for
// contacts who opted in. Delivery is best-effort: failures are logged, never
// returned, so a notification problem cannot fail the triggering operation.
func (c *Courier) Announce(ctx context.Context, patientID uuid.UUID, event string, data map[string]string) {
	log := c.logger.With().Str("event", event).Str("patient", patientID.String()).Logger()

	info, err := c.patients.Info(ctx, patientID)
	if err != nil {
		log.Error().Err(err).Msg("cannot load patient for announcement")
		return
	}
	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["patient_name"]; !ok {
		data["patient_name"] = info.FullName
	}

	severity, err := c.templates.Severity(event)
	if err != nil {
		log.Error().Err(err).Msg("unknown announcement template")
		return
	}
	title, body, err := c.templates.Render(event, data)
	if err != nil {
		log.Error().Err(err).Msg("cannot render announcement")
		return
	}

	family, err := c.contacts.FamilyContacts(ctx, patientID)
	if err != nil {
		log.Error().Err(err).Msg("cannot resolve family contacts")
		return
	}

	now := c.clock.Now()
	critical := severity == notification.SeverityCritical
	sent := 0
	for _, contact := range family {
		channels := allowedChannels(contact.Prefs, critical, now, info.Location)
		if len(channels) == 0 {
			continue
		}
		c.sink.Send(ctx, notification.Message{
			RecipientID: contact.UserID,
			Email:       contact.Email,
			Phone:       contact.Phone,
			PushTokens:  contact.PushTokens,
			Channels:    channels,
			Severity:    severity,
			Type:        event,
			Title:       title,
			Body:        body,
			PatientID:   patientID,
		})
		sent++
	}
	log.Debug().Int("recipients", sent).Msg("announcement delivered")
}
