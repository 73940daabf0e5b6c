package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewatch/carewatch/internal/domain/medication"
	"github.com/carewatch/carewatch/internal/platform/notification"
)

// Sink delivers one rendered message to one recipient. The platform
// dispatcher satisfies it.
type Sink interface {
	Send(ctx context.Context, msg notification.Message) []notification.ChannelResult
}

// Auditor records security-relevant events such as critically missed doses.
type Auditor interface {
	Record(ctx context.Context, eventType string, actorID, patientID uuid.UUID, details map[string]interface{}) error
}

// Notifier fires one escalation tier for one dose: it re-reads the dose,
// claims the tier atomically, resolves recipients and dispatches. Both the
// timer engine and the periodic sweep funnel through it, so a tier is
// delivered at most once no matter which path gets there first.
type Notifier struct {
	doses     DoseStore
	meds      MedicationStore
	patients  PatientDirectory
	resolver  *Resolver
	sink      Sink
	templates *notification.TemplateEngine
	auditor   Auditor
	clock     Clock
	logger    zerolog.Logger
}

func NewNotifier(
	doses DoseStore,
	meds MedicationStore,
	patients PatientDirectory,
	resolver *Resolver,
	sink Sink,
	templates *notification.TemplateEngine,
	auditor Auditor,
	clock Clock,
	logger zerolog.Logger,
) *Notifier {
	return &Notifier{
		doses:     doses,
		meds:      meds,
		patients:  patients,
		resolver:  resolver,
		sink:      sink,
		templates: templates,
		auditor:   auditor,
		clock:     clock,
		logger:    logger,
	}
}

func tierStatus(tier string) medication.DoseStatus {
	switch tier {
	case medication.TierAlert:
		return medication.DoseLate
	case medication.TierCritical:
		return medication.DoseCriticalMissed
	default:
		return medication.DosePending
	}
}

func tierTemplate(tier string) string {
	switch tier {
	case medication.TierAlert:
		return "medication-late"
	case medication.TierCritical:
		return "medication-critical-missed"
	default:
		return "medication-reminder"
	}
}

func tierSeverity(tier string) notification.Severity {
	switch tier {
	case medication.TierAlert:
		return notification.SeverityWarning
	case medication.TierCritical:
		return notification.SeverityCritical
	default:
		return notification.SeverityInfo
	}
}

// FireTier runs one tier for one dose. It is safe to call from competing
// paths: the dose is re-read first (a dose given in the meantime is a no-op)
// and the tier claim is atomic, so only one caller proceeds to delivery.
func (n *Notifier) FireTier(ctx context.Context, doseID uuid.UUID, tier string) {
	log := n.logger.With().Str("dose", doseID.String()).Str("tier", tier).Logger()

	dose, err := n.doses.GetByID(ctx, doseID)
	if err != nil {
		log.Error().Err(err).Msg("cannot load dose, skipping tier")
		return
	}
	if dose.GivenAt != nil {
		log.Debug().Msg("dose already given, tier suppressed")
		return
	}

	med, err := n.meds.GetByID(ctx, dose.MedicationID)
	if err != nil {
		log.Error().Err(err).Msg("cannot load medication, skipping tier")
		return
	}

	claimed, err := n.doses.MarkTierNotified(ctx, doseID, tier, tierStatus(tier))
	if err != nil {
		log.Error().Err(err).Msg("cannot claim tier")
		return
	}
	if !claimed {
		log.Debug().Msg("tier already claimed elsewhere")
		return
	}

	info, err := n.patients.Info(ctx, dose.PatientID)
	if err != nil {
		log.Error().Err(err).Msg("cannot load patient")
		return
	}

	now := n.clock.Now()
	minutesLate := int(now.Sub(dose.ScheduledAt).Minutes())

	recipients, err := n.resolver.Resolve(ctx, dose.PatientID, tier, now, info.Location)
	if err != nil {
		log.Error().Err(err).Msg("cannot resolve recipients")
		return
	}
	if len(recipients) == 0 {
		log.Warn().Msg("no reachable recipients for tier")
	}

	data := map[string]string{
		"medication":     med.Name,
		"dose":           med.Dose,
		"patient_name":   info.FullName,
		"scheduled_time": dose.ScheduledAt.In(info.Location).Format("15:04"),
		"minutes_late":   fmt.Sprintf("%d", minutesLate),
		"minutes":        fmt.Sprintf("%d", med.ReminderBeforeMin),
	}
	title, body, err := n.templates.Render(tierTemplate(tier), data)
	if err != nil {
		log.Error().Err(err).Msg("cannot render template")
		return
	}

	for _, rcpt := range recipients {
		n.sink.Send(ctx, notification.Message{
			RecipientID: rcpt.UserID,
			Email:       rcpt.Email,
			Phone:       rcpt.Phone,
			PushTokens:  rcpt.PushTokens,
			Channels:    rcpt.Channels,
			Severity:    tierSeverity(tier),
			Type:        "medication",
			Title:       title,
			Body:        body,
			PatientID:   dose.PatientID,
			Metadata: map[string]string{
				"dose_id":       dose.ID.String(),
				"medication_id": med.ID.String(),
				"tier":          tier,
			},
		})
	}

	if tier == medication.TierCritical && med.Critical && n.auditor != nil {
		err := n.auditor.Record(ctx, "CRITICAL_MEDICATION_MISSED", uuid.Nil, dose.PatientID, map[string]interface{}{
			"dose_id":       dose.ID.String(),
			"medication_id": med.ID.String(),
			"medication":    med.Name,
			"scheduled_at":  dose.ScheduledAt.Format(time.RFC3339),
			"minutes_late":  minutesLate,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to write audit entry")
		}
	}

	log.Info().
		Str("medication", med.Name).
		Int("minutes_late", minutesLate).
		Int("recipients", len(recipients)).
		Msg("escalation tier fired")
}
