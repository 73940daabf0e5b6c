// Package notification is the outbound delivery layer: it fans a message out
// to a recipient's enabled channels (push, email, SMS), renders templates,
// and reports per-channel results without ever failing the caller.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Channel is a delivery transport for a notification.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Severity classifies a notification for display and channel selection.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Message is one outbound notification addressed to a single recipient,
// to be delivered over every channel listed.
type Message struct {
	RecipientID uuid.UUID
	Email       string
	Phone       string
	PushTokens  []string
	Channels    []Channel
	Severity    Severity
	Type        string
	Title       string
	Body        string
	PatientID   uuid.UUID
	Metadata    map[string]string
}

// ChannelResult reports the outcome of one channel delivery attempt.
type ChannelResult struct {
	Channel   Channel `json:"channel"`
	Delivered bool    `json:"delivered"`
	Error     string  `json:"error,omitempty"`
}

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// PushSender is the interface for sending push notifications.
type PushSender interface {
	SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// DeliveryRecorder persists the outcome of a dispatched message, typically
// into the recipient's in-app notification feed.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, msg Message, results []ChannelResult) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable notification template.
type Template struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Severity Severity `json:"severity"`
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:       "medication-reminder",
			Name:     "Medication Reminder",
			Title:    "Reminder: {{medication}} in {{minutes}} minutes",
			Body:     "Prepare {{medication}} ({{dose}}) for {{patient_name}}, scheduled at {{scheduled_time}}.",
			Severity: SeverityInfo,
		},
		{
			ID:       "medication-late",
			Name:     "Medication Late",
			Title:    "Medication overdue: {{medication}}",
			Body:     "{{medication}} for {{patient_name}} was due {{minutes_late}} minutes ago (scheduled {{scheduled_time}}).",
			Severity: SeverityWarning,
		},
		{
			ID:       "medication-critical-missed",
			Name:     "Medication Critical Missed",
			Title:    "URGENT: {{medication}} NOT administered",
			Body:     "{{medication}} for {{patient_name}} has gone {{minutes_late}} minutes without being administered. Immediate attention required.",
			Severity: SeverityCritical,
		},
		{
			ID:       "medication-given",
			Name:     "Medication Given",
			Title:    "Medication administered",
			Body:     "{{medication}} ({{dose}}) was administered to {{patient_name}}.",
			Severity: SeverityInfo,
		},
		{
			ID:       "caregiver-checked-in",
			Name:     "Caregiver Checked In",
			Title:    "Caregiver arrived",
			Body:     "The caregiver checked in {{distance}}m from {{patient_name}}'s home.",
			Severity: SeverityInfo,
		},
		{
			ID:       "caregiver-checked-out",
			Name:     "Caregiver Checked Out",
			Title:    "Caregiver left",
			Body:     "Shift completed for {{patient_name}}. Weight: {{weight}}.",
			Severity: SeverityInfo,
		},
		{
			ID:       "checkin-outside-radius",
			Name:     "Check-in Outside Radius",
			Title:    "Check-in attempt from outside the home radius",
			Body:     "A caregiver tried to check in {{distance}}m from {{patient_name}}'s home (maximum {{max_radius}}m).",
			Severity: SeverityCritical,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (title, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	title = t.Title
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		title = strings.ReplaceAll(title, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return title, body, nil
}

// Severity returns the severity a template was registered with.
func (e *TemplateEngine) Severity(templateID string) (Severity, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[templateID]
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}
	return t.Severity, nil
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

// Dispatcher fans a Message out over its channels. A channel failure is
// recorded and logged; it never aborts the remaining channels and never
// surfaces as an error to the caller.
type Dispatcher struct {
	email    EmailSender
	sms      SMSSender
	push     PushSender
	recorder DeliveryRecorder
	logger   zerolog.Logger
}

// NewDispatcher constructs a Dispatcher. recorder may be nil when no feed
// persistence is wanted (tests).
func NewDispatcher(email EmailSender, sms SMSSender, push PushSender, recorder DeliveryRecorder, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		email:    email,
		sms:      sms,
		push:     push,
		recorder: recorder,
		logger:   logger,
	}
}

// Send delivers msg over each of its channels and returns the per-channel
// outcomes.
func (d *Dispatcher) Send(ctx context.Context, msg Message) []ChannelResult {
	results := make([]ChannelResult, 0, len(msg.Channels))

	for _, ch := range msg.Channels {
		var err error
		switch ch {
		case ChannelEmail:
			if msg.Email == "" {
				err = fmt.Errorf("recipient has no email address")
			} else {
				err = d.email.SendEmail(ctx, msg.Email, msg.Title, msg.Body)
			}
		case ChannelSMS:
			if msg.Phone == "" {
				err = fmt.Errorf("recipient has no phone number")
			} else {
				err = d.sms.SendSMS(ctx, msg.Phone, msg.Title+": "+msg.Body)
			}
		case ChannelPush:
			if len(msg.PushTokens) == 0 {
				err = fmt.Errorf("recipient has no push tokens")
			} else {
				err = d.push.SendPush(ctx, msg.PushTokens, msg.Title, msg.Body, msg.Metadata)
			}
		default:
			err = fmt.Errorf("unsupported channel: %s", ch)
		}

		result := ChannelResult{Channel: ch, Delivered: err == nil}
		if err != nil {
			result.Error = err.Error()
			d.logger.Warn().
				Err(err).
				Str("channel", string(ch)).
				Str("recipient", msg.RecipientID.String()).
				Str("type", msg.Type).
				Msg("notification delivery failed")
		}
		results = append(results, result)
	}

	if d.recorder != nil {
		if err := d.recorder.RecordDelivery(ctx, msg, results); err != nil {
			d.logger.Warn().Err(err).
				Str("recipient", msg.RecipientID.String()).
				Msg("failed to record notification delivery")
		}
	}

	return results
}
