package inbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carewatch/carewatch/internal/platform/notification"
)

// Service persists delivered notifications and serves the recipient feed. It
// implements notification.DeliveryRecorder so every dispatched message lands
// in the feed regardless of channel outcomes.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordDelivery stores a dispatched message with its per-channel outcomes.
func (s *Service) RecordDelivery(ctx context.Context, msg notification.Message, results []notification.ChannelResult) error {
	if msg.RecipientID == uuid.Nil {
		return fmt.Errorf("recipient_id is required")
	}
	n := &Notification{
		RecipientID: msg.RecipientID,
		Type:        msg.Type,
		Severity:    string(msg.Severity),
		Title:       msg.Title,
		Body:        msg.Body,
	}
	if msg.PatientID != uuid.Nil {
		pid := msg.PatientID
		n.PatientID = &pid
	}
	for _, r := range results {
		n.Channels = append(n.Channels, string(r.Channel))
		if r.Delivered {
			n.DeliveredChannels = append(n.DeliveredChannels, string(r.Channel))
		}
	}
	return s.repo.Create(ctx, n)
}

func (s *Service) GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListNotifications(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByRecipient(ctx, recipientID, unreadOnly, limit, offset)
}

// MarkRead flags one notification as read. Reports false when the
// notification does not exist, belongs to someone else, or was already read.
func (s *Service) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	return s.repo.MarkRead(ctx, id, recipientID)
}

// MarkResolved closes out an alert so other family members can see someone
// took care of it. First resolver wins; later attempts report false.
func (s *Service) MarkResolved(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	return s.repo.MarkResolved(ctx, id, recipientID)
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}

func (s *Service) Stats(ctx context.Context, recipientID uuid.UUID) (*Stats, error) {
	return s.repo.Stats(ctx, recipientID)
}
