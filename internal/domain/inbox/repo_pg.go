package inbox

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const notifCols = `id, recipient_id, patient_id, type, severity, title, body,
	channels, delivered_channels, read_at, resolved_at, resolved_by, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.RecipientID, &n.PatientID, &n.Type, &n.Severity,
		&n.Title, &n.Body, &n.Channels, &n.DeliveredChannels, &n.ReadAt,
		&n.ResolvedAt, &n.ResolvedBy, &n.CreatedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_notification (id, recipient_id, patient_id, type, severity,
			title, body, channels, delivered_channels)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.RecipientID, n.PatientID, n.Type, n.Severity,
		n.Title, n.Body, n.Channels, n.DeliveredChannels)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return scanNotification(r.pool.QueryRow(ctx, `SELECT `+notifCols+` FROM inbox_notification WHERE id = $1`, id))
}

func (r *repoPG) ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	filter := ``
	if unreadOnly {
		filter = ` AND read_at IS NULL`
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM inbox_notification WHERE recipient_id = $1`+filter,
		recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+notifCols+` FROM inbox_notification WHERE recipient_id = $1`+filter+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, nil
}

func (r *repoPG) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE inbox_notification SET read_at = NOW()
		WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		id, recipientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkResolved(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE inbox_notification SET resolved_at = NOW(), resolved_by = $2
		WHERE id = $1 AND recipient_id = $2 AND resolved_at IS NULL`,
		id, recipientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE inbox_notification SET read_at = NOW()
		WHERE recipient_id = $1 AND read_at IS NULL`, recipientID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *repoPG) Stats(ctx context.Context, recipientID uuid.UUID) (*Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE read_at IS NULL)
		FROM inbox_notification WHERE recipient_id = $1`, recipientID).
		Scan(&s.Total, &s.Unread)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
