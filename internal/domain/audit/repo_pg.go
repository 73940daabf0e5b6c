package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var details []byte
	if err := row.Scan(&e.ID, &e.EventType, &e.ActorID, &e.PatientID, &details, &e.CreatedAt); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit details: %w", err)
		}
	}
	return &e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	var details []byte
	if e.Details != nil {
		var err error
		if details, err = json.Marshal(e.Details); err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, event_type, actor_id, patient_id, details)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.EventType, e.ActorID, e.PatientID, details)
	return err
}

func (r *repoPG) List(ctx context.Context, eventType string, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	where := ` WHERE ($1 = '' OR event_type = $1) AND ($2::uuid IS NULL OR patient_id = $2)`
	var pid *uuid.UUID
	if patientID != uuid.Nil {
		pid = &patientID
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+where, eventType, pid).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, actor_id, patient_id, details, created_at
		FROM audit_log`+where+`
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`, eventType, pid, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, nil
}
