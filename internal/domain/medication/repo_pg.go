package medication

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Medication Repository ===========

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const medCols = `id, patient_id, name, dose, instructions, schedule_times, critical,
	reminder_before_minutes, alert_after_minutes, escalate_after_minutes,
	is_active, created_at, updated_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.PatientID, &m.Name, &m.Dose, &m.Instructions,
		&m.ScheduleTimes, &m.Critical, &m.ReminderBeforeMin, &m.AlertAfterMinutes,
		&m.EscalateAfterMinutes, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medication (id, patient_id, name, dose, instructions, schedule_times,
			critical, reminder_before_minutes, alert_after_minutes, escalate_after_minutes, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		m.ID, m.PatientID, m.Name, m.Dose, m.Instructions, m.ScheduleTimes,
		m.Critical, m.ReminderBeforeMin, m.AlertAfterMinutes, m.EscalateAfterMinutes, m.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMedication(r.pool.QueryRow(ctx, `SELECT `+medCols+` FROM medication WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE medication SET name=$2, dose=$3, instructions=$4, schedule_times=$5,
			critical=$6, reminder_before_minutes=$7, alert_after_minutes=$8,
			escalate_after_minutes=$9, is_active=$10, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Dose, m.Instructions, m.ScheduleTimes,
		m.Critical, m.ReminderBeforeMin, m.AlertAfterMinutes,
		m.EscalateAfterMinutes, m.IsActive)
	return err
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE medication SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medication WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+medCols+` FROM medication WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Medication, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+medCols+` FROM medication WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, nil
}

// =========== Dose Repository ===========

type doseRepoPG struct{ pool *pgxpool.Pool }

func NewDoseRepoPG(pool *pgxpool.Pool) DoseRepository {
	return &doseRepoPG{pool: pool}
}

const doseCols = `id, medication_id, patient_id, scheduled_at, status, given_at, given_by,
	photo_hash, photo_taken_at, tiers_notified, notes, created_at, updated_at`

func scanDose(row pgx.Row) (*DoseRecord, error) {
	var d DoseRecord
	err := row.Scan(&d.ID, &d.MedicationID, &d.PatientID, &d.ScheduledAt, &d.Status,
		&d.GivenAt, &d.GivenBy, &d.PhotoHash, &d.PhotoTakenAt, &d.TiersNotified,
		&d.Notes, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *doseRepoPG) CreateIfAbsent(ctx context.Context, d *DoseRecord) (bool, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DosePending
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO dose_record (id, medication_id, patient_id, scheduled_at, status, tiers_notified)
		VALUES ($1,$2,$3,$4,$5,'{}')
		ON CONFLICT (medication_id, scheduled_at) DO NOTHING`,
		d.ID, d.MedicationID, d.PatientID, d.ScheduledAt, d.Status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *doseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoseRecord, error) {
	return scanDose(r.pool.QueryRow(ctx, `SELECT `+doseCols+` FROM dose_record WHERE id = $1`, id))
}

func (r *doseRepoPG) GetBySchedule(ctx context.Context, medicationID uuid.UUID, scheduledAt time.Time) (*DoseRecord, error) {
	return scanDose(r.pool.QueryRow(ctx, `
		SELECT `+doseCols+` FROM dose_record
		WHERE medication_id = $1 AND scheduled_at = $2`, medicationID, scheduledAt))
}

func (r *doseRepoPG) MarkGiven(ctx context.Context, id uuid.UUID, givenBy uuid.UUID, at time.Time, ev Evidence) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dose_record SET status = $4, given_at = $2, given_by = $3,
			photo_hash = $5, photo_taken_at = $6, updated_at = NOW()
		WHERE id = $1 AND given_at IS NULL`,
		id, at, givenBy, DoseGiven, ev.PhotoHash, ev.PhotoTakenAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *doseRepoPG) MarkTierNotified(ctx context.Context, id uuid.UUID, tier string, status DoseStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dose_record SET tiers_notified = array_append(tiers_notified, $2),
			status = $3, updated_at = NOW()
		WHERE id = $1 AND given_at IS NULL AND NOT (tiers_notified @> ARRAY[$2])`,
		id, tier, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *doseRepoPG) ListUngivenSince(ctx context.Context, since time.Time) ([]*DoseRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doseCols+` FROM dose_record
		WHERE given_at IS NULL AND scheduled_at >= $1
		ORDER BY scheduled_at`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoseRecord
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

func (r *doseRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]*DoseRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM dose_record
		WHERE patient_id = $1 AND scheduled_at BETWEEN $2 AND $3`,
		patientID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+doseCols+` FROM dose_record
		WHERE patient_id = $1 AND scheduled_at BETWEEN $2 AND $3
		ORDER BY scheduled_at DESC LIMIT $4 OFFSET $5`,
		patientID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DoseRecord
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}
