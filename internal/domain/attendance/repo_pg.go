package attendance

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

const shiftCols = `id, patient_id, caregiver_id, check_in_at, check_in_lat, check_in_lng,
	check_in_distance, photo_url, photo_taken_at, check_out_at, check_out_lat,
	check_out_lng, weight_kg, notes, created_at`

func scanShift(row pgx.Row) (*ShiftRecord, error) {
	var s ShiftRecord
	err := row.Scan(&s.ID, &s.PatientID, &s.CaregiverID, &s.CheckInAt, &s.CheckInLat,
		&s.CheckInLng, &s.CheckInDistance, &s.PhotoURL, &s.PhotoTakenAt, &s.CheckOutAt,
		&s.CheckOutLat, &s.CheckOutLng, &s.WeightKg, &s.Notes, &s.CreatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *ShiftRecord) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shift_record (id, patient_id, caregiver_id, check_in_at, check_in_lat,
			check_in_lng, check_in_distance, photo_url, photo_taken_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.PatientID, s.CaregiverID, s.CheckInAt, s.CheckInLat,
		s.CheckInLng, s.CheckInDistance, s.PhotoURL, s.PhotoTakenAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ShiftRecord, error) {
	return scanShift(r.pool.QueryRow(ctx, `SELECT `+shiftCols+` FROM shift_record WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *ShiftRecord) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE shift_record SET check_out_at=$2, check_out_lat=$3, check_out_lng=$4,
			weight_kg=$5, notes=$6
		WHERE id = $1`,
		s.ID, s.CheckOutAt, s.CheckOutLat, s.CheckOutLng, s.WeightKg, s.Notes)
	return err
}

func (r *repoPG) OpenShiftByCaregiver(ctx context.Context, caregiverID uuid.UUID) (*ShiftRecord, error) {
	return scanShift(r.pool.QueryRow(ctx, `
		SELECT `+shiftCols+` FROM shift_record
		WHERE caregiver_id = $1 AND check_out_at IS NULL
		ORDER BY check_in_at DESC LIMIT 1`, caregiverID))
}

func (r *repoPG) OpenShiftByPatient(ctx context.Context, patientID uuid.UUID) (*ShiftRecord, error) {
	return scanShift(r.pool.QueryRow(ctx, `
		SELECT `+shiftCols+` FROM shift_record
		WHERE patient_id = $1 AND check_out_at IS NULL
		ORDER BY check_in_at DESC LIMIT 1`, patientID))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ShiftRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shift_record WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+shiftCols+` FROM shift_record WHERE patient_id = $1
		ORDER BY check_in_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ShiftRecord
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}
