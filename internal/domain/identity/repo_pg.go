package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userCols = `id, email, phone, full_name, role, patient_id, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.FullName, &u.Role,
		&u.PatientID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO app_user (id, email, phone, full_name, role, patient_id, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.Phone, u.FullName, u.Role, u.PatientID, u.IsActive)
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE email = $1`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE app_user SET email=$2, phone=$3, full_name=$4, role=$5, patient_id=$6,
			is_active=$7, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.Phone, u.FullName, u.Role, u.PatientID, u.IsActive)
	return err
}

func (r *userRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE app_user SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM app_user`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM app_user ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

func (r *userRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, roles []Role) ([]*User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userCols+` FROM app_user
		WHERE patient_id = $1 AND is_active AND role = ANY($2)
		ORDER BY created_at`,
		patientID, rolesToStrings(roles))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, nil
}

func rolesToStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// =========== Preferences Repository ===========

type preferencesRepoPG struct{ pool *pgxpool.Pool }

func NewPreferencesRepoPG(pool *pgxpool.Pool) PreferencesRepository {
	return &preferencesRepoPG{pool: pool}
}

const prefCols = `id, user_id, push_enabled, email_enabled, sms_enabled,
	quiet_hours_start, quiet_hours_end, critical_override_quiet, updated_at`

func (r *preferencesRepoPG) GetByUser(ctx context.Context, userID uuid.UUID) (*NotificationPreferences, error) {
	var p NotificationPreferences
	err := r.pool.QueryRow(ctx, `SELECT `+prefCols+` FROM notification_preferences WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.PushEnabled, &p.EmailEnabled, &p.SMSEnabled,
			&p.QuietHoursStart, &p.QuietHoursEnd, &p.CriticalOverrideQuiet, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *preferencesRepoPG) Upsert(ctx context.Context, p *NotificationPreferences) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_preferences (id, user_id, push_enabled, email_enabled, sms_enabled,
			quiet_hours_start, quiet_hours_end, critical_override_quiet)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (user_id) DO UPDATE SET
			push_enabled = EXCLUDED.push_enabled,
			email_enabled = EXCLUDED.email_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			critical_override_quiet = EXCLUDED.critical_override_quiet,
			updated_at = NOW()`,
		p.ID, p.UserID, p.PushEnabled, p.EmailEnabled, p.SMSEnabled,
		p.QuietHoursStart, p.QuietHoursEnd, p.CriticalOverrideQuiet)
	return err
}

// =========== Push Token Repository ===========

type pushTokenRepoPG struct{ pool *pgxpool.Pool }

func NewPushTokenRepoPG(pool *pgxpool.Pool) PushTokenRepository {
	return &pushTokenRepoPG{pool: pool}
}

func (r *pushTokenRepoPG) Register(ctx context.Context, t *PushToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO push_token (id, user_id, token, platform)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, token) DO UPDATE SET
			platform = EXCLUDED.platform,
			last_seen = NOW()`,
		t.ID, t.UserID, t.Token, t.Platform)
	return err
}

func (r *pushTokenRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*PushToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, token, platform, created_at, last_seen
		FROM push_token WHERE user_id = $1 ORDER BY last_seen DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PushToken
	for rows.Next() {
		var t PushToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt, &t.LastSeen); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, nil
}

func (r *pushTokenRepoPG) Remove(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_token WHERE user_id = $1 AND token = $2`, userID, token)
	return err
}
