package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -- Mock Repositories --

type mockUserRepo struct {
	items map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{items: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	u.ID = uuid.New()
	m.items[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.items {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	m.items[u.ID] = u
	return nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if u, ok := m.items[id]; ok {
		u.IsActive = false
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.items {
		result = append(result, u)
	}
	return result, len(result), nil
}

func (m *mockUserRepo) ListByPatient(_ context.Context, patientID uuid.UUID, roles []Role) ([]*User, error) {
	roleSet := make(map[Role]bool)
	for _, r := range roles {
		roleSet[r] = true
	}
	var result []*User
	for _, u := range m.items {
		if u.PatientID != nil && *u.PatientID == patientID && u.IsActive && roleSet[u.Role] {
			result = append(result, u)
		}
	}
	return result, nil
}

type mockPrefsRepo struct {
	items map[uuid.UUID]*NotificationPreferences
}

func newMockPrefsRepo() *mockPrefsRepo {
	return &mockPrefsRepo{items: make(map[uuid.UUID]*NotificationPreferences)}
}

func (m *mockPrefsRepo) GetByUser(_ context.Context, userID uuid.UUID) (*NotificationPreferences, error) {
	p, ok := m.items[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockPrefsRepo) Upsert(_ context.Context, p *NotificationPreferences) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.items[p.UserID] = p
	return nil
}

type mockTokenRepo struct {
	items []*PushToken
}

func (m *mockTokenRepo) Register(_ context.Context, t *PushToken) error {
	t.ID = uuid.New()
	m.items = append(m.items, t)
	return nil
}

func (m *mockTokenRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*PushToken, error) {
	var result []*PushToken
	for _, t := range m.items {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockTokenRepo) Remove(_ context.Context, userID uuid.UUID, token string) error {
	kept := m.items[:0]
	for _, t := range m.items {
		if !(t.UserID == userID && t.Token == token) {
			kept = append(kept, t)
		}
	}
	m.items = kept
	return nil
}

func newTestService() (*Service, *mockUserRepo, *mockPrefsRepo, *mockTokenRepo) {
	users := newMockUserRepo()
	prefs := newMockPrefsRepo()
	tokens := &mockTokenRepo{}
	return NewService(users, prefs, tokens), users, prefs, tokens
}

func strPtr(s string) *string { return &s }

// -- Tests --

func TestCreateUser_Valid(t *testing.T) {
	svc, _, _, _ := newTestService()
	patientID := uuid.New()

	u := &User{
		Email:     "hija@example.com",
		FullName:  "Carla Morales",
		Role:      RoleOwner,
		PatientID: &patientID,
	}
	if err := svc.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if !u.IsActive {
		t.Error("new user should be active")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	patientID := uuid.New()

	cases := []struct {
		name string
		user User
	}{
		{"missing email", User{FullName: "X", Role: RoleOwner, PatientID: &patientID}},
		{"malformed email", User{Email: "nope", FullName: "X", Role: RoleOwner, PatientID: &patientID}},
		{"missing name", User{Email: "x@example.com", Role: RoleOwner, PatientID: &patientID}},
		{"bad role", User{Email: "x@example.com", FullName: "X", Role: "doctor", PatientID: &patientID}},
		{"family without patient", User{Email: "x@example.com", FullName: "X", Role: RoleObserver}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.CreateUser(context.Background(), &tc.user); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateUser_AdminNeedsNoPatient(t *testing.T) {
	svc, _, _, _ := newTestService()
	u := &User{Email: "ops@example.com", FullName: "Ops", Role: RoleAdmin}
	if err := svc.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
}

func TestListFamily_FiltersRolesAndActive(t *testing.T) {
	svc, users, _, _ := newTestService()
	patientID := uuid.New()

	owner := &User{Email: "o@example.com", FullName: "O", Role: RoleOwner, PatientID: &patientID, IsActive: true}
	observer := &User{Email: "b@example.com", FullName: "B", Role: RoleObserver, PatientID: &patientID, IsActive: true}
	caregiver := &User{Email: "c@example.com", FullName: "C", Role: RoleCaregiver, PatientID: &patientID, IsActive: true}
	inactive := &User{Email: "i@example.com", FullName: "I", Role: RoleObserver, PatientID: &patientID, IsActive: false}
	for _, u := range []*User{owner, observer, caregiver, inactive} {
		users.items[uuid.New()] = u
	}

	family, err := svc.ListFamily(context.Background(), patientID)
	if err != nil {
		t.Fatalf("ListFamily() error = %v", err)
	}
	if len(family) != 2 {
		t.Fatalf("expected 2 family members, got %d", len(family))
	}
	for _, u := range family {
		if u.Role == RoleCaregiver {
			t.Error("caregiver should not be listed as family")
		}
	}
}

func TestGetPreferences_DefaultsWhenMissing(t *testing.T) {
	svc, _, _, _ := newTestService()
	userID := uuid.New()

	p, err := svc.GetPreferences(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetPreferences() error = %v", err)
	}
	if !p.PushEnabled || !p.EmailEnabled {
		t.Error("defaults should enable push and email")
	}
	if p.SMSEnabled {
		t.Error("defaults should disable sms")
	}
	if !p.CriticalOverrideQuiet {
		t.Error("defaults should allow critical override of quiet hours")
	}
}

func TestUpdatePreferences_QuietHoursValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	userID := uuid.New()

	p := &NotificationPreferences{UserID: userID, QuietHoursStart: strPtr("22:00")}
	if err := svc.UpdatePreferences(context.Background(), p); err == nil {
		t.Error("expected error for start without end")
	}

	p = &NotificationPreferences{UserID: userID, QuietHoursStart: strPtr("25:00"), QuietHoursEnd: strPtr("07:00")}
	if err := svc.UpdatePreferences(context.Background(), p); err == nil {
		t.Error("expected error for invalid start time")
	}

	p = &NotificationPreferences{UserID: userID, QuietHoursStart: strPtr("22:00"), QuietHoursEnd: strPtr("07:00"), PushEnabled: true}
	if err := svc.UpdatePreferences(context.Background(), p); err != nil {
		t.Errorf("UpdatePreferences() error = %v", err)
	}
}

func TestRegisterDevice(t *testing.T) {
	svc, _, _, tokens := newTestService()
	userID := uuid.New()

	if err := svc.RegisterDevice(context.Background(), &PushToken{UserID: userID}); err == nil {
		t.Error("expected error for missing token")
	}
	if err := svc.RegisterDevice(context.Background(), &PushToken{UserID: userID, Token: "t", Platform: "blackberry"}); err == nil {
		t.Error("expected error for invalid platform")
	}
	if err := svc.RegisterDevice(context.Background(), &PushToken{UserID: userID, Token: "tok-1", Platform: "android"}); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if len(tokens.items) != 1 {
		t.Errorf("expected 1 registered token, got %d", len(tokens.items))
	}
}
