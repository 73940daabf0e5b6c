package attendance

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Plaza de Armas, Santiago.
const (
	homeLat = -33.4372
	homeLng = -70.6506
)

func TestHaversine(t *testing.T) {
	// Same point.
	if d := Haversine(homeLat, homeLng, homeLat, homeLng); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
	// Roughly 111m per 0.001 degrees of latitude.
	d := Haversine(homeLat, homeLng, homeLat+0.001, homeLng)
	if math.Abs(d-111) > 2 {
		t.Errorf("0.001 deg latitude = %.1fm, want ~111m", d)
	}
	// Santiago to Valparaiso is on the order of 100km.
	d = Haversine(homeLat, homeLng, -33.0472, -71.6127)
	if d < 90000 || d > 110000 {
		t.Errorf("Santiago-Valparaiso = %.0fm, want ~100km", d)
	}
}

// -- Mocks --

type mockShiftRepo struct {
	items map[uuid.UUID]*ShiftRecord
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{items: make(map[uuid.UUID]*ShiftRecord)}
}

func (m *mockShiftRepo) Create(_ context.Context, s *ShiftRecord) error {
	s.ID = uuid.New()
	m.items[s.ID] = s
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id uuid.UUID) (*ShiftRecord, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockShiftRepo) Update(_ context.Context, s *ShiftRecord) error {
	m.items[s.ID] = s
	return nil
}

func (m *mockShiftRepo) OpenShiftByCaregiver(_ context.Context, caregiverID uuid.UUID) (*ShiftRecord, error) {
	for _, s := range m.items {
		if s.CaregiverID == caregiverID && s.CheckOutAt == nil {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockShiftRepo) OpenShiftByPatient(_ context.Context, patientID uuid.UUID) (*ShiftRecord, error) {
	for _, s := range m.items {
		if s.PatientID == patientID && s.CheckOutAt == nil {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockShiftRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*ShiftRecord, int, error) {
	var result []*ShiftRecord
	for _, s := range m.items {
		if s.PatientID == patientID {
			result = append(result, s)
		}
	}
	return result, len(result), nil
}

type mockDirectory struct {
	home *HomeLocation
}

func (m *mockDirectory) HomeLocation(_ context.Context, _ uuid.UUID) (*HomeLocation, error) {
	if m.home == nil {
		return nil, errors.New("patient not found")
	}
	return m.home, nil
}

type mockAuditor struct {
	events []string
}

func (m *mockAuditor) Record(_ context.Context, eventType string, _, _ uuid.UUID, _ map[string]interface{}) error {
	m.events = append(m.events, eventType)
	return nil
}

func f64(v float64) *float64 { return &v }

func newTestService(home *HomeLocation) (*Service, *mockShiftRepo, *mockAuditor) {
	repo := newMockShiftRepo()
	auditor := &mockAuditor{}
	svc := NewService(repo, &mockDirectory{home: home}, auditor, zerolog.Nop())
	return svc, repo, auditor
}

func inRadiusHome() *HomeLocation {
	return &HomeLocation{FullName: "Elena", Lat: f64(homeLat), Lng: f64(homeLng), RadiusMeters: 30}
}

// -- Tests --

func TestCheckIn_InsideRadius(t *testing.T) {
	svc, _, auditor := newTestService(inRadiusHome())

	shift, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID:   uuid.New(),
		CaregiverID: uuid.New(),
		Lat:         homeLat + 0.0001, // ~11m away
		Lng:         homeLng,
	})
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if shift.CheckInDistance <= 0 || shift.CheckInDistance > 30 {
		t.Errorf("distance = %.1fm, want within radius", shift.CheckInDistance)
	}
	if len(auditor.events) != 0 {
		t.Errorf("unexpected audit events: %v", auditor.events)
	}
}

func TestCheckIn_OutsideRadius(t *testing.T) {
	svc, repo, auditor := newTestService(inRadiusHome())

	_, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID:   uuid.New(),
		CaregiverID: uuid.New(),
		Lat:         homeLat + 0.01, // ~1.1km away
		Lng:         homeLng,
	})
	if !errors.Is(err, ErrOutsideRadius) {
		t.Fatalf("error = %v, want ErrOutsideRadius", err)
	}
	if len(repo.items) != 0 {
		t.Error("no shift should be created on rejection")
	}
	if len(auditor.events) != 1 || auditor.events[0] != "CHECKIN_OUTSIDE_RADIUS" {
		t.Errorf("audit events = %v", auditor.events)
	}
}

func TestCheckIn_NoHomeCoordinatesSkipsRadiusCheck(t *testing.T) {
	svc, _, _ := newTestService(&HomeLocation{FullName: "Elena", RadiusMeters: 30})

	if _, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID:   uuid.New(),
		CaregiverID: uuid.New(),
		Lat:         10,
		Lng:         10,
	}); err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
}

func TestCheckIn_StalePhoto(t *testing.T) {
	svc, _, auditor := newTestService(inRadiusHome())
	now := time.Now()
	svc.now = func() time.Time { return now }
	stale := now.Add(-2 * time.Minute)

	_, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID:    uuid.New(),
		CaregiverID:  uuid.New(),
		Lat:          homeLat,
		Lng:          homeLng,
		PhotoTakenAt: &stale,
	})
	if !errors.Is(err, ErrStalePhoto) {
		t.Fatalf("error = %v, want ErrStalePhoto", err)
	}
	if len(auditor.events) != 1 || auditor.events[0] != "STALE_CHECKIN_PHOTO" {
		t.Errorf("audit events = %v", auditor.events)
	}
}

func TestCheckIn_FreshPhoto(t *testing.T) {
	svc, _, _ := newTestService(inRadiusHome())
	now := time.Now()
	svc.now = func() time.Time { return now }
	fresh := now.Add(-30 * time.Second)

	if _, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID:    uuid.New(),
		CaregiverID:  uuid.New(),
		Lat:          homeLat,
		Lng:          homeLng,
		PhotoTakenAt: &fresh,
	}); err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
}

func TestCheckIn_RejectsSecondOpenShift(t *testing.T) {
	svc, _, _ := newTestService(inRadiusHome())
	caregiverID := uuid.New()
	req := CheckInRequest{PatientID: uuid.New(), CaregiverID: caregiverID, Lat: homeLat, Lng: homeLng}

	if _, err := svc.CheckIn(context.Background(), req); err != nil {
		t.Fatalf("first CheckIn() error = %v", err)
	}
	if _, err := svc.CheckIn(context.Background(), req); !errors.Is(err, ErrShiftAlreadyOpen) {
		t.Fatalf("second check-in error = %v, want ErrShiftAlreadyOpen", err)
	}
}

func TestCheckOut(t *testing.T) {
	svc, _, _ := newTestService(inRadiusHome())
	caregiverID := uuid.New()
	patientID := uuid.New()

	if _, err := svc.CheckOut(context.Background(), CheckOutRequest{CaregiverID: caregiverID}); !errors.Is(err, ErrNoOpenShift) {
		t.Fatalf("check-out without shift error = %v, want ErrNoOpenShift", err)
	}

	if _, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID: patientID, CaregiverID: caregiverID, Lat: homeLat, Lng: homeLng,
	}); err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}

	shift, err := svc.CheckOut(context.Background(), CheckOutRequest{CaregiverID: caregiverID, WeightKg: f64(62.5)})
	if err != nil {
		t.Fatalf("CheckOut() error = %v", err)
	}
	if shift.CheckOutAt == nil {
		t.Error("CheckOutAt should be set")
	}
	if shift.WeightKg == nil || *shift.WeightKg != 62.5 {
		t.Error("weight should be recorded")
	}

	// Shift is closed now.
	if _, _, err := svc.OnDutyCaregiver(context.Background(), patientID); err != nil {
		t.Fatalf("OnDutyCaregiver() error = %v", err)
	}
}

func TestOnDutyCaregiver(t *testing.T) {
	svc, _, _ := newTestService(inRadiusHome())
	caregiverID := uuid.New()
	patientID := uuid.New()

	_, onDuty, err := svc.OnDutyCaregiver(context.Background(), patientID)
	if err != nil {
		t.Fatalf("OnDutyCaregiver() error = %v", err)
	}
	if onDuty {
		t.Error("nobody should be on duty yet")
	}

	if _, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID: patientID, CaregiverID: caregiverID, Lat: homeLat, Lng: homeLng,
	}); err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}

	got, onDuty, err := svc.OnDutyCaregiver(context.Background(), patientID)
	if err != nil {
		t.Fatalf("OnDutyCaregiver() error = %v", err)
	}
	if !onDuty || got != caregiverID {
		t.Errorf("OnDutyCaregiver() = %v, %v; want %v, true", got, onDuty, caregiverID)
	}
}

type recordingAnnouncer struct {
	events []string
	data   []map[string]string
}

func (r *recordingAnnouncer) Announce(_ context.Context, _ uuid.UUID, event string, data map[string]string) {
	r.events = append(r.events, event)
	r.data = append(r.data, data)
}

func TestShiftEvents_AnnounceToFamily(t *testing.T) {
	svc, _, _ := newTestService(inRadiusHome())
	announcer := &recordingAnnouncer{}
	svc.SetAnnouncer(announcer)
	caregiverID := uuid.New()
	patientID := uuid.New()

	if _, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID: patientID, CaregiverID: caregiverID, Lat: homeLat, Lng: homeLng,
	}); err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if _, err := svc.CheckOut(context.Background(), CheckOutRequest{CaregiverID: caregiverID, WeightKg: f64(62.5)}); err != nil {
		t.Fatalf("CheckOut() error = %v", err)
	}

	want := []string{"caregiver-checked-in", "caregiver-checked-out"}
	if len(announcer.events) != 2 || announcer.events[0] != want[0] || announcer.events[1] != want[1] {
		t.Fatalf("events = %v, want %v", announcer.events, want)
	}
	if announcer.data[1]["weight"] != "62.5 kg" {
		t.Errorf("check-out weight = %q, want \"62.5 kg\"", announcer.data[1]["weight"])
	}
}

func TestCheckIn_OutsideRadiusAnnounces(t *testing.T) {
	svc, _, _ := newTestService(inRadiusHome())
	announcer := &recordingAnnouncer{}
	svc.SetAnnouncer(announcer)

	_, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID:   uuid.New(),
		CaregiverID: uuid.New(),
		Lat:         homeLat + 0.01,
		Lng:         homeLng,
	})
	if !errors.Is(err, ErrOutsideRadius) {
		t.Fatalf("error = %v, want ErrOutsideRadius", err)
	}
	if len(announcer.events) != 1 || announcer.events[0] != "checkin-outside-radius" {
		t.Fatalf("events = %v, want one checkin-outside-radius", announcer.events)
	}
	if announcer.data[0]["max_radius"] != "30" {
		t.Errorf("max_radius = %q, want \"30\"", announcer.data[0]["max_radius"])
	}
}

func TestCheckOut_ImplausibleWeight(t *testing.T) {
	svc, _, _ := newTestService(inRadiusHome())
	caregiverID := uuid.New()

	if _, err := svc.CheckIn(context.Background(), CheckInRequest{
		PatientID: uuid.New(), CaregiverID: caregiverID, Lat: homeLat, Lng: homeLng,
	}); err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if _, err := svc.CheckOut(context.Background(), CheckOutRequest{CaregiverID: caregiverID, WeightKg: f64(-1)}); err == nil {
		t.Error("expected error for negative weight")
	}
}
