package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/carewatch/carewatch/internal/domain/medication"
	"github.com/carewatch/carewatch/internal/platform/notification"
)

// -- Fake stores --

type fakeDoseStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*medication.DoseRecord
}

func newFakeDoseStore() *fakeDoseStore {
	return &fakeDoseStore{items: make(map[uuid.UUID]*medication.DoseRecord)}
}

func (s *fakeDoseStore) CreateIfAbsent(_ context.Context, d *medication.DoseRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.MedicationID == d.MedicationID && existing.ScheduledAt.Equal(d.ScheduledAt) {
			return false, nil
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = medication.DosePending
	}
	s.items[d.ID] = d
	return true, nil
}

func (s *fakeDoseStore) GetByID(_ context.Context, id uuid.UUID) (*medication.DoseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *d
	clone.TiersNotified = append([]string(nil), d.TiersNotified...)
	return &clone, nil
}

func (s *fakeDoseStore) MarkTierNotified(_ context.Context, id uuid.UUID, tier string, status medication.DoseStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.items[id]
	if !ok || d.GivenAt != nil || d.TierNotified(tier) {
		return false, nil
	}
	d.TiersNotified = append(d.TiersNotified, tier)
	d.Status = status
	return true, nil
}

func (s *fakeDoseStore) ListUngivenSince(_ context.Context, since time.Time) ([]*medication.DoseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*medication.DoseRecord
	for _, d := range s.items {
		if d.GivenAt == nil && !d.ScheduledAt.Before(since) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (s *fakeDoseStore) markGiven(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.items[id]; ok {
		d.Status = medication.DoseGiven
		d.GivenAt = &at
	}
}

func (s *fakeDoseStore) get(id uuid.UUID) *medication.DoseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.items[id]
	clone := *d
	clone.TiersNotified = append([]string(nil), d.TiersNotified...)
	return &clone
}

type fakeMedStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*medication.Medication
}

func newFakeMedStore() *fakeMedStore {
	return &fakeMedStore{items: make(map[uuid.UUID]*medication.Medication)}
}

func (s *fakeMedStore) add(m *medication.Medication) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.items[m.ID] = m
}

func (s *fakeMedStore) GetByID(_ context.Context, id uuid.UUID) (*medication.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return m, nil
}

func (s *fakeMedStore) ListActive(_ context.Context) ([]*medication.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*medication.Medication
	for _, m := range s.items {
		if m.IsActive {
			result = append(result, m)
		}
	}
	return result, nil
}

type fakePatients struct {
	name string
	loc  *time.Location
}

func (f *fakePatients) Info(_ context.Context, _ uuid.UUID) (*PatientInfo, error) {
	loc := f.loc
	if loc == nil {
		loc = time.UTC
	}
	return &PatientInfo{FullName: f.name, Location: loc}, nil
}

type fakeContacts struct {
	family    []Contact
	caregiver *Contact
}

func (f *fakeContacts) FamilyContacts(_ context.Context, _ uuid.UUID) ([]Contact, error) {
	return f.family, nil
}

func (f *fakeContacts) OnDutyCaregiver(_ context.Context, _ uuid.UUID) (*Contact, bool, error) {
	if f.caregiver == nil {
		return nil, false, nil
	}
	return f.caregiver, true, nil
}

type fakeSink struct {
	mu    sync.Mutex
	sends []notification.Message
}

func (f *fakeSink) Send(_ context.Context, msg notification.Message) []notification.ChannelResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, msg)
	results := make([]notification.ChannelResult, 0, len(msg.Channels))
	for _, ch := range msg.Channels {
		results = append(results, notification.ChannelResult{Channel: ch, Delivered: true})
	}
	return results
}

func (f *fakeSink) all() []notification.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notification.Message, len(f.sends))
	copy(out, f.sends)
	return out
}

type auditEvent struct {
	Type    string
	Details map[string]interface{}
}

type fakeAuditor struct {
	mu     sync.Mutex
	events []auditEvent
}

func (f *fakeAuditor) Record(_ context.Context, eventType string, _, _ uuid.UUID, details map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, auditEvent{Type: eventType, Details: details})
	return nil
}

func (f *fakeAuditor) all() []auditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]auditEvent, len(f.events))
	copy(out, f.events)
	return out
}

// -- Harness --

type harness struct {
	clock    *fakeClock
	doses    *fakeDoseStore
	meds     *fakeMedStore
	contacts *fakeContacts
	sink     *fakeSink
	auditor  *fakeAuditor
	notifier *Notifier
	engine   *Engine
}

func allOn() Preferences {
	return Preferences{PushEnabled: true, EmailEnabled: true, SMSEnabled: true, CriticalOverrideQuiet: true}
}

func newHarness(now time.Time) *harness {
	clock := newFakeClock(now)
	doses := newFakeDoseStore()
	meds := newFakeMedStore()
	contacts := &fakeContacts{
		family: []Contact{
			{UserID: uuid.New(), FullName: "Carla", Email: "carla@example.com", Prefs: allOn()},
			{UserID: uuid.New(), FullName: "Andres", Email: "andres@example.com", Prefs: allOn()},
		},
		caregiver: &Contact{UserID: uuid.New(), FullName: "Rosa", Email: "rosa@example.com", Prefs: allOn()},
	}
	sink := &fakeSink{}
	auditor := &fakeAuditor{}

	resolver := NewResolver(contacts, zerolog.Nop())
	notifier := NewNotifier(doses, meds, &fakePatients{name: "Elena"}, resolver, sink,
		notification.NewTemplateEngine(), auditor, clock, zerolog.Nop())
	engine := NewEngine(notifier, clock, zerolog.Nop())

	return &harness{
		clock:    clock,
		doses:    doses,
		meds:     meds,
		contacts: contacts,
		sink:     sink,
		auditor:  auditor,
		notifier: notifier,
		engine:   engine,
	}
}

// addMedication registers a medication and its dose occurrence at scheduledAt.
func (h *harness) addDose(med *medication.Medication, scheduledAt time.Time) *medication.DoseRecord {
	h.meds.add(med)
	dose := &medication.DoseRecord{
		MedicationID: med.ID,
		PatientID:    med.PatientID,
		ScheduledAt:  scheduledAt,
	}
	if _, err := h.doses.CreateIfAbsent(context.Background(), dose); err != nil {
		panic(err)
	}
	return dose
}

// waitFor polls cond for up to a second; the engine fires overdue tiers on a
// goroutine, so tests that arm late need to wait.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
