package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewatch/carewatch/internal/domain/medication"
	"github.com/carewatch/carewatch/internal/platform/notification"
)

func strPtr(s string) *string { return &s }

func day(hour, minute int) time.Time {
	return time.Date(2026, 8, 31, hour, minute, 0, 0, time.UTC)
}

func TestResolve_AlertGoesToOnDutyCaregiver(t *testing.T) {
	caregiver := Contact{UserID: uuid.New(), FullName: "Rosa", Prefs: allOn()}
	contacts := &fakeContacts{
		family:    []Contact{{UserID: uuid.New(), Prefs: allOn()}},
		caregiver: &caregiver,
	}
	r := NewResolver(contacts, zerolog.Nop())

	got, err := r.Resolve(context.Background(), uuid.New(), medication.TierAlert, day(10, 0), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 1 || got[0].UserID != caregiver.UserID {
		t.Errorf("alert recipients = %d, want only the caregiver", len(got))
	}
}

func TestResolve_AlertFallsBackToFamily(t *testing.T) {
	contacts := &fakeContacts{
		family: []Contact{
			{UserID: uuid.New(), Prefs: allOn()},
			{UserID: uuid.New(), Prefs: allOn()},
		},
	}
	r := NewResolver(contacts, zerolog.Nop())

	got, err := r.Resolve(context.Background(), uuid.New(), medication.TierAlert, day(10, 0), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("recipients with nobody on duty = %d, want whole family", len(got))
	}
}

func TestResolve_CriticalTargetsEveryone(t *testing.T) {
	caregiver := Contact{UserID: uuid.New(), Prefs: allOn()}
	contacts := &fakeContacts{
		family: []Contact{
			{UserID: uuid.New(), Prefs: allOn()},
			{UserID: uuid.New(), Prefs: allOn()},
		},
		caregiver: &caregiver,
	}
	r := NewResolver(contacts, zerolog.Nop())

	got, err := r.Resolve(context.Background(), uuid.New(), medication.TierCritical, day(10, 0), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("critical recipients = %d, want family plus caregiver", len(got))
	}
}

func TestResolve_ChannelsFollowPreferences(t *testing.T) {
	contacts := &fakeContacts{
		family: []Contact{{
			UserID: uuid.New(),
			Prefs:  Preferences{PushEnabled: true, EmailEnabled: false, SMSEnabled: true},
		}},
	}
	r := NewResolver(contacts, zerolog.Nop())

	got, err := r.Resolve(context.Background(), uuid.New(), medication.TierAlert, day(10, 0), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("recipients = %d, want 1", len(got))
	}
	want := []notification.Channel{notification.ChannelPush, notification.ChannelSMS}
	if len(got[0].Channels) != len(want) {
		t.Fatalf("channels = %v, want %v", got[0].Channels, want)
	}
	for i, ch := range want {
		if got[0].Channels[i] != ch {
			t.Errorf("channels = %v, want %v", got[0].Channels, want)
		}
	}
}

func TestResolve_QuietHoursSuppressNonCritical(t *testing.T) {
	prefs := Preferences{
		PushEnabled:     true,
		EmailEnabled:    true,
		QuietHoursStart: strPtr("22:00"),
		QuietHoursEnd:   strPtr("07:00"),
	}
	contacts := &fakeContacts{family: []Contact{{UserID: uuid.New(), Prefs: prefs}}}
	r := NewResolver(contacts, zerolog.Nop())

	// 23:30 is inside the wrapped window.
	got, err := r.Resolve(context.Background(), uuid.New(), medication.TierAlert, day(23, 30), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("recipients during quiet hours = %d, want 0", len(got))
	}

	// 10:00 is outside it.
	got, err = r.Resolve(context.Background(), uuid.New(), medication.TierAlert, day(10, 0), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("recipients outside quiet hours = %d, want 1", len(got))
	}
}

func TestResolve_CriticalOverridesQuietHours(t *testing.T) {
	withOverride := Preferences{
		PushEnabled:           true,
		QuietHoursStart:       strPtr("22:00"),
		QuietHoursEnd:         strPtr("07:00"),
		CriticalOverrideQuiet: true,
	}
	withoutOverride := withOverride
	withoutOverride.CriticalOverrideQuiet = false

	contacts := &fakeContacts{family: []Contact{
		{UserID: uuid.New(), FullName: "override", Prefs: withOverride},
		{UserID: uuid.New(), FullName: "sleeper", Prefs: withoutOverride},
	}}
	r := NewResolver(contacts, zerolog.Nop())

	got, err := r.Resolve(context.Background(), uuid.New(), medication.TierCritical, day(23, 30), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 1 || got[0].FullName != "override" {
		t.Errorf("recipients = %v, want only the contact with the critical override", got)
	}
}

// The override is keyed on the escalation tier, not on the medication. An
// alert-tier escalation stays suppressed during quiet hours even for a
// contact who opted into the critical override.
func TestResolve_OverrideAppliesToCriticalTierOnly(t *testing.T) {
	prefs := Preferences{
		PushEnabled:           true,
		QuietHoursStart:       strPtr("22:00"),
		QuietHoursEnd:         strPtr("07:00"),
		CriticalOverrideQuiet: true,
	}
	contacts := &fakeContacts{family: []Contact{{UserID: uuid.New(), Prefs: prefs}}}
	r := NewResolver(contacts, zerolog.Nop())

	got, err := r.Resolve(context.Background(), uuid.New(), medication.TierAlert, day(23, 30), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("alert-tier recipients during quiet hours = %d, want 0", len(got))
	}
	got, err = r.Resolve(context.Background(), uuid.New(), medication.TierCritical, day(23, 30), time.UTC)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("critical-tier recipients during quiet hours = %d, want 1", len(got))
	}
}

func TestInQuietHours(t *testing.T) {
	wrap := Preferences{QuietHoursStart: strPtr("22:00"), QuietHoursEnd: strPtr("07:00")}
	plain := Preferences{QuietHoursStart: strPtr("13:00"), QuietHoursEnd: strPtr("15:00")}
	none := Preferences{}

	cases := []struct {
		name  string
		prefs Preferences
		at    time.Time
		want  bool
	}{
		{"wrap late evening", wrap, day(23, 0), true},
		{"wrap early morning", wrap, day(6, 59), true},
		{"wrap boundary end", wrap, day(7, 0), false},
		{"wrap midday", wrap, day(12, 0), false},
		{"plain inside", plain, day(14, 0), true},
		{"plain outside", plain, day(16, 0), false},
		{"no window", none, day(3, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := inQuietHours(tc.prefs, tc.at, time.UTC); got != tc.want {
				t.Errorf("inQuietHours(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}
