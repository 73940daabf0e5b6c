package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// PhotoFreshness bounds how old (or how far in the future) a check-in photo
// timestamp may be. Photos outside the window indicate a reused image.
const PhotoFreshness = 60 * time.Second

var (
	ErrOutsideRadius    = errors.New("check-in location is outside the allowed radius")
	ErrStalePhoto       = errors.New("check-in photo is not fresh")
	ErrShiftAlreadyOpen = errors.New("caregiver already has an open shift")
	ErrNoOpenShift      = errors.New("no open shift for caregiver")
)

// HomeLocation is the part of a patient the check-in validation needs.
type HomeLocation struct {
	FullName     string
	Lat          *float64
	Lng          *float64
	RadiusMeters float64
}

// PatientDirectory resolves a patient's home location.
type PatientDirectory interface {
	HomeLocation(ctx context.Context, patientID uuid.UUID) (*HomeLocation, error)
}

// Auditor records security-relevant events. Failures must not block the shift
// operation itself.
type Auditor interface {
	Record(ctx context.Context, eventType string, actorID, patientID uuid.UUID, details map[string]interface{}) error
}

// Announcer delivers informational family notifications for shift events. A
// nil announcer is valid when no notification pipeline is wired.
type Announcer interface {
	Announce(ctx context.Context, patientID uuid.UUID, event string, data map[string]string)
}

type Service struct {
	shifts    Repository
	patients  PatientDirectory
	auditor   Auditor
	announcer Announcer
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(shifts Repository, patients PatientDirectory, auditor Auditor, logger zerolog.Logger) *Service {
	return &Service{
		shifts:   shifts,
		patients: patients,
		auditor:  auditor,
		logger:   logger,
		now:      time.Now,
	}
}

// SetAnnouncer wires the family notification pipeline.
func (s *Service) SetAnnouncer(a Announcer) {
	s.announcer = a
}

func (s *Service) announce(ctx context.Context, patientID uuid.UUID, event string, data map[string]string) {
	if s.announcer == nil {
		return
	}
	s.announcer.Announce(ctx, patientID, event, data)
}

// CheckIn opens a shift after validating the caregiver's GPS position against
// the patient's home radius and the proof photo's freshness. Violations are
// written to the audit log before the request is rejected.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*ShiftRecord, error) {
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.CaregiverID == uuid.Nil {
		return nil, fmt.Errorf("caregiver_id is required")
	}
	if req.Lat == 0 && req.Lng == 0 {
		return nil, fmt.Errorf("gps coordinates are required")
	}

	if _, err := s.shifts.OpenShiftByCaregiver(ctx, req.CaregiverID); err == nil {
		return nil, ErrShiftAlreadyOpen
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	now := s.now()

	if req.PhotoTakenAt != nil {
		delta := now.Sub(*req.PhotoTakenAt)
		if delta < 0 {
			delta = -delta
		}
		if delta > PhotoFreshness {
			s.audit(ctx, "STALE_CHECKIN_PHOTO", req.CaregiverID, req.PatientID, map[string]interface{}{
				"photo_taken_at": req.PhotoTakenAt.Format(time.RFC3339),
				"age_seconds":    int(delta.Seconds()),
			})
			return nil, ErrStalePhoto
		}
	}

	home, err := s.patients.HomeLocation(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	var distance float64
	if home.Lat != nil && home.Lng != nil {
		distance = Haversine(req.Lat, req.Lng, *home.Lat, *home.Lng)
		if distance > home.RadiusMeters {
			s.audit(ctx, "CHECKIN_OUTSIDE_RADIUS", req.CaregiverID, req.PatientID, map[string]interface{}{
				"distance_meters": int(distance),
				"max_radius":      int(home.RadiusMeters),
			})
			s.announce(ctx, req.PatientID, "checkin-outside-radius", map[string]string{
				"distance":   fmt.Sprintf("%.0f", distance),
				"max_radius": fmt.Sprintf("%.0f", home.RadiusMeters),
			})
			return nil, fmt.Errorf("%w: %.0fm from home (max %.0fm)", ErrOutsideRadius, distance, home.RadiusMeters)
		}
	}

	shift := &ShiftRecord{
		PatientID:       req.PatientID,
		CaregiverID:     req.CaregiverID,
		CheckInAt:       now,
		CheckInLat:      req.Lat,
		CheckInLng:      req.Lng,
		CheckInDistance: distance,
		PhotoURL:        req.PhotoURL,
		PhotoTakenAt:    req.PhotoTakenAt,
	}
	if err := s.shifts.Create(ctx, shift); err != nil {
		return nil, err
	}
	s.announce(ctx, req.PatientID, "caregiver-checked-in", map[string]string{
		"distance": fmt.Sprintf("%.0f", distance),
	})

	s.logger.Info().
		Str("caregiver", req.CaregiverID.String()).
		Str("patient", req.PatientID.String()).
		Float64("distance_m", distance).
		Msg("caregiver checked in")
	return shift, nil
}

// CheckOut closes the caregiver's open shift.
func (s *Service) CheckOut(ctx context.Context, req CheckOutRequest) (*ShiftRecord, error) {
	if req.CaregiverID == uuid.Nil {
		return nil, fmt.Errorf("caregiver_id is required")
	}
	shift, err := s.shifts.OpenShiftByCaregiver(ctx, req.CaregiverID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOpenShift
	}
	if err != nil {
		return nil, err
	}
	if req.WeightKg != nil && (*req.WeightKg <= 0 || *req.WeightKg > 500) {
		return nil, fmt.Errorf("implausible weight: %.1f", *req.WeightKg)
	}

	now := s.now()
	shift.CheckOutAt = &now
	shift.CheckOutLat = req.Lat
	shift.CheckOutLng = req.Lng
	shift.WeightKg = req.WeightKg
	shift.Notes = req.Notes
	if err := s.shifts.Update(ctx, shift); err != nil {
		return nil, err
	}
	weight := "not recorded"
	if req.WeightKg != nil {
		weight = fmt.Sprintf("%.1f kg", *req.WeightKg)
	}
	s.announce(ctx, shift.PatientID, "caregiver-checked-out", map[string]string{
		"weight": weight,
	})

	s.logger.Info().
		Str("caregiver", req.CaregiverID.String()).
		Str("patient", shift.PatientID.String()).
		Msg("caregiver checked out")
	return shift, nil
}

// OnDutyCaregiver returns the caregiver with an open shift for the patient,
// or false when nobody is on duty.
func (s *Service) OnDutyCaregiver(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error) {
	shift, err := s.shifts.OpenShiftByPatient(ctx, patientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return shift.CaregiverID, true, nil
}

func (s *Service) GetShift(ctx context.Context, id uuid.UUID) (*ShiftRecord, error) {
	return s.shifts.GetByID(ctx, id)
}

func (s *Service) ListShifts(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ShiftRecord, int, error) {
	return s.shifts.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) audit(ctx context.Context, eventType string, actorID, patientID uuid.UUID, details map[string]interface{}) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, eventType, actorID, patientID, details); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to write audit entry")
	}
}
