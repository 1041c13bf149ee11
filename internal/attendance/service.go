package attendance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rollcall/internal/metrics"
)

// Service orchestrates check-ins: load prior record, run the state
// machine, persist, return the result.
//
// Consistency note: the read-compute-write sequence is not isolated
// against a concurrent check-in for the same (student, week) key. Two
// near-simultaneous check-ins race on the prior read and one increment
// may be lost; the document-level upsert keeps the stored record whole
// either way. This is accepted weak consistency, not corruption.
type Service struct {
	records  RecordStore
	students StudentDirectory
	machine  Machine
	log      *zap.Logger
}

// NewService builds a check-in service with the given re-check window.
func NewService(records RecordStore, students StudentDirectory, window time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		records:  records,
		students: students,
		machine:  NewMachine(window),
		log:      log,
	}
}

// CheckInResult is the outcome of one check-in event.
type CheckInResult struct {
	Record        Record `json:"record"`
	Message       string `json:"message"`
	IsInTimelock  bool   `json:"is_in_timelock"`
	TimelockCycle int    `json:"timelock_cycle"`
}

// CheckIn records a check-in event for (studentID, weekID) at now.
func (s *Service) CheckIn(ctx context.Context, studentID int64, weekID int, now time.Time) (CheckInResult, error) {
	if studentID <= 0 {
		metrics.CheckinsTotal.WithLabelValues("validation_error").Inc()
		return CheckInResult{}, Validationf("student_id must be a positive integer")
	}
	if weekID <= 0 {
		metrics.CheckinsTotal.WithLabelValues("validation_error").Inc()
		return CheckInResult{}, Validationf("week_id must be a positive integer")
	}

	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		metrics.CheckinsTotal.WithLabelValues("store_error").Inc()
		return CheckInResult{}, err
	}
	if !exists {
		metrics.CheckinsTotal.WithLabelValues("not_found").Inc()
		return CheckInResult{}, NotFoundf("student %d not found", studentID)
	}

	prior, err := s.records.Find(ctx, studentID, weekID)
	if err != nil {
		metrics.CheckinsTotal.WithLabelValues("store_error").Inc()
		return CheckInResult{}, err
	}

	rec, msg := s.machine.Next(prior, studentID, weekID, now)
	if err := s.records.Upsert(ctx, rec); err != nil {
		metrics.CheckinsTotal.WithLabelValues("store_error").Inc()
		return CheckInResult{}, err
	}

	metrics.CheckinsTotal.WithLabelValues("ok").Inc()
	if rec.InTimelock() {
		metrics.TimelocksOpenedTotal.Inc()
	} else if prior != nil && prior.InTimelock() {
		metrics.TimelocksClearedTotal.Inc()
	}

	s.log.Info("check-in recorded",
		zap.Int64("student_id", studentID),
		zap.Int("week_id", weekID),
		zap.Int("recheck_count", rec.RecheckCount),
		zap.Bool("in_timelock", rec.InTimelock()),
	)

	return CheckInResult{
		Record:        rec,
		Message:       msg,
		IsInTimelock:  rec.InTimelock(),
		TimelockCycle: rec.TimelockCycle(),
	}, nil
}

// RecheckStatus describes the derived timelock state of a record.
type RecheckStatus struct {
	HasRecord         bool    `json:"has_record"`
	RecheckCount      int     `json:"recheck_count"`
	IsInTimelock      bool    `json:"is_in_timelock"`
	MinutesRemaining  float64 `json:"minutes_remaining"`
	IsExpired         bool    `json:"is_expired"`
	AutoAbsentApplied bool    `json:"auto_absent_applied"`
}

// RecheckStatusAt reports the record's derived timelock fields as of now.
// An absent record yields HasRecord false, not an error.
func (s *Service) RecheckStatusAt(ctx context.Context, studentID int64, weekID int, now time.Time) (RecheckStatus, error) {
	if studentID <= 0 {
		return RecheckStatus{}, Validationf("student_id must be a positive integer")
	}
	if weekID <= 0 {
		return RecheckStatus{}, Validationf("week_id must be a positive integer")
	}

	rec, err := s.records.Find(ctx, studentID, weekID)
	if err != nil {
		return RecheckStatus{}, err
	}
	if rec == nil {
		return RecheckStatus{}, nil
	}

	st := RecheckStatus{
		HasRecord:         true,
		RecheckCount:      rec.RecheckCount,
		IsInTimelock:      rec.InTimelock(),
		AutoAbsentApplied: rec.AutoAbsentApplied,
	}
	if rec.Deadline != nil {
		if now.Before(*rec.Deadline) {
			st.MinutesRemaining = rec.Deadline.Sub(now).Minutes()
		} else {
			st.IsExpired = true
		}
	}
	return st, nil
}
