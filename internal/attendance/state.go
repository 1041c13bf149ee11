package attendance

import (
	"fmt"
	"time"
)

// Machine computes the next record state for a check-in. It is pure: the
// caller supplies the prior record and the current time, so behaviour is
// fully deterministic under test.
//
// States are identified by recheck_count parity. The first check-in is
// free of time pressure. Every even-numbered check-in opens a timelock
// window of Window duration; the following odd-numbered check-in clears
// it. A check-in while a window is open, expired or not, is processed
// like any other: the count increments and the deadline follows parity.
type Machine struct {
	Window time.Duration
}

// NewMachine builds a state machine with the given re-check window.
func NewMachine(window time.Duration) Machine {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return Machine{Window: window}
}

// Next returns the record after a check-in at now, plus a human-readable
// transition message. prior is nil on the first check-in for the key.
func (m Machine) Next(prior *Record, studentID int64, weekID int, now time.Time) (Record, string) {
	if prior == nil {
		rec := Record{
			StudentID:      studentID,
			WeekID:         weekID,
			Status:         StatusPresent,
			RecheckCount:   1,
			FirstCheckTime: now,
			LastUpdated:    now,
		}
		msg := "first check-in, no time limit"
		rec.Notes = appendNote("", now, msg)
		return rec, msg
	}

	count := prior.RecheckCount + 1
	last := now
	rec := Record{
		StudentID:      prior.StudentID,
		WeekID:         prior.WeekID,
		Status:         StatusPresent,
		RecheckCount:   count,
		FirstCheckTime: prior.FirstCheckTime,
		LastCheckTime:  &last,
		LastUpdated:    now,
		Notes:          prior.Notes,
	}

	var msg string
	if count%2 == 0 {
		deadline := now.Add(m.Window)
		rec.Deadline = &deadline
		msg = fmt.Sprintf("re-check #%d: must re-check within %d minutes", count, int(m.Window.Minutes()))
	} else {
		msg = fmt.Sprintf("re-check #%d: time limit cleared", count)
	}

	// A fresh check-in always supersedes a prior auto-absence.
	if prior.AutoAbsentApplied {
		rec.Notes = appendNote(rec.Notes, now, fmt.Sprintf("reclaimed after auto-absence by re-check #%d", count))
	}
	rec.Notes = appendNote(rec.Notes, now, msg)
	return rec, msg
}
