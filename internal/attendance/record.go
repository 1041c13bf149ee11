package attendance

import (
	"fmt"
	"time"
)

// Status is the persisted attendance state for a (student, week) pair.
type Status string

const (
	StatusPresent   Status = "PRESENT"
	StatusAbsent    Status = "ABSENT"
	StatusLate      Status = "LATE"
	StatusLeftEarly Status = "LEFT_EARLY"
	StatusExcused   Status = "EXCUSED"
)

// Record is one attendance document per (student_id, week_id); the pair is
// the natural key and the upsert target.
type Record struct {
	StudentID         int64      `bson:"student_id" json:"student_id"`
	WeekID            int        `bson:"week_id" json:"week_id"`
	Status            Status     `bson:"status" json:"status"`
	RecheckCount      int        `bson:"recheck_count" json:"recheck_count"`
	FirstCheckTime    time.Time  `bson:"first_check_time" json:"first_check_time"`
	LastCheckTime     *time.Time `bson:"last_check_time,omitempty" json:"last_check_time,omitempty"`
	Deadline          *time.Time `bson:"deadline,omitempty" json:"deadline"`
	AutoAbsentApplied bool       `bson:"auto_absent_applied" json:"auto_absent_applied"`
	LastUpdated       time.Time  `bson:"last_updated" json:"last_updated"`
	Notes             string     `bson:"notes" json:"notes"`
}

// InTimelock reports whether the record carries an active re-check deadline.
func (r *Record) InTimelock() bool {
	return r.Deadline != nil
}

// TimelockCycle is the 1-based enter/exit cycle index, ceil(recheck_count / 2).
func (r *Record) TimelockCycle() int {
	return (r.RecheckCount + 1) / 2
}

// appendNote adds a timestamped line to the record's audit trail.
func appendNote(notes string, at time.Time, entry string) string {
	line := fmt.Sprintf("[%s] %s", at.UTC().Format(time.RFC3339), entry)
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
