package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/student"
)

// InitDB handles POST /api/init-db: wipe and reseed students, the term
// calendar and a few attendance records, then rebuild indexes.
func (h *Handler) InitDB(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now().UTC()

	if err := h.students.ReplaceAll(ctx, sampleStudents(now)); err != nil {
		fail(c, err)
		return
	}
	if err := h.records.ReplaceAllWeeks(ctx, sampleWeeks()); err != nil {
		fail(c, err)
		return
	}
	if err := h.records.ReplaceAllRecords(ctx, sampleRecords(now)); err != nil {
		fail(c, err)
		return
	}
	if err := h.students.EnsureIndexes(ctx); err != nil {
		fail(c, err)
		return
	}
	if err := h.records.EnsureIndexes(ctx); err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"message":   "database initialized",
		"timestamp": now.Format(time.RFC3339),
	})
}

func sampleStudents(now time.Time) []student.Student {
	mk := func(id int64, name, major, email, phone string) student.Student {
		return student.Student{
			StudentID: id, Name: name, Major: major, Email: email, Phone: phone,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	return []student.Student{
		mk(2007720116, "Kim Joeun", "School of Software", "kimjoeun@school.ac.kr", "010-1111-1111"),
		mk(2022322035, "Bae Hyeyoon", "English Industry", "baehyeyoon@school.ac.kr", "010-2222-2222"),
		mk(2023205106, "Song Yunseo", "School of Robotics", "songyunseo@school.ac.kr", "010-3333-3333"),
		mk(2023321012, "Kim Choryun", "Information Convergence", "kimchoryun@school.ac.kr", "010-4444-4444"),
		mk(2024405040, "Song Jumi", "School of Robotics", "songjumi@school.ac.kr", "010-5555-5555"),
	}
}

func sampleWeeks() []attendance.Week {
	return []attendance.Week{
		{WeekID: 1, WeekName: "Week 1", StartDate: "2024-03-01", EndDate: "2024-03-07"},
		{WeekID: 2, WeekName: "Week 2", StartDate: "2024-03-08", EndDate: "2024-03-14"},
		{WeekID: 3, WeekName: "Week 3", StartDate: "2024-03-15", EndDate: "2024-03-21"},
		{WeekID: 4, WeekName: "Week 4", StartDate: "2024-03-22", EndDate: "2024-03-28"},
		{WeekID: 5, WeekName: "Week 5", StartDate: "2024-03-29", EndDate: "2024-04-04"},
		{WeekID: 6, WeekName: "Week 6", StartDate: "2024-04-05", EndDate: "2024-04-11"},
		{WeekID: 7, WeekName: "Week 7", StartDate: "2024-04-12", EndDate: "2024-04-18"},
	}
}

func sampleRecords(now time.Time) []attendance.Record {
	mk := func(id int64, week int, status attendance.Status) attendance.Record {
		return attendance.Record{
			StudentID:      id,
			WeekID:         week,
			Status:         status,
			RecheckCount:   1,
			FirstCheckTime: now,
			LastUpdated:    now,
			Notes:          "seeded record",
		}
	}
	return []attendance.Record{
		mk(2007720116, 1, attendance.StatusPresent),
		mk(2022322035, 1, attendance.StatusPresent),
		mk(2023205106, 1, attendance.StatusLate),
		mk(2023321012, 1, attendance.StatusPresent),
		mk(2024405040, 1, attendance.StatusAbsent),

		mk(2007720116, 2, attendance.StatusPresent),
		mk(2022322035, 2, attendance.StatusLeftEarly),
		mk(2023205106, 2, attendance.StatusPresent),
		mk(2023321012, 2, attendance.StatusPresent),
		mk(2024405040, 2, attendance.StatusPresent),

		mk(2007720116, 3, attendance.StatusPresent),
		mk(2022322035, 3, attendance.StatusPresent),
		mk(2023205106, 3, attendance.StatusAbsent),
		mk(2023321012, 3, attendance.StatusPresent),
		mk(2024405040, 3, attendance.StatusPresent),
	}
}
