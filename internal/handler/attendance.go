package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rollcall/internal/attendance"
	"rollcall/internal/queue"
	"rollcall/internal/student"
)

type checkRequest struct {
	StudentID int64 `json:"student_id" binding:"required"`
	WeekID    int   `json:"week_id" binding:"required"`
}

// Check handles POST /api/attendance/check: one check-in event.
func (h *Handler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, attendance.Validationf("student_id and week_id are required integers"))
		return
	}

	now := time.Now().UTC()
	res, err := h.svc.CheckIn(c.Request.Context(), req.StudentID, req.WeekID, now)
	if err != nil {
		fail(c, err)
		return
	}

	evt := queue.CheckinEvent{
		EventID:   uuid.NewString(),
		StudentID: req.StudentID,
		WeekID:    req.WeekID,
		At:        now,
	}
	if msg, err := queue.NewCheckinMessage(evt); err == nil {
		if err := h.q.Publish(c.Request.Context(), msg); err != nil {
			h.log.Warn("checkin event publish failed", zap.Error(err))
		}
	}

	ok(c, http.StatusOK, gin.H{
		"message": res.Message,
		"data": gin.H{
			"student_id":     res.Record.StudentID,
			"week_id":        res.Record.WeekID,
			"status":         res.Record.Status,
			"recheck_count":  res.Record.RecheckCount,
			"deadline":       res.Record.Deadline,
			"is_in_timelock": res.IsInTimelock,
			"timelock_cycle": res.TimelockCycle,
		},
	})
}

// Sweep handles POST /api/attendance/sweep: apply auto-absence to every
// record whose deadline lapsed.
func (h *Handler) Sweep(c *gin.Context) {
	res, err := h.sweeper.Sweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"data": gin.H{
			"processed_count": res.Processed,
			"failed_count":    res.Failed,
		},
	})
}

// RecheckStatus handles GET /api/attendance/recheck-status.
func (h *Handler) RecheckStatus(c *gin.Context) {
	studentID := int64(queryInt(c, "student_id", 0))
	weekID := queryInt(c, "week_id", 0)

	st, err := h.svc.RecheckStatusAt(c.Request.Context(), studentID, weekID, time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"data": st})
}

// Roster handles GET /api/attendance?week=N: the per-week roster view the
// frontend renders, one row per student with an is_attendance flag.
func (h *Handler) Roster(c *gin.Context) {
	week := queryInt(c, "week", 1)

	students, _, err := h.students.List(c.Request.Context(), listAllStudents())
	if err != nil {
		fail(c, err)
		return
	}
	records, err := h.records.ListByWeek(c.Request.Context(), week)
	if err != nil {
		fail(c, err)
		return
	}

	byStudent := make(map[int64]attendance.Record, len(records))
	for _, r := range records {
		byStudent[r.StudentID] = r
	}

	rows := make([]gin.H, 0, len(students))
	present := 0
	for i, st := range students {
		rec, found := byStudent[st.StudentID]
		isPresent := found && rec.Status == attendance.StatusPresent
		if isPresent {
			present++
		}
		rows = append(rows, gin.H{
			"number":        i + 1,
			"name":          st.Name,
			"student_id":    st.StudentID,
			"department":    st.Major,
			"is_attendance": isPresent,
		})
	}

	ok(c, http.StatusOK, gin.H{
		"data": rows,
		"week": week,
		"summary": gin.H{
			"total_students":  len(rows),
			"present_count":   present,
			"absent_count":    len(rows) - present,
			"attendance_rate": rate(present, len(rows)),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// StudentAttendance handles GET /api/attendance/student/:student_id.
func (h *Handler) StudentAttendance(c *gin.Context) {
	studentID, err := pathInt64(c, "student_id")
	if err != nil {
		fail(c, err)
		return
	}

	st, err := h.students.Get(c.Request.Context(), studentID)
	if err != nil {
		fail(c, err)
		return
	}
	if st == nil {
		fail(c, attendance.NotFoundf("student %d not found", studentID))
		return
	}

	records, err := h.records.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		fail(c, err)
		return
	}

	present := 0
	for _, r := range records {
		if r.Status == attendance.StatusPresent {
			present++
		}
	}
	termWeeks := h.termWeeks(c)

	ok(c, http.StatusOK, gin.H{
		"data": records,
		"student_info": gin.H{
			"student_id": st.StudentID,
			"name":       st.Name,
			"major":      st.Major,
		},
		"stats": gin.H{
			"total_weeks":     termWeeks,
			"present_count":   present,
			"attendance_rate": rate(present, termWeeks),
			"records_count":   len(records),
		},
	})
}

// WeekAttendance handles GET /api/attendance/week/:week.
func (h *Handler) WeekAttendance(c *gin.Context) {
	week64, err := pathInt64(c, "week")
	if err != nil {
		fail(c, err)
		return
	}
	week := int(week64)

	records, err := h.records.ListByWeek(c.Request.Context(), week)
	if err != nil {
		fail(c, err)
		return
	}
	students, total, err := h.students.List(c.Request.Context(), listAllStudents())
	if err != nil {
		fail(c, err)
		return
	}

	names := make(map[int64]string, len(students))
	majors := make(map[int64]string, len(students))
	for _, st := range students {
		names[st.StudentID] = st.Name
		majors[st.StudentID] = st.Major
	}

	rows := make([]gin.H, 0, len(records))
	present := 0
	statusCount := map[attendance.Status]int{}
	for _, r := range records {
		if r.Status == attendance.StatusPresent {
			present++
		}
		statusCount[r.Status]++
		rows = append(rows, gin.H{
			"student_id":     r.StudentID,
			"student_name":   nameOr(names, r.StudentID),
			"department":     nameOr(majors, r.StudentID),
			"status":         r.Status,
			"recheck_count":  r.RecheckCount,
			"is_in_timelock": r.InTimelock(),
			"last_updated":   r.LastUpdated,
			"notes":          r.Notes,
		})
	}

	ok(c, http.StatusOK, gin.H{
		"data": rows,
		"week": week,
		"stats": gin.H{
			"total_students":  total,
			"present_count":   present,
			"attendance_rate": rate(present, int(total)),
			"status_count":    statusCount,
		},
	})
}

// RecentCheckins handles GET /api/attendance/recent: students seen by the
// worker within the last hour.
func (h *Handler) RecentCheckins(c *gin.Context) {
	since := time.Now().UTC().Add(-time.Hour)
	ids, err := h.redis.RecentCheckins(c.Request.Context(), since)
	if err != nil {
		fail(c, attendance.Unavailable("recent check-ins", err))
		return
	}
	ok(c, http.StatusOK, gin.H{"data": ids, "since": since.Format(time.RFC3339)})
}

// ListWeeks handles GET /api/weeks.
func (h *Handler) ListWeeks(c *gin.Context) {
	weeks, err := h.records.ListWeeks(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"data": weeks})
}

func nameOr(m map[int64]string, id int64) string {
	if v, found := m[id]; found {
		return v
	}
	return "Unknown"
}

func rate(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(int(float64(present)/float64(total)*10000+0.5)) / 100
}

func listAllStudents() student.ListParams {
	return student.ListParams{Page: 1, Limit: 200, Sort: "student_id", Order: "asc"}
}
