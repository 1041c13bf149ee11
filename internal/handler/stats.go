package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
)

// termWeeks resolves the term length from the seeded calendar, falling
// back to the configured value when the weeks collection is empty.
func (h *Handler) termWeeks(c *gin.Context) int {
	weeks, err := h.records.ListWeeks(c.Request.Context())
	if err == nil && len(weeks) > 0 {
		return len(weeks)
	}
	return h.cfg.TermWeeks
}

// OverviewStats handles GET /api/stats/overview.
func (h *Handler) OverviewStats(c *gin.Context) {
	ctx := c.Request.Context()

	totalStudents, err := h.students.Count(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	records, err := h.records.ListAll(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	termWeeks := h.termWeeks(c)

	presentByWeek := make(map[int]int)
	statusStats := map[attendance.Status]int{}
	for _, r := range records {
		if r.Status == attendance.StatusPresent {
			presentByWeek[r.WeekID]++
		}
		statusStats[r.Status]++
	}

	weekly := make([]gin.H, 0, termWeeks)
	for week := 1; week <= termWeeks; week++ {
		present := presentByWeek[week]
		weekly = append(weekly, gin.H{
			"week":            week,
			"present_count":   present,
			"attendance_rate": rate(present, int(totalStudents)),
		})
	}

	ok(c, http.StatusOK, gin.H{
		"data": gin.H{
			"total_students":           totalStudents,
			"total_attendance_records": len(records),
			"total_weeks":              termWeeks,
			"weekly_stats":             weekly,
			"status_stats":             statusStats,
		},
	})
}

// WeeklyStats handles GET /api/stats/weekly.
func (h *Handler) WeeklyStats(c *gin.Context) {
	ctx := c.Request.Context()

	totalStudents, err := h.students.Count(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	records, err := h.records.ListAll(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	termWeeks := h.termWeeks(c)

	byWeek := make(map[int]map[attendance.Status]int)
	for _, r := range records {
		if byWeek[r.WeekID] == nil {
			byWeek[r.WeekID] = map[attendance.Status]int{}
		}
		byWeek[r.WeekID][r.Status]++
	}

	weekly := make([]gin.H, 0, termWeeks)
	for week := 1; week <= termWeeks; week++ {
		statusCount := byWeek[week]
		if statusCount == nil {
			statusCount = map[attendance.Status]int{}
		}
		present := statusCount[attendance.StatusPresent]
		weekly = append(weekly, gin.H{
			"week":            week,
			"present_count":   present,
			"attendance_rate": rate(present, int(totalStudents)),
			"status_count":    statusCount,
		})
	}

	ok(c, http.StatusOK, gin.H{"data": weekly})
}

// StudentStats handles GET /api/stats/student/:student_id. Weeks without a
// record count as absent, matching the roster view.
func (h *Handler) StudentStats(c *gin.Context) {
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
	termWeeks := h.termWeeks(c)

	statusByWeek := make(map[int]attendance.Status, len(records))
	for _, r := range records {
		statusByWeek[r.WeekID] = r.Status
	}

	weekly := make([]gin.H, 0, termWeeks)
	present := 0
	statusCount := map[attendance.Status]int{}
	for week := 1; week <= termWeeks; week++ {
		status, found := statusByWeek[week]
		if !found {
			status = attendance.StatusAbsent
		}
		if status == attendance.StatusPresent {
			present++
		}
		statusCount[status]++
		weekly = append(weekly, gin.H{"week": week, "status": status})
	}

	ok(c, http.StatusOK, gin.H{
		"data": gin.H{
			"student_info": gin.H{
				"student_id": st.StudentID,
				"name":       st.Name,
				"major":      st.Major,
			},
			"attendance_rate": rate(present, termWeeks),
			"present_count":   present,
			"total_weeks":     termWeeks,
			"weekly_stats":    weekly,
			"status_count":    statusCount,
		},
	})
}
