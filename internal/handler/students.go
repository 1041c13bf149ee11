package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/student"
)

// ListStudents handles GET /api/students with pagination and sorting.
func (h *Handler) ListStudents(c *gin.Context) {
	params := student.ListParams{
		Page:  queryInt(c, "page", 1),
		Limit: queryInt(c, "limit", 50),
		Sort:  c.DefaultQuery("sort", "student_id"),
		Order: c.DefaultQuery("order", "asc"),
	}

	students, total, err := h.students.List(c.Request.Context(), params)
	if err != nil {
		fail(c, err)
		return
	}

	limit := params.Limit
	if limit < 1 || limit > 200 {
		limit = 50
	}
	ok(c, http.StatusOK, gin.H{
		"data": students,
		"pagination": gin.H{
			"page":        params.Page,
			"limit":       limit,
			"total_count": total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetStudent handles GET /api/students/:student_id.
func (h *Handler) GetStudent(c *gin.Context) {
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
	ok(c, http.StatusOK, gin.H{"data": st})
}

// CreateStudent handles POST /api/students.
func (h *Handler) CreateStudent(c *gin.Context) {
	var st student.Student
	if err := c.ShouldBindJSON(&st); err != nil {
		fail(c, attendance.Validationf("request body is missing or malformed"))
		return
	}
	if err := student.Validate(st, false); err != nil {
		fail(c, err)
		return
	}
	if err := h.students.Create(c.Request.Context(), st); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"message": "student created",
		"data":    gin.H{"student_id": st.StudentID},
	})
}

// UpdateStudent handles PUT /api/students/:student_id.
func (h *Handler) UpdateStudent(c *gin.Context) {
	studentID, err := pathInt64(c, "student_id")
	if err != nil {
		fail(c, err)
		return
	}
	var st student.Student
	if err := c.ShouldBindJSON(&st); err != nil {
		fail(c, attendance.Validationf("request body is missing or malformed"))
		return
	}
	if err := student.Validate(st, true); err != nil {
		fail(c, err)
		return
	}
	if err := h.students.Update(c.Request.Context(), studentID, st); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "student updated"})
}

// DeleteStudent handles DELETE /api/students/:student_id. Attendance
// records cascade unless delete_attendance=false.
func (h *Handler) DeleteStudent(c *gin.Context) {
	studentID, err := pathInt64(c, "student_id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.students.Delete(c.Request.Context(), studentID); err != nil {
		fail(c, err)
		return
	}
	if c.DefaultQuery("delete_attendance", "true") == "true" {
		if err := h.records.DeleteByStudent(c.Request.Context(), studentID); err != nil {
			fail(c, err)
			return
		}
	}
	ok(c, http.StatusOK, gin.H{"message": "student deleted"})
}
