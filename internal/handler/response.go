package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
)

// ok writes the success envelope with the given payload merged in.
func ok(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// fail maps the error taxonomy onto HTTP statuses and the error envelope.
func fail(c *gin.Context, err error) {
	code := attendance.CodeOf(err)
	status := http.StatusServiceUnavailable
	switch code {
	case attendance.CodeValidation, attendance.CodeConflict:
		status = http.StatusBadRequest
	case attendance.CodeNotFound:
		status = http.StatusNotFound
	}

	body := gin.H{
		"success": false,
		"error":   string(code),
		"message": errMessage(err),
	}
	if attendance.Retryable(err) {
		body["retryable"] = true
	}
	c.JSON(status, body)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *attendance.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func pathInt64(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, attendance.Validationf("%s must be a positive integer", name)
	}
	return v, nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
