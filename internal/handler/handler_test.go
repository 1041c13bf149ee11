package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/queue"
)

type memStore struct {
	recs map[string]attendance.Record
}

func rkey(studentID int64, weekID int) string {
	return fmt.Sprintf("%d/%d", studentID, weekID)
}

func (m *memStore) Find(_ context.Context, studentID int64, weekID int) (*attendance.Record, error) {
	rec, found := m.recs[rkey(studentID, weekID)]
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) Upsert(_ context.Context, rec attendance.Record) error {
	m.recs[rkey(rec.StudentID, rec.WeekID)] = rec
	return nil
}

func (m *memStore) ScanExpired(_ context.Context, now time.Time) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range m.recs {
		if rec.Status == attendance.StatusPresent && !rec.AutoAbsentApplied &&
			rec.Deadline != nil && rec.Deadline.Before(now) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) MarkAutoAbsent(_ context.Context, rec attendance.Record, now time.Time, _ string) (bool, error) {
	cur, found := m.recs[rkey(rec.StudentID, rec.WeekID)]
	if !found || cur.AutoAbsentApplied || cur.Deadline == nil {
		return false, nil
	}
	cur.Status = attendance.StatusAbsent
	cur.AutoAbsentApplied = true
	cur.Deadline = nil
	cur.LastUpdated = now
	m.recs[rkey(rec.StudentID, rec.WeekID)] = cur
	return true, nil
}

type memDirectory struct{ ids map[int64]bool }

func (m *memDirectory) Exists(_ context.Context, studentID int64) (bool, error) {
	return m.ids[studentID], nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	store := &memStore{recs: map[string]attendance.Record{}}
	dir := &memDirectory{ids: map[int64]bool{2007720116: true}}
	svc := attendance.NewService(store, dir, 15*time.Minute, nil)
	sweeper := attendance.NewSweeper(store, nil)

	h := New(config.App{TermWeeks: 7}, nil, svc, sweeper, nil, nil, queue.NewInMemory(16), nil, nil)

	r := gin.New()
	r.POST("/api/attendance/check", h.Check)
	r.POST("/api/attendance/sweep", h.Sweep)
	r.GET("/api/attendance/recheck-status", h.RecheckStatus)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func TestCheckEndpoint_Validation(t *testing.T) {
	r := newTestRouter()

	w, body := do(t, r, http.MethodPost, "/api/attendance/check", `{"week_id": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	w, body = do(t, r, http.MethodPost, "/api/attendance/check", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
}

func TestCheckEndpoint_UnknownStudent(t *testing.T) {
	r := newTestRouter()

	w, body := do(t, r, http.MethodPost, "/api/attendance/check", `{"student_id": 42, "week_id": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "STUDENT_NOT_FOUND", body["error"])
}

func TestCheckEndpoint_TimelockFlow(t *testing.T) {
	r := newTestRouter()

	w, body := do(t, r, http.MethodPost, "/api/attendance/check", `{"student_id": 2007720116, "week_id": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["recheck_count"])
	assert.Equal(t, false, data["is_in_timelock"])
	assert.Nil(t, data["deadline"])

	w, body = do(t, r, http.MethodPost, "/api/attendance/check", `{"student_id": 2007720116, "week_id": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	data = body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["recheck_count"])
	assert.Equal(t, true, data["is_in_timelock"])
	assert.NotNil(t, data["deadline"])

	w, body = do(t, r, http.MethodGet, "/api/attendance/recheck-status?student_id=2007720116&week_id=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := body["data"].(map[string]any)
	assert.Equal(t, true, st["has_record"])
	assert.Equal(t, true, st["is_in_timelock"])
	assert.Equal(t, false, st["is_expired"])
}

func TestSweepEndpoint_NoCandidates(t *testing.T) {
	r := newTestRouter()

	w, body := do(t, r, http.MethodPost, "/api/attendance/sweep", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(0), data["processed_count"])
	assert.Equal(t, float64(0), data["failed_count"])
}

func TestRecheckStatusEndpoint_Validation(t *testing.T) {
	r := newTestRouter()

	w, body := do(t, r, http.MethodGet, "/api/attendance/recheck-status", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
}
