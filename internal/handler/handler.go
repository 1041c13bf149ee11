// Package handler wires the HTTP surface: the attendance check/sweep core
// endpoints plus the student CRUD, roster and stats views around it.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/store"
	"rollcall/internal/student"
)

// Handler bundles the dependencies of the HTTP layer.
type Handler struct {
	cfg      config.App
	log      *zap.Logger
	svc      *attendance.Service
	sweeper  *attendance.Sweeper
	records  *attendance.MongoStore
	students *student.Repository
	q        queue.Queue
	mongo    *store.Mongo
	redis    *store.Redis
}

// New builds the handler.
func New(
	cfg config.App,
	log *zap.Logger,
	svc *attendance.Service,
	sweeper *attendance.Sweeper,
	records *attendance.MongoStore,
	students *student.Repository,
	q queue.Queue,
	mongo *store.Mongo,
	redis *store.Redis,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		cfg:      cfg,
		log:      log,
		svc:      svc,
		sweeper:  sweeper,
		records:  records,
		students: students,
		q:        q,
		mongo:    mongo,
		redis:    redis,
	}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.Home)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/init-db", h.InitDB)

		api.GET("/students", h.ListStudents)
		api.POST("/students", h.CreateStudent)
		api.GET("/students/:student_id", h.GetStudent)
		api.PUT("/students/:student_id", h.UpdateStudent)
		api.DELETE("/students/:student_id", h.DeleteStudent)

		api.GET("/attendance", h.Roster)
		api.POST("/attendance/check", h.Check)
		api.POST("/attendance/sweep", h.Sweep)
		api.GET("/attendance/recheck-status", h.RecheckStatus)
		api.GET("/attendance/recent", h.RecentCheckins)
		api.GET("/attendance/student/:student_id", h.StudentAttendance)
		api.GET("/attendance/week/:week", h.WeekAttendance)

		api.GET("/weeks", h.ListWeeks)

		api.GET("/stats/overview", h.OverviewStats)
		api.GET("/stats/weekly", h.WeeklyStats)
		api.GET("/stats/student/:student_id", h.StudentStats)
	}
}

// Home returns the service banner.
func (h *Handler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "student attendance tracker API",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

// Healthz reports store connectivity.
func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	mongoHealthy := h.mongo.Healthy(ctx)
	redisHealthy := h.redis.Healthy(ctx)
	status := http.StatusOK
	if !mongoHealthy || !redisHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "mongo": mongoHealthy, "redis": redisHealthy})
}
