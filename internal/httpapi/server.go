// Package httpapi exposes the portal services over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"portal/internal/auth"
	"portal/internal/feedback"
	"portal/internal/httpmiddleware"
	"portal/internal/meeting"
	"portal/internal/question"
	"portal/internal/store"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Meetings  *meeting.Service
	Questions *question.Service
	Feedback  *feedback.Service
	Users     auth.ActorLoader

	SigningKey      string
	Issuer          string
	RateLimitPerMin int
	MaxUploadBytes  int64

	// Health lists dependencies probed by /healthz.
	Health map[string]store.Pinger
	Logger zerolog.Logger
}

type handler struct {
	meetings  *meeting.Service
	questions *question.Service
	feedback  *feedback.Service
	maxUpload int64
}

// NewRouter wires middleware and routes onto a gin engine.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{
		meetings:  d.Meetings,
		questions: d.Questions,
		feedback:  d.Feedback,
		maxUpload: d.MaxUploadBytes,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 10 << 20
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(accessLog(d.Logger, "/healthz", "/metrics"))
	r.Use(observe())
	r.Use(cors())
	r.Use(securityHeaders())
	if d.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewRateLimiter(d.RateLimitPerMin).GinMiddleware())
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(d.Health))

	api := r.Group("/api", auth.Authenticate(d.SigningKey, d.Issuer, d.Users))

	m := api.Group("/meetings")
	m.POST("", h.createMeeting)
	m.GET("", h.listMeetings)
	m.GET("/user/current", h.currentUserMeetings)
	m.GET("/department/:departmentId", h.departmentMeetings)
	m.GET("/department/:departmentId/year/:year", h.departmentMeetings)
	m.POST("/attendees", h.addAttendees)
	m.GET("/:id", h.getMeeting)
	m.PUT("/:id", h.updateMeeting)
	m.DELETE("/:id", h.deleteMeeting)
	m.GET("/:id/attendees", h.listAttendees)
	m.POST("/:id/attendance", h.markAttendance)
	m.POST("/:id/feedback-submitted", h.markFeedbackSubmitted)

	api.GET("/user/meetings", h.myMeetings)

	mm := api.Group("/meeting-minutes")
	mm.POST("", h.createMinutes)
	mm.GET("/meeting/:meetingId", h.listMinutes)
	mm.GET("/:id", h.getMinutes)
	mm.PUT("/:id", h.updateMinutes)
	mm.DELETE("/:id", h.deleteMinutes)
	mm.POST("/:id/attachments", h.attachMinutes)

	q := api.Group("/questions")
	q.POST("", h.createQuestion)
	q.GET("", h.listQuestions)
	q.GET("/department/:departmentId", h.departmentQuestions)
	q.GET("/department/:departmentId/year/:year", h.departmentQuestions)
	q.GET("/creator/:creatorId", h.questionsByCreator)
	q.GET("/:id", h.getQuestion)
	q.PUT("/:id", h.updateQuestion)
	q.DELETE("/:id", h.deleteQuestion)

	f := api.Group("/feedback")
	f.POST("/submit", h.submitFeedback)
	f.GET("/my-feedback", h.myFeedback)
	f.GET("/question/:id", h.feedbackByQuestion)
	f.GET("/stats/overall", h.feedbackStats)

	return r
}

func healthz(deps map[string]store.Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{}
		for name, p := range deps {
			ok := p.PingContext(ctx) == nil
			checks[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks})
	}
}
