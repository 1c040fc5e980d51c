package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portal/internal/apperr"
	"portal/internal/feedback"
)

func (h *handler) submitFeedback(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in feedback.SubmitInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	fb, err := h.feedback.Submit(c.Request.Context(), a, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Feedback submitted successfully", "feedback": fb})
}

func (h *handler) myFeedback(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	entries, err := h.feedback.MyFeedback(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handler) feedbackByQuestion(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	entries, err := h.feedback.ByQuestion(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// feedbackStats aggregates ratings; ?departmentId restricts to one department.
func (h *handler) feedbackStats(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var dept *int64
	if raw := c.Query("departmentId"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(c, apperr.Validation("departmentId", "departmentId must be an integer"))
			return
		}
		dept = &v
	}
	stats, err := h.feedback.Stats(c.Request.Context(), a, dept)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
