package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portal/internal/auth"
	"portal/internal/identity"
	"portal/internal/meeting"
)

var errNoActor = errors.New("authenticated actor missing from request context")

// actor returns the caller resolved by auth.Authenticate.
func actor(c *gin.Context) (identity.Actor, bool) {
	a, ok := auth.ActorFrom(c)
	if !ok {
		writeError(c, errNoActor)
	}
	return a, ok
}

func (h *handler) createMeeting(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in meeting.CreateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	m, err := h.meetings.CreateMeeting(c.Request.Context(), a, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Meeting created successfully", "meeting": m})
}

// listMeetings returns categorized meetings; ?view=flat returns a plain list.
func (h *handler) listMeetings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if c.Query("view") == "flat" {
		ms, err := h.meetings.ListAll(c.Request.Context(), a)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ms)
		return
	}
	h.currentUserMeetings(c)
}

func (h *handler) currentUserMeetings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	buckets, err := h.meetings.ListForActor(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

func (h *handler) departmentMeetings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	dept, err := pathID(c, "departmentId")
	if err != nil {
		writeError(c, err)
		return
	}
	year, err := optionalInt(c.Param("year"), "year")
	if err != nil {
		writeError(c, err)
		return
	}
	buckets, err := h.meetings.ListByDepartment(c.Request.Context(), a, dept, year)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

func (h *handler) getMeeting(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	m, err := h.meetings.GetMeeting(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handler) updateMeeting(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in meeting.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	m, err := h.meetings.UpdateMeeting(c.Request.Context(), a, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meeting updated successfully", "meeting": m})
}

func (h *handler) deleteMeeting(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.meetings.DeleteMeeting(c.Request.Context(), a, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meeting deleted successfully"})
}

func (h *handler) addAttendees(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in meeting.AddAttendeesInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	added, err := h.meetings.AddAttendees(c.Request.Context(), a, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendees added successfully", "attendees": added})
}

func (h *handler) listAttendees(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	attendees, err := h.meetings.ListAttendees(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attendees)
}

func (h *handler) markAttendance(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	att, err := h.meetings.MarkAttendance(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked successfully", "attendee": att})
}

func (h *handler) markFeedbackSubmitted(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	att, err := h.meetings.MarkFeedbackSubmitted(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback status updated successfully", "attendee": att})
}

func (h *handler) myMeetings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	buckets, err := h.meetings.ListMyAttendance(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}
