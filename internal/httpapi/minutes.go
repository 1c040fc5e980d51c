package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal/internal/apperr"
	"portal/internal/meeting"
)

func (h *handler) createMinutes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in meeting.MinutesInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	rec, err := h.meetings.CreateMinutes(c.Request.Context(), a, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Meeting minutes created successfully", "minutes": rec})
}

func (h *handler) listMinutes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	meetingID, err := pathID(c, "meetingId")
	if err != nil {
		writeError(c, err)
		return
	}
	recs, err := h.meetings.ListMinutes(c.Request.Context(), a, meetingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *handler) getMinutes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := h.meetings.GetMinutes(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) updateMinutes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in meeting.MinutesPatch
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	rec, err := h.meetings.UpdateMinutes(c.Request.Context(), a, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meeting minutes updated successfully", "minutes": rec})
}

func (h *handler) deleteMinutes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.meetings.DeleteMinutes(c.Request.Context(), a, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meeting minutes deleted successfully"})
}

// attachMinutes accepts a multipart "file" field and appends it to the minutes.
func (h *handler) attachMinutes(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		writeError(c, apperr.Missing("file"))
		return
	}
	defer file.Close()

	rec, err := h.meetings.AttachToMinutes(c.Request.Context(), a, id, meeting.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attachment uploaded successfully", "minutes": rec})
}
