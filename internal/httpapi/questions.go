package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portal/internal/question"
)

func (h *handler) createQuestion(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in question.CreateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	q, err := h.questions.Create(c.Request.Context(), a, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *handler) listQuestions(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	qs, err := h.questions.List(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, qs)
}

func (h *handler) getQuestion(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	q, err := h.questions.Visible(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// departmentQuestions is the browse view; ?role narrows to one audience.
func (h *handler) departmentQuestions(c *gin.Context) {
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
	qs, err := h.questions.ByDepartment(c.Request.Context(), dept, year, c.Query("role"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, qs)
}

func (h *handler) questionsByCreator(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	creatorID, err := pathID(c, "creatorId")
	if err != nil {
		writeError(c, err)
		return
	}
	qs, err := h.questions.ListByCreator(c.Request.Context(), a, creatorID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, qs)
}

func (h *handler) updateQuestion(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	var in question.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, err)
		return
	}
	q, err := h.questions.Update(c.Request.Context(), a, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question updated successfully", "question": q})
}

func (h *handler) deleteQuestion(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.questions.Delete(c.Request.Context(), a, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}
