package handler

import (
	"net/http"

	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/cbtprep/cbtprep-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// SubjectHandler serves the static subject and exam-type catalogs.
type SubjectHandler struct{}

// NewSubjectHandler creates a new SubjectHandler.
func NewSubjectHandler() *SubjectHandler {
	return &SubjectHandler{}
}

// List godoc
// GET /api/v1/subjects
// Returns the supported subjects and exam types.
func (h *SubjectHandler) List(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"subjects":   model.Subjects,
		"exam_types": model.ExamTypes,
	})
}
