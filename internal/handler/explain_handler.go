package handler

import (
	"net/http"

	"github.com/cbtprep/cbtprep-backend/internal/response"
	"github.com/cbtprep/cbtprep-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ExplainHandler serves tutor explanations for reviewed questions.
type ExplainHandler struct {
	explainService *service.ExplainService
}

// NewExplainHandler creates a new ExplainHandler.
func NewExplainHandler(explainService *service.ExplainService) *ExplainHandler {
	return &ExplainHandler{explainService: explainService}
}

// Explain godoc
// POST /api/v1/sessions/:id/questions/:question_id/explain
// Explains one question from a completed session.
func (h *ExplainHandler) Explain(c *gin.Context) {
	claims, sessionID, ok := sessionRequest(c)
	if !ok {
		return
	}

	questionID := c.Param("question_id")
	if questionID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	explanation, err := h.explainService.Explain(c.Request.Context(), sessionID, claims.UserID, questionID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"explanation": explanation})
}
