package handler

import (
	"errors"
	"net/http"

	"github.com/cbtprep/cbtprep-backend/internal/middleware"
	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/cbtprep/cbtprep-backend/internal/response"
	"github.com/cbtprep/cbtprep-backend/internal/service"
	"github.com/cbtprep/cbtprep-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles exam session endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Create godoc
// POST /api/v1/sessions
// Creates a SETUP-state session for 4 distinct subjects, behind the access gate.
func (h *SessionHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session": gin.H{
			"id":           session.ID,
			"exam_type":    session.ExamType,
			"subjects":     session.Subjects,
			"status":       session.Status,
			"time_allowed": session.TimeAllowed,
			"created_at":   session.CreatedAt,
		},
	})
}

// Start godoc
// POST /api/v1/sessions/:id/start
// Assembles questions, activates the session, and returns the paper.
func (h *SessionHandler) Start(c *gin.Context) {
	claims, sessionID, ok := sessionRequest(c)
	if !ok {
		return
	}

	paper, err := h.sessionService.Start(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// Get godoc
// GET /api/v1/sessions/:id
// Returns the ACTIVE session's paper for resuming.
func (h *SessionHandler) Get(c *gin.Context) {
	claims, sessionID, ok := sessionRequest(c)
	if !ok {
		return
	}

	paper, err := h.sessionService.Paper(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// Active godoc
// GET /api/v1/sessions/active
// Returns the user's current ACTIVE session, if any.
func (h *SessionHandler) Active(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	paper, err := h.sessionService.Active(c.Request.Context(), claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// SubmitAnswer godoc
// PUT /api/v1/sessions/:id/answer
// Records one answer; resubmission overwrites (last write wins).
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	claims, sessionID, ok := sessionRequest(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.sessionService.SubmitAnswer(c.Request.Context(), sessionID, claims.UserID, req.QuestionID, req.Answer)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Complete godoc
// POST /api/v1/sessions/:id/complete
// Finalizes and grades the session. Idempotent.
func (h *SessionHandler) Complete(c *gin.Context) {
	claims, sessionID, ok := sessionRequest(c)
	if !ok {
		return
	}

	var req model.CompleteSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessionService.Complete(c.Request.Context(), sessionID, claims.UserID, req.Answers)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Review godoc
// GET /api/v1/sessions/:id/review
// Returns the completed session with correct answers and the breakdown.
func (h *SessionHandler) Review(c *gin.Context) {
	claims, sessionID, ok := sessionRequest(c)
	if !ok {
		return
	}

	review, err := h.sessionService.Review(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"review": review})
}

// History godoc
// GET /api/v1/sessions
// Lists the user's past sessions, newest first.
func (h *SessionHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessions, err := h.sessionService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// sessionRequest pulls claims and the :id path param out of the request.
func sessionRequest(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}

	return claims, sessionID, true
}

// failSessionError maps session service errors onto API error codes.
func failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrInvalidSubjects):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSubjects)
	case errors.Is(err, service.ErrAccessDenied):
		response.Fail(c, http.StatusPaymentRequired, response.ErrAccessDenied)
	case errors.Is(err, service.ErrSessionInProgress):
		response.Fail(c, http.StatusConflict, response.ErrSessionActive)
	case errors.Is(err, service.ErrSessionNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, service.ErrSessionNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotCompleted)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, service.ErrAssemblyFailed):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrAssemblyFailed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
