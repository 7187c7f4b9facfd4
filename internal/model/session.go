package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusSetup     SessionStatus = "SETUP"
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// ExamSession represents one 4-subject combined exam attempt, from setup
// through scoring. Questions are embedded snapshots and answers a
// question-id → label map, both stored as JSONB.
type ExamSession struct {
	ID           uuid.UUID         `json:"id"`
	UserID       int               `json:"user_id"`
	ExamType     string            `json:"exam_type"`
	Subjects     []string          `json:"subjects"`
	Status       SessionStatus     `json:"status"`
	Questions    []Question        `json:"questions,omitempty"`
	Answers      map[string]string `json:"answers,omitempty"`
	UsedFallback bool              `json:"used_fallback"`
	TimeAllowed  int               `json:"time_allowed"` // seconds
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`

	// Populated at completion only.
	Score          *int `json:"score,omitempty"`
	CorrectAnswers *int `json:"correct_answers,omitempty"`
	TotalQuestions *int `json:"total_questions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TimeRemaining computes the authoritative remaining seconds from the stored
// start time. The client never supplies this value.
func (s *ExamSession) TimeRemaining(now time.Time) int {
	if s.Status != SessionStatusActive || s.StartedAt == nil {
		return 0
	}
	remaining := s.TimeAllowed - int(now.Sub(*s.StartedAt).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether an active session has run past its allowed time.
func (s *ExamSession) Expired(now time.Time) bool {
	return s.Status == SessionStatusActive && s.StartedAt != nil &&
		now.Sub(*s.StartedAt) > time.Duration(s.TimeAllowed)*time.Second
}

// HasQuestion reports whether the given question id belongs to the session's
// snapshot list.
func (s *ExamSession) HasQuestion(questionID string) bool {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return true
		}
	}
	return false
}

// CreateSessionRequest is the payload for creating a session.
type CreateSessionRequest struct {
	Subjects   []string `json:"subjects" binding:"required,len=4,dive,required"`
	ExamType   string   `json:"exam_type" binding:"omitempty,oneof=utme wassce neco post-utme"`
	UnlockCode string   `json:"unlock_code" binding:"omitempty,max=40"`
}

// SubmitAnswerRequest is the payload for recording one answer.
type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Answer     string `json:"answer" binding:"required,oneof=A B C D"`
}

// CompleteSessionRequest carries the client's final answer map. Answers merge
// last-write-wins over previously submitted ones; unknown question ids are
// rejected.
type CompleteSessionRequest struct {
	Answers map[string]string `json:"answers"`
}

// SessionPaper is the client-facing payload of an active session.
type SessionPaper struct {
	SessionID     uuid.UUID            `json:"session_id"`
	ExamType      string               `json:"exam_type"`
	Subjects      []string             `json:"subjects"`
	Questions     []QuestionForStudent `json:"questions"`
	TimeAllowed   int                  `json:"time_allowed"`
	TimeRemaining int                  `json:"time_remaining"`
}
