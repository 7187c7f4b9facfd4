package repository

import (
	"context"
	"time"

	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles exam session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, exam_type, subjects, status, questions, answers,
	used_fallback, time_allowed, started_at, completed_at,
	score, correct_answers, total_questions, created_at`

func scanSession(row interface{ Scan(dest ...any) error }) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.ExamType, &s.Subjects, &s.Status, &s.Questions, &s.Answers,
		&s.UsedFallback, &s.TimeAllowed, &s.StartedAt, &s.CompletedAt,
		&s.Score, &s.CorrectAnswers, &s.TotalQuestions, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new session in SETUP state.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (user_id, exam_type, subjects, status, time_allowed)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		s.UserID, s.ExamType, s.Subjects, model.SessionStatusSetup, s.TimeAllowed,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetByID retrieves a full session including question snapshots and answers.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// GetNonTerminalByUser retrieves the user's SETUP or ACTIVE session, if any.
// The schema's partial unique index guarantees at most one exists.
func (r *SessionRepository) GetNonTerminalByUser(ctx context.Context, userID int) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE user_id = $1 AND status IN ($2, $3)
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, model.SessionStatusSetup, model.SessionStatusActive))
}

// Activate persists the assembled question set and flips the session to
// ACTIVE. The status guard makes concurrent starts single-shot: only one
// caller wins the SETUP→ACTIVE transition, and the return value reports
// whether this call was it.
func (r *SessionRepository) Activate(ctx context.Context, id uuid.UUID, questions []model.Question, usedFallback bool, startedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, questions = $2, used_fallback = $3, started_at = $4
		 WHERE id = $5 AND status = $6`,
		model.SessionStatusActive, questions, usedFallback, startedAt, id, model.SessionStatusSetup)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetStatus retrieves just a session's status, skipping the heavyweight
// question payload.
func (r *SessionRepository) GetStatus(ctx context.Context, id uuid.UUID) (model.SessionStatus, error) {
	var status model.SessionStatus
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM exam_sessions WHERE id = $1`, id).Scan(&status)
	return status, err
}

// MarkFailed moves a session to the terminal FAILED state.
func (r *SessionRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET status = $1 WHERE id = $2`,
		model.SessionStatusFailed, id)
	return err
}

// SaveAnswer records a single answer (last write wins) while the session is ACTIVE.
func (r *SessionRepository) SaveAnswer(ctx context.Context, id uuid.UUID, questionID, answer string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET answers = jsonb_set(COALESCE(answers, '{}'::jsonb), ARRAY[$1], to_jsonb($2::text))
		 WHERE id = $3 AND status = $4`,
		questionID, answer, id, model.SessionStatusActive)
	return err
}

// Complete persists the final answer map and score and flips the session to
// COMPLETED. The status guard keeps completion single-shot under concurrent
// submits.
func (r *SessionRepository) Complete(ctx context.Context, id uuid.UUID, answers map[string]string, score, correct, total int, completedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, answers = $2, score = $3, correct_answers = $4,
		     total_questions = $5, completed_at = $6
		 WHERE id = $7 AND status = $8`,
		model.SessionStatusCompleted, answers, score, correct, total, completedAt,
		id, model.SessionStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SessionSummary is a history row without the heavyweight question payload.
type SessionSummary struct {
	ID             uuid.UUID           `json:"id"`
	ExamType       string              `json:"exam_type"`
	Subjects       []string            `json:"subjects"`
	Status         model.SessionStatus `json:"status"`
	Score          *int                `json:"score,omitempty"`
	CorrectAnswers *int                `json:"correct_answers,omitempty"`
	TotalQuestions *int                `json:"total_questions,omitempty"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// ListByUser retrieves the user's session history, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int) ([]SessionSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_type, subjects, status, score, correct_answers, total_questions,
		        started_at, completed_at, created_at
		 FROM exam_sessions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(
			&s.ID, &s.ExamType, &s.Subjects, &s.Status, &s.Score, &s.CorrectAnswers,
			&s.TotalQuestions, &s.StartedAt, &s.CompletedAt, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
