package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cbtprep/cbtprep-backend/internal/config"
	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/cbtprep/cbtprep-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors surfaced to handlers.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrNotSessionOwner     = errors.New("session belongs to another user")
	ErrInvalidSubjects     = errors.New("exactly 4 distinct known subjects are required")
	ErrAccessDenied        = errors.New("premium access required")
	ErrSessionInProgress   = errors.New("another session is already in progress")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrSessionNotCompleted = errors.New("session is not completed")
	ErrUnknownQuestion     = errors.New("question does not belong to this session")
	ErrAssemblyFailed      = errors.New("question assembly failed")
)

// SubjectCount is the fixed number of subjects per combined exam.
const SubjectCount = 4

// sessionStore is the persistence surface the orchestrator drives.
type sessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	GetNonTerminalByUser(ctx context.Context, userID int) (*model.ExamSession, error)
	Activate(ctx context.Context, id uuid.UUID, questions []model.Question, usedFallback bool, startedAt time.Time) (bool, error)
	GetStatus(ctx context.Context, id uuid.UUID) (model.SessionStatus, error)
	MarkFailed(ctx context.Context, id uuid.UUID) error
	SaveAnswer(ctx context.Context, id uuid.UUID, questionID, answer string) error
	Complete(ctx context.Context, id uuid.UUID, answers map[string]string, score, correct, total int, completedAt time.Time) (bool, error)
	ListByUser(ctx context.Context, userID int) ([]repository.SessionSummary, error)
}

// questionSource delivers externally sourced questions; short or empty
// results signal degradation, never errors.
type questionSource interface {
	FetchQuestions(ctx context.Context, subject string, count int, examType string) []model.Question
}

// fallbackSource tops up whatever the external source under-delivers.
type fallbackSource interface {
	Generate(subject string, count int, examType string) []model.Question
}

// statsStore applies completed-exam results to cumulative user stats.
type statsStore interface {
	ApplyExamResult(ctx context.Context, id, correctAnswers int) error
}

// SessionService orchestrates the exam session lifecycle: creation behind the
// access gate, question assembly with fallback top-up, answer recording, and
// single-shot completion/scoring.
type SessionService struct {
	cfg      *config.Config
	store    sessionStore
	source   questionSource
	fallback fallbackSource
	users    statsStore
	access   *AccessService
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	store sessionStore,
	source questionSource,
	fallback fallbackSource,
	users statsStore,
	access *AccessService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:      cfg,
		store:    store,
		source:   source,
		fallback: fallback,
		users:    users,
		access:   access,
		rdb:      rdb,
		log:      log.With().Str("component", "session_service").Logger(),
	}
}

// Create validates the subject selection and the user's access, then persists
// a SETUP-state session. Question assembly is deferred to Start so the setup
// screen renders without paying for it.
func (s *SessionService) Create(ctx context.Context, userID int, req model.CreateSessionRequest) (*model.ExamSession, error) {
	subjects, err := normalizeSubjects(req.Subjects)
	if err != nil {
		return nil, err
	}

	examType := req.ExamType
	if examType == "" {
		examType = model.ExamTypeUTME
	}

	decision, err := s.access.Authorize(ctx, userID, req.UnlockCode)
	if err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}
	if !decision.Allowed {
		return nil, ErrAccessDenied
	}

	// One exam at a time: reject while a SETUP/ACTIVE session exists. An
	// expired ACTIVE session is finalized first so it doesn't block forever.
	existing, err := s.store.GetNonTerminalByUser(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}
	if existing != nil {
		if existing.Expired(time.Now()) {
			if _, err := s.finalize(ctx, existing, existing.Answers); err != nil {
				return nil, fmt.Errorf("finalize expired session: %w", err)
			}
		} else {
			return nil, ErrSessionInProgress
		}
	}

	session := &model.ExamSession{
		UserID:      userID,
		ExamType:    examType,
		Subjects:    subjects,
		Status:      model.SessionStatusSetup,
		TimeAllowed: int(s.cfg.ExamDuration.Seconds()),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("user_id", userID).
		Strs("subjects", subjects).
		Msg("Session created")

	return session, nil
}

// Start assembles the question set and activates the session. Fetches run
// sequentially per subject — deliberate throttling of the external API, not
// an oversight — and any shortfall is topped up by the fallback generator, so
// a started session always holds exactly SubjectCount × QuestionsPerSubject
// questions. Calling Start on an already-ACTIVE session returns the current
// paper, making client retries harmless.
func (s *SessionService) Start(ctx context.Context, sessionID uuid.UUID, userID int) (*model.SessionPaper, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case model.SessionStatusSetup:
		// Proceed to assembly.
	case model.SessionStatusActive:
		return s.paperFromSession(session), nil
	default:
		return nil, ErrSessionNotActive
	}

	perSubject := s.cfg.QuestionsPerSubject
	combined := make([]model.Question, 0, SubjectCount*perSubject)
	usedFallback := false

	for _, subject := range session.Subjects {
		fetched := s.source.FetchQuestions(ctx, subject, perSubject, session.ExamType)
		if shortfall := perSubject - len(fetched); shortfall > 0 {
			fetched = append(fetched, s.fallback.Generate(subject, shortfall, session.ExamType)...)
			usedFallback = true
		}

		// Unreachable while the generator holds its always-succeeds
		// contract, but a zero-question subject must never go ACTIVE.
		if len(fetched) == 0 {
			if err := s.store.MarkFailed(ctx, session.ID); err != nil {
				s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Mark failed errored")
			}
			return nil, ErrAssemblyFailed
		}

		combined = append(combined, fetched...)
	}

	// Fisher–Yates across the full combined list so subject order is not
	// revealed to the test-taker.
	rand.Shuffle(len(combined), func(i, j int) {
		combined[i], combined[j] = combined[j], combined[i]
	})

	startedAt := time.Now()
	won, err := s.store.Activate(ctx, session.ID, combined, usedFallback, startedAt)
	if err != nil {
		return nil, fmt.Errorf("activate session: %w", err)
	}
	if !won {
		// A concurrent start activated first; serve the paper it persisted
		// rather than this request's never-saved assembly.
		fresh, err := s.store.GetByID(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("reload activated session: %w", err)
		}
		if fresh.Status != model.SessionStatusActive {
			return nil, ErrSessionNotActive
		}
		s.cachePaper(ctx, fresh)
		return s.paperFromSession(fresh), nil
	}

	session.Status = model.SessionStatusActive
	session.Questions = combined
	session.UsedFallback = usedFallback
	session.StartedAt = &startedAt

	s.cachePaper(ctx, session)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("questions", len(combined)).
		Bool("used_fallback", usedFallback).
		Msg("Session started")

	return s.paperFromSession(session), nil
}

// Paper returns the client-facing view of an ACTIVE session (questions
// without answers, authoritative remaining time). Used for resuming. An
// expired session is finalized on the way through.
func (s *SessionService) Paper(ctx context.Context, sessionID uuid.UUID, userID int) (*model.SessionPaper, error) {
	if paper := s.cachedPaper(ctx, sessionID, userID); paper != nil && paper.TimeRemaining > 0 {
		return paper, nil
	}

	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		if _, err := s.finalize(ctx, session, session.Answers); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotActive
	}
	if session.Status != model.SessionStatusActive {
		// A terminal session must never be resumable; clear any cache entry
		// a failed earlier cleanup left behind.
		s.dropPaperCache(ctx, session.ID, session.UserID)
		return nil, ErrSessionNotActive
	}

	s.cachePaper(ctx, session) // Self-heal the cache for the next read.
	return s.paperFromSession(session), nil
}

// Active returns the paper of the user's current ACTIVE session, if any.
func (s *SessionService) Active(ctx context.Context, userID int) (*model.SessionPaper, error) {
	session, err := s.store.GetNonTerminalByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s.Paper(ctx, session.ID, userID)
}

// SubmitAnswer records one answer, last write wins. Unknown question ids are
// rejected to protect the grading invariant.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, userID int, questionID, answer string) error {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if session.Expired(time.Now()) {
		if _, err := s.finalize(ctx, session, session.Answers); err != nil {
			return err
		}
		return ErrSessionNotActive
	}
	if session.Status != model.SessionStatusActive {
		return ErrSessionNotActive
	}
	if !session.HasQuestion(questionID) {
		return ErrUnknownQuestion
	}

	if err := s.store.SaveAnswer(ctx, session.ID, questionID, answer); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// Complete merges the client's final answer map over previously submitted
// answers and finalizes the session. Idempotent: re-completing an already
// COMPLETED session returns the stored result unchanged and never re-applies
// user stat updates.
func (s *SessionService) Complete(ctx context.Context, sessionID uuid.UUID, userID int, finalAnswers map[string]string) (*ExamResult, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if session.Status == model.SessionStatusCompleted {
		return storedResult(session), nil
	}
	if session.Status != model.SessionStatusActive {
		return nil, ErrSessionNotActive
	}

	// Past the deadline the timer is authoritative: force-complete from the
	// answers submitted in time and discard the late batch.
	if session.Expired(time.Now()) {
		return s.finalize(ctx, session, session.Answers)
	}

	merged := make(map[string]string, len(session.Answers)+len(finalAnswers))
	for qid, ans := range session.Answers {
		merged[qid] = ans
	}
	for qid, ans := range finalAnswers {
		if !session.HasQuestion(qid) {
			return nil, ErrUnknownQuestion
		}
		merged[qid] = ans
	}

	return s.finalize(ctx, session, merged)
}

// Review returns a completed session's questions with correct answers and
// solutions, the user's answers, and the grading breakdown.
func (s *SessionService) Review(ctx context.Context, sessionID uuid.UUID, userID int) (*SessionReview, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, ErrSessionNotCompleted
	}

	return &SessionReview{
		SessionID:   session.ID,
		ExamType:    session.ExamType,
		Subjects:    session.Subjects,
		Questions:   session.Questions,
		Answers:     session.Answers,
		Result:      *storedResult(session),
		CompletedAt: session.CompletedAt,
	}, nil
}

// History lists the user's past sessions, newest first.
func (s *SessionService) History(ctx context.Context, userID int) ([]repository.SessionSummary, error) {
	return s.store.ListByUser(ctx, userID)
}

// Question returns one snapshot from an owned, completed session.
func (s *SessionService) Question(ctx context.Context, sessionID uuid.UUID, userID int, questionID string) (*model.Question, string, error) {
	session, err := s.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, "", err
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, "", ErrSessionNotCompleted
	}
	for i := range session.Questions {
		if session.Questions[i].ID == questionID {
			return &session.Questions[i], session.Answers[questionID], nil
		}
	}
	return nil, "", ErrUnknownQuestion
}

// SessionReview is the payload the review screen consumes.
type SessionReview struct {
	SessionID   uuid.UUID         `json:"session_id"`
	ExamType    string            `json:"exam_type"`
	Subjects    []string          `json:"subjects"`
	Questions   []model.Question  `json:"questions"`
	Answers     map[string]string `json:"answers"`
	Result      ExamResult        `json:"result"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// ─── Internals ──────────────────────────────────────────────────────

// finalize scores and completes an ACTIVE session exactly once. If another
// request completed it concurrently, the stored result is returned and stats
// are not re-applied.
func (s *SessionService) finalize(ctx context.Context, session *model.ExamSession, answers map[string]string) (*ExamResult, error) {
	result := ScoreExam(session.Questions, answers)

	won, err := s.store.Complete(ctx, session.ID, answers,
		result.Score, result.CorrectAnswers, result.TotalQuestions, time.Now())
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}

	if !won {
		// Lost the race — return what the winner persisted.
		fresh, err := s.store.GetByID(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("reload completed session: %w", err)
		}
		return storedResult(fresh), nil
	}

	if err := s.users.ApplyExamResult(ctx, session.UserID, result.CorrectAnswers); err != nil {
		// The session is completed either way; stats are best-effort.
		s.log.Error().Err(err).
			Str("session_id", session.ID.String()).
			Msg("Apply user stats failed")
	}

	s.dropPaperCache(ctx, session.ID, session.UserID)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("score", result.Score).
		Int("correct", result.CorrectAnswers).
		Int("total", result.TotalQuestions).
		Msg("Session completed")

	return &result, nil
}

func (s *SessionService) ownedSession(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

func (s *SessionService) paperFromSession(session *model.ExamSession) *model.SessionPaper {
	questions := make([]model.QuestionForStudent, len(session.Questions))
	for i, q := range session.Questions {
		questions[i] = q.ForStudent()
	}
	return &model.SessionPaper{
		SessionID:     session.ID,
		ExamType:      session.ExamType,
		Subjects:      session.Subjects,
		Questions:     questions,
		TimeAllowed:   session.TimeAllowed,
		TimeRemaining: session.TimeRemaining(time.Now()),
	}
}

// storedResult rebuilds an ExamResult from a completed session's persisted
// columns, recomputing the breakdown from the embedded snapshots.
func storedResult(session *model.ExamSession) *ExamResult {
	result := ScoreExam(session.Questions, session.Answers)
	if session.Score != nil {
		result.Score = *session.Score
	}
	if session.CorrectAnswers != nil {
		result.CorrectAnswers = *session.CorrectAnswers
	}
	if session.TotalQuestions != nil {
		result.TotalQuestions = *session.TotalQuestions
	}
	return &result
}

// normalizeSubjects lower-cases, de-duplicates, and checks the catalog.
func normalizeSubjects(raw []string) ([]string, error) {
	if len(raw) != SubjectCount {
		return nil, ErrInvalidSubjects
	}
	seen := make(map[string]struct{}, SubjectCount)
	subjects := make([]string, 0, SubjectCount)
	for _, name := range raw {
		subject := model.NormalizeSubject(name)
		if !model.IsKnownSubject(subject) {
			return nil, ErrInvalidSubjects
		}
		if _, dup := seen[subject]; dup {
			return nil, ErrInvalidSubjects
		}
		seen[subject] = struct{}{}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// ─── Redis paper cache ──────────────────────────────────────────────
// The assembled paper is cached for the session's lifetime so resume reads
// skip PostgreSQL. Redis is an optimization only: misses fall back to the
// session row and self-heal.

func (s *SessionService) cachePaper(ctx context.Context, session *model.ExamSession) {
	if s.rdb == nil || session.StartedAt == nil {
		return
	}
	paper := s.paperFromSession(session)
	payload, err := json.Marshal(paper)
	if err != nil {
		return
	}
	ttl := time.Duration(session.TimeAllowed)*time.Second + time.Hour

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.SessionPaperKey(session.ID.String()), payload, ttl)
	pipe.Set(ctx, config.CacheKey.SessionStartKey(session.ID.String()), session.StartedAt.Unix(), ttl)
	pipe.Set(ctx, config.CacheKey.UserActiveSessionKey(session.UserID), session.ID.String(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Paper cache write failed")
	}
}

// cachedPaper returns the cached paper with remaining time recomputed from
// the cached start timestamp. Any miss or decode problem returns nil. A hit
// is cross-checked against the session's persisted status so a completion
// whose cache cleanup failed cannot keep serving a stale ACTIVE view.
func (s *SessionService) cachedPaper(ctx context.Context, sessionID uuid.UUID, userID int) *model.SessionPaper {
	if s.rdb == nil {
		return nil
	}

	owner, err := s.rdb.Get(ctx, config.CacheKey.UserActiveSessionKey(userID)).Result()
	if err != nil || owner != sessionID.String() {
		return nil
	}

	status, err := s.store.GetStatus(ctx, sessionID)
	if err != nil {
		return nil
	}
	if status != model.SessionStatusActive {
		s.dropPaperCache(ctx, sessionID, userID)
		return nil
	}

	data, err := s.rdb.Get(ctx, config.CacheKey.SessionPaperKey(sessionID.String())).Bytes()
	if err != nil {
		return nil
	}
	var paper model.SessionPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil
	}

	startUnix, err := s.rdb.Get(ctx, config.CacheKey.SessionStartKey(sessionID.String())).Int64()
	if err != nil {
		return nil
	}
	remaining := paper.TimeAllowed - int(time.Since(time.Unix(startUnix, 0)).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	paper.TimeRemaining = remaining

	return &paper
}

func (s *SessionService) dropPaperCache(ctx context.Context, sessionID uuid.UUID, userID int) {
	if s.rdb == nil {
		return
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.SessionPaperKey(sessionID.String()))
	pipe.Del(ctx, config.CacheKey.SessionStartKey(sessionID.String()))
	pipe.Del(ctx, config.CacheKey.UserActiveSessionKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Paper cache cleanup failed")
	}
}
