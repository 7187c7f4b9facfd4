package service

import (
	"context"
	"testing"
	"time"

	"github.com/cbtprep/cbtprep-backend/internal/config"
	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/cbtprep/cbtprep-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, s *model.ExamSession) error {
	args := m.Called(ctx, s)
	if args.Error(0) == nil && s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExamSession), args.Error(1)
}

func (m *MockSessionStore) GetNonTerminalByUser(ctx context.Context, userID int) (*model.ExamSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExamSession), args.Error(1)
}

func (m *MockSessionStore) Activate(ctx context.Context, id uuid.UUID, questions []model.Question, usedFallback bool, startedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, questions, usedFallback, startedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) GetStatus(ctx context.Context, id uuid.UUID) (model.SessionStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.SessionStatus), args.Error(1)
}

func (m *MockSessionStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionStore) SaveAnswer(ctx context.Context, id uuid.UUID, questionID, answer string) error {
	args := m.Called(ctx, id, questionID, answer)
	return args.Error(0)
}

func (m *MockSessionStore) Complete(ctx context.Context, id uuid.UUID, answers map[string]string, score, correct, total int, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, answers, score, correct, total, completedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) ListByUser(ctx context.Context, userID int) ([]repository.SessionSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.SessionSummary), args.Error(1)
}

type MockQuestionSource struct {
	mock.Mock
}

func (m *MockQuestionSource) FetchQuestions(ctx context.Context, subject string, count int, examType string) []model.Question {
	args := m.Called(ctx, subject, count, examType)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.Question)
}

type MockFallbackSource struct {
	mock.Mock
}

func (m *MockFallbackSource) Generate(subject string, count int, examType string) []model.Question {
	args := m.Called(subject, count, examType)
	return args.Get(0).([]model.Question)
}

type MockStatsStore struct {
	mock.Mock
}

func (m *MockStatsStore) ApplyExamResult(ctx context.Context, id, correctAnswers int) error {
	args := m.Called(ctx, id, correctAnswers)
	return args.Error(0)
}

type sessionFixture struct {
	svc      *SessionService
	store    *MockSessionStore
	source   *MockQuestionSource
	fallback *MockFallbackSource
	stats    *MockStatsStore
	users    *MockUserStore
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	cfg := &config.Config{
		QuestionsPerSubject: 2,
		ExamDuration:        2 * time.Hour,
		UnlockCodes:         []string{"CBT2024"},
	}
	f := &sessionFixture{
		store:    new(MockSessionStore),
		source:   new(MockQuestionSource),
		fallback: new(MockFallbackSource),
		stats:    new(MockStatsStore),
		users:    new(MockUserStore),
	}
	access := NewAccessService(cfg, f.users, new(MockPaymentStore), zerolog.Nop())
	f.svc = NewSessionService(cfg, f.store, f.source, f.fallback, f.stats, access, nil, zerolog.Nop())
	return f
}

func sourceQuestions(subject string, count int) []model.Question {
	qs := make([]model.Question, count)
	for i := range qs {
		qs[i] = model.Question{
			ID:      uuid.New().String(),
			Subject: subject,
			Answer:  "A",
			Source:  model.QuestionSourceAPI,
		}
	}
	return qs
}

var fourSubjects = []string{"english", "mathematics", "physics", "chemistry"}

func TestCreateSession_RejectsBadSubjectSelections(t *testing.T) {
	f := newSessionFixture(t)

	cases := [][]string{
		{"english", "mathematics", "physics"},                             // too few
		{"english", "mathematics", "physics", "chemistry", "biology"},     // too many
		{"english", "english", "physics", "chemistry"},                    // duplicate
		{"english", "mathematics", "physics", "underwater-basket-making"}, // unknown
	}

	for _, subjects := range cases {
		_, err := f.svc.Create(context.Background(), 1, model.CreateSessionRequest{Subjects: subjects})
		assert.ErrorIs(t, err, ErrInvalidSubjects, "subjects %v", subjects)
	}
}

func TestCreateSession_CaseInsensitiveDuplicateRejected(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Create(context.Background(), 1, model.CreateSessionRequest{
		Subjects: []string{"English", "english", "physics", "chemistry"},
	})
	assert.ErrorIs(t, err, ErrInvalidSubjects)
}

func TestCreateSession_DeniedWithoutPremiumOrCode(t *testing.T) {
	f := newSessionFixture(t)
	f.users.On("GetByID", mock.Anything, 1).Return(&model.User{ID: 1}, nil)

	_, err := f.svc.Create(context.Background(), 1, model.CreateSessionRequest{Subjects: fourSubjects})

	assert.ErrorIs(t, err, ErrAccessDenied)
	f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateSession_RejectsSecondOpenSession(t *testing.T) {
	f := newSessionFixture(t)
	f.users.On("GetByID", mock.Anything, 1).Return(&model.User{ID: 1, IsPremium: true}, nil)

	started := time.Now().Add(-time.Minute)
	f.store.On("GetNonTerminalByUser", mock.Anything, 1).Return(&model.ExamSession{
		ID:          uuid.New(),
		UserID:      1,
		Status:      model.SessionStatusActive,
		TimeAllowed: 7200,
		StartedAt:   &started,
	}, nil)

	_, err := f.svc.Create(context.Background(), 1, model.CreateSessionRequest{Subjects: fourSubjects})

	assert.ErrorIs(t, err, ErrSessionInProgress)
}

func TestCreateSession_PremiumUserSucceeds(t *testing.T) {
	f := newSessionFixture(t)
	f.users.On("GetByID", mock.Anything, 1).Return(&model.User{ID: 1, IsPremium: true}, nil)
	f.store.On("GetNonTerminalByUser", mock.Anything, 1).Return(nil, pgx.ErrNoRows)
	f.store.On("Create", mock.Anything, mock.AnythingOfType("*model.ExamSession")).Return(nil)

	session, err := f.svc.Create(context.Background(), 1, model.CreateSessionRequest{Subjects: fourSubjects})

	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusSetup, session.Status)
	assert.Equal(t, model.ExamTypeUTME, session.ExamType)
	assert.Equal(t, fourSubjects, session.Subjects)
	assert.Equal(t, 7200, session.TimeAllowed)
}

func TestStartSession_AssemblesFullPaperWithoutFallback(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()

	f.store.On("GetByID", mock.Anything, sessionID).Return(&model.ExamSession{
		ID:       sessionID,
		UserID:   1,
		ExamType: model.ExamTypeUTME,
		Subjects: fourSubjects,
		Status:   model.SessionStatusSetup,
	}, nil)
	for _, subject := range fourSubjects {
		f.source.On("FetchQuestions", mock.Anything, subject, 2, model.ExamTypeUTME).
			Return(sourceQuestions(subject, 2))
	}
	f.store.On("Activate", mock.Anything, sessionID, mock.Anything, false, mock.Anything).Return(true, nil)

	paper, err := f.svc.Start(context.Background(), sessionID, 1)

	require.NoError(t, err)
	assert.Len(t, paper.Questions, 8)
	f.fallback.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartSession_TopsUpShortfallWithFallback(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()

	f.store.On("GetByID", mock.Anything, sessionID).Return(&model.ExamSession{
		ID:       sessionID,
		UserID:   1,
		ExamType: model.ExamTypeUTME,
		Subjects: fourSubjects,
		Status:   model.SessionStatusSetup,
	}, nil)

	// Source delivers nothing for physics and only one for chemistry.
	english := sourceQuestions("english", 2)
	mathematics := sourceQuestions("mathematics", 2)
	chemistryFetched := sourceQuestions("chemistry", 1)
	physicsGenerated := sourceQuestions("physics", 2)
	chemistryGenerated := sourceQuestions("chemistry", 1)

	f.source.On("FetchQuestions", mock.Anything, "english", 2, model.ExamTypeUTME).Return(english)
	f.source.On("FetchQuestions", mock.Anything, "mathematics", 2, model.ExamTypeUTME).Return(mathematics)
	f.source.On("FetchQuestions", mock.Anything, "physics", 2, model.ExamTypeUTME).Return([]model.Question(nil))
	f.source.On("FetchQuestions", mock.Anything, "chemistry", 2, model.ExamTypeUTME).Return(chemistryFetched)

	f.fallback.On("Generate", "physics", 2, model.ExamTypeUTME).Return(physicsGenerated)
	f.fallback.On("Generate", "chemistry", 1, model.ExamTypeUTME).Return(chemistryGenerated)

	f.store.On("Activate", mock.Anything, sessionID, mock.Anything, true, mock.Anything).Return(true, nil)

	paper, err := f.svc.Start(context.Background(), sessionID, 1)

	require.NoError(t, err)
	assert.Len(t, paper.Questions, 8)

	perSubject := map[string]int{}
	for _, q := range paper.Questions {
		perSubject[q.Subject]++
	}
	for _, subject := range fourSubjects {
		assert.Equal(t, 2, perSubject[subject], subject)
	}

	// The shuffle must be a pure permutation: exactly the supplied ids,
	// nothing minted, nothing dropped.
	supplied := map[string]bool{}
	for _, batch := range [][]model.Question{english, mathematics, chemistryFetched, physicsGenerated, chemistryGenerated} {
		for _, q := range batch {
			supplied[q.ID] = true
		}
	}
	got := map[string]bool{}
	for _, q := range paper.Questions {
		got[q.ID] = true
	}
	assert.Equal(t, supplied, got)
	f.fallback.AssertExpectations(t)
}

func TestStartSession_LostActivationRaceServesPersistedPaper(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()

	f.store.On("GetByID", mock.Anything, sessionID).Return(&model.ExamSession{
		ID:       sessionID,
		UserID:   1,
		ExamType: model.ExamTypeUTME,
		Subjects: fourSubjects,
		Status:   model.SessionStatusSetup,
	}, nil).Once()
	for _, subject := range fourSubjects {
		f.source.On("FetchQuestions", mock.Anything, subject, 2, model.ExamTypeUTME).
			Return(sourceQuestions(subject, 2))
	}
	f.store.On("Activate", mock.Anything, sessionID, mock.Anything, false, mock.Anything).Return(false, nil)

	// A concurrent start won the SETUP→ACTIVE transition with its own
	// question set; the loser must serve that set, not its own assembly.
	started := time.Now().Add(-time.Second)
	winner := &model.ExamSession{
		ID:          sessionID,
		UserID:      1,
		ExamType:    model.ExamTypeUTME,
		Subjects:    fourSubjects,
		Status:      model.SessionStatusActive,
		TimeAllowed: 7200,
		StartedAt:   &started,
	}
	for _, subject := range fourSubjects {
		winner.Questions = append(winner.Questions, sourceQuestions(subject, 2)...)
	}
	f.store.On("GetByID", mock.Anything, sessionID).Return(winner, nil).Once()

	paper, err := f.svc.Start(context.Background(), sessionID, 1)

	require.NoError(t, err)
	require.Len(t, paper.Questions, 8)
	for i, q := range paper.Questions {
		assert.Equal(t, winner.Questions[i].ID, q.ID)
	}
	f.store.AssertExpectations(t)
}

func TestStartSession_NotOwnerRejected(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()

	f.store.On("GetByID", mock.Anything, sessionID).Return(&model.ExamSession{
		ID:     sessionID,
		UserID: 2,
		Status: model.SessionStatusSetup,
	}, nil)

	_, err := f.svc.Start(context.Background(), sessionID, 1)

	assert.ErrorIs(t, err, ErrNotSessionOwner)
}

func activeSession(sessionID uuid.UUID, userID int) *model.ExamSession {
	started := time.Now().Add(-10 * time.Minute)
	questions := append(sourceQuestions("english", 2), sourceQuestions("physics", 2)...)
	return &model.ExamSession{
		ID:          sessionID,
		UserID:      userID,
		ExamType:    model.ExamTypeUTME,
		Subjects:    []string{"english", "physics"},
		Status:      model.SessionStatusActive,
		Questions:   questions,
		Answers:     map[string]string{},
		TimeAllowed: 7200,
		StartedAt:   &started,
	}
}

func TestPaper_TerminalSessionIsNotResumable(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	session := activeSession(sessionID, 1)
	session.Status = model.SessionStatusCompleted

	f.store.On("GetByID", mock.Anything, sessionID).Return(session, nil)

	_, err := f.svc.Paper(context.Background(), sessionID, 1)

	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestSubmitAnswer_UnknownQuestionRejected(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	f.store.On("GetByID", mock.Anything, sessionID).Return(activeSession(sessionID, 1), nil)

	err := f.svc.SubmitAnswer(context.Background(), sessionID, 1, uuid.New().String(), "A")

	assert.ErrorIs(t, err, ErrUnknownQuestion)
	f.store.AssertNotCalled(t, "SaveAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitAnswer_SavesKnownQuestion(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	session := activeSession(sessionID, 1)
	f.store.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	f.store.On("SaveAnswer", mock.Anything, sessionID, session.Questions[0].ID, "C").Return(nil)

	err := f.svc.SubmitAnswer(context.Background(), sessionID, 1, session.Questions[0].ID, "C")

	require.NoError(t, err)
	f.store.AssertExpectations(t)
}

func TestSubmitAnswer_ExpiredSessionIsFinalized(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	session := activeSession(sessionID, 1)
	expired := time.Now().Add(-3 * time.Hour)
	session.StartedAt = &expired

	f.store.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	f.store.On("Complete", mock.Anything, sessionID, mock.Anything, 0, 0, 4, mock.Anything).Return(true, nil)
	f.stats.On("ApplyExamResult", mock.Anything, 1, 0).Return(nil)

	err := f.svc.SubmitAnswer(context.Background(), sessionID, 1, session.Questions[0].ID, "A")

	assert.ErrorIs(t, err, ErrSessionNotActive)
	f.store.AssertExpectations(t)
}

func TestComplete_MergesFinalAnswersLastWriteWins(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	session := activeSession(sessionID, 1)
	q0, q1 := session.Questions[0].ID, session.Questions[1].ID
	session.Answers = map[string]string{q0: "B"} // submitted earlier, will be overwritten

	expectedAnswers := map[string]string{q0: "A", q1: "A"}

	f.store.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	f.store.On("Complete", mock.Anything, sessionID, expectedAnswers, 50, 2, 4, mock.Anything).Return(true, nil)
	f.stats.On("ApplyExamResult", mock.Anything, 1, 2).Return(nil)

	result, err := f.svc.Complete(context.Background(), sessionID, 1, map[string]string{q0: "A", q1: "A"})

	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Equal(t, 4, result.TotalQuestions)
	f.store.AssertExpectations(t)
	f.stats.AssertExpectations(t)
}

func TestComplete_ExpiredSessionDiscardsLateAnswers(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	session := activeSession(sessionID, 1)
	expired := time.Now().Add(-5 * time.Hour)
	session.StartedAt = &expired

	// Only the answers persisted before the deadline count; the empty stored
	// map must be what gets graded, never the late batch.
	f.store.On("GetByID", mock.Anything, sessionID).Return(session, nil)
	f.store.On("Complete", mock.Anything, sessionID, map[string]string{}, 0, 0, 4, mock.Anything).Return(true, nil)
	f.stats.On("ApplyExamResult", mock.Anything, 1, 0).Return(nil)

	late := map[string]string{session.Questions[0].ID: "A"}
	result, err := f.svc.Complete(context.Background(), sessionID, 1, late)

	require.NoError(t, err)
	assert.Equal(t, 0, result.CorrectAnswers)
	assert.Equal(t, 0, result.Score)
	f.store.AssertExpectations(t)
	f.stats.AssertExpectations(t)
}

func TestComplete_UnknownFinalAnswerRejected(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	f.store.On("GetByID", mock.Anything, sessionID).Return(activeSession(sessionID, 1), nil)

	_, err := f.svc.Complete(context.Background(), sessionID, 1, map[string]string{"stray": "A"})

	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestComplete_AlreadyCompletedReturnsStoredResult(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	session := activeSession(sessionID, 1)
	session.Status = model.SessionStatusCompleted
	score, correct, total := 75, 3, 4
	session.Score, session.CorrectAnswers, session.TotalQuestions = &score, &correct, &total

	f.store.On("GetByID", mock.Anything, sessionID).Return(session, nil)

	result, err := f.svc.Complete(context.Background(), sessionID, 1, nil)

	require.NoError(t, err)
	assert.Equal(t, 75, result.Score)
	assert.Equal(t, 3, result.CorrectAnswers)
	f.store.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.stats.AssertNotCalled(t, "ApplyExamResult", mock.Anything, mock.Anything, mock.Anything)
}

func TestComplete_LostRaceReturnsWinnersResult(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	session := activeSession(sessionID, 1)

	winner := activeSession(sessionID, 1)
	winner.Status = model.SessionStatusCompleted
	score, correct, total := 25, 1, 4
	winner.Score, winner.CorrectAnswers, winner.TotalQuestions = &score, &correct, &total

	f.store.On("GetByID", mock.Anything, sessionID).Return(session, nil).Once()
	f.store.On("Complete", mock.Anything, sessionID, mock.Anything, 0, 0, 4, mock.Anything).Return(false, nil)
	f.store.On("GetByID", mock.Anything, sessionID).Return(winner, nil).Once()

	result, err := f.svc.Complete(context.Background(), sessionID, 1, nil)

	require.NoError(t, err)
	assert.Equal(t, 25, result.Score)
	f.stats.AssertNotCalled(t, "ApplyExamResult", mock.Anything, mock.Anything, mock.Anything)
}

func TestReview_RequiresCompletedSession(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	f.store.On("GetByID", mock.Anything, sessionID).Return(activeSession(sessionID, 1), nil)

	_, err := f.svc.Review(context.Background(), sessionID, 1)

	assert.ErrorIs(t, err, ErrSessionNotCompleted)
}

func TestReview_ReturnsQuestionsAnswersAndBreakdown(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := uuid.New()
	session := activeSession(sessionID, 1)
	session.Status = model.SessionStatusCompleted
	session.Answers = map[string]string{session.Questions[0].ID: "A"}
	score, correct, total := 25, 1, 4
	session.Score, session.CorrectAnswers, session.TotalQuestions = &score, &correct, &total

	f.store.On("GetByID", mock.Anything, sessionID).Return(session, nil)

	review, err := f.svc.Review(context.Background(), sessionID, 1)

	require.NoError(t, err)
	assert.Len(t, review.Questions, 4)
	assert.Equal(t, 25, review.Result.Score)
	assert.Equal(t, SubjectScore{Correct: 1, Total: 2}, review.Result.SubjectBreakdown["english"])
	assert.Equal(t, SubjectScore{Correct: 0, Total: 2}, review.Result.SubjectBreakdown["physics"])
}
