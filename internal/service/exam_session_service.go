package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/provexlabs/provex-backend/internal/generator"
	"github.com/provexlabs/provex-backend/internal/model"
)

// Common exam session errors.
var (
	// ErrSessionNotFound covers both "does not exist" and "exists under a
	// different owner" — callers must not be able to tell them apart.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrQuestionNotFound covers questions that do not exist or belong to a
	// different session.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNotEndless is returned when expand is called on a fixed-size session.
	ErrNotEndless = errors.New("session is not endless")
)

// SessionStore is the session persistence the lifecycle depends on.
// Implemented by repository.ExamSessionRepository.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByIDAndOwner(ctx context.Context, id uuid.UUID, userID int) (*model.ExamSession, error)
	ListByOwner(ctx context.Context, userID int) ([]model.ExamSession, error)
	IncrementTotal(ctx context.Context, id uuid.UUID, userID int) (int, error)
	Complete(ctx context.Context, id uuid.UUID, userID int, score int) (*model.ExamSession, error)
}

// QuestionStore is the question persistence the lifecycle depends on.
// Implemented by repository.QuestionRepository.
type QuestionStore interface {
	Create(ctx context.Context, q *model.Question) error
	CreateBatch(ctx context.Context, questions []model.Question) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Question, error)
	GetByIDAndSession(ctx context.Context, id, sessionID uuid.UUID) (*model.Question, error)
}

// ResponseStore is the answer persistence the lifecycle depends on.
// Implemented by repository.ResponseRepository.
type ResponseStore interface {
	Upsert(ctx context.Context, resp *model.Response) error
	CountCorrect(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// ExamSessionService orchestrates the exam lifecycle: setup, answering,
// endless expansion, submission and result readback. All operations are
// scoped to the requesting user's identity.
type ExamSessionService struct {
	sessions  SessionStore
	questions QuestionStore
	responses ResponseStore
	source    generator.Source
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	sessions SessionStore,
	questions QuestionStore,
	responses ResponseStore,
	source generator.Source,
) *ExamSessionService {
	return &ExamSessionService{
		sessions:  sessions,
		questions: questions,
		responses: responses,
		source:    source,
	}
}

// CreateSession generates the initial question set for the mode (5 for
// normal, 1 for endless), persists the session and its questions, and
// returns both. Generation cannot fail in a caller-visible way (the
// generator falls back internally), so the only failures here are
// persistence errors, which are fatal.
func (s *ExamSessionService) CreateSession(ctx context.Context, userID int, subject, difficulty string, mode model.ExamMode) (*model.ExamSession, []model.Question, error) {
	generated, err := s.source.Generate(ctx, subject, difficulty, mode.InitialQuestionCount())
	if err != nil {
		return nil, nil, fmt.Errorf("generate questions: %w", err)
	}

	session := &model.ExamSession{
		UserID:         userID,
		Subject:        subject,
		Difficulty:     difficulty,
		TotalQuestions: len(generated),
		IsEndless:      mode == model.ExamModeEndless,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	questions := make([]model.Question, len(generated))
	for i, g := range generated {
		questions[i] = model.Question{
			SessionID:     session.ID,
			Text:          g.Text,
			Options:       g.Options,
			CorrectAnswer: g.CorrectAnswer,
		}
	}
	if err := s.questions.CreateBatch(ctx, questions); err != nil {
		return nil, nil, fmt.Errorf("persist questions: %w", err)
	}

	return session, questions, nil
}

// GetSession returns a session and its questions, or ErrSessionNotFound.
func (s *ExamSessionService) GetSession(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, []model.Question, error) {
	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}

	questions, err := s.questions.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list questions: %w", err)
	}

	return session, questions, nil
}

// ListSessions returns all of the user's sessions, newest first.
func (s *ExamSessionService) ListSessions(ctx context.Context, userID int) ([]model.ExamSession, error) {
	sessions, err := s.sessions.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// SaveAnswer records the selected answer for a question, computing
// correctness by exact string equality against the stored correct answer.
// Re-answering the same question overwrites the earlier response.
func (s *ExamSessionService) SaveAnswer(ctx context.Context, sessionID uuid.UUID, userID int, questionID uuid.UUID, selectedAnswer string) (*model.Response, error) {
	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	question, err := s.questions.GetByIDAndSession(ctx, questionID, session.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}

	resp := &model.Response{
		SessionID:      session.ID,
		QuestionID:     question.ID,
		SelectedAnswer: selectedAnswer,
		IsCorrect:      selectedAnswer == question.CorrectAnswer,
	}
	if err := s.responses.Upsert(ctx, resp); err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}

	return resp, nil
}

// Expand appends one freshly generated question to an endless session and
// returns it along with the updated question total. Non-endless sessions
// are rejected with ErrNotEndless before anything is generated or written.
func (s *ExamSessionService) Expand(ctx context.Context, sessionID uuid.UUID, userID int) (*model.Question, int, error) {
	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, 0, err
	}
	if !session.IsEndless {
		return nil, 0, ErrNotEndless
	}

	generated, err := s.source.Generate(ctx, session.Subject, session.Difficulty, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("generate question: %w", err)
	}

	question := &model.Question{
		SessionID:     session.ID,
		Text:          generated[0].Text,
		Options:       generated[0].Options,
		CorrectAnswer: generated[0].CorrectAnswer,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, 0, fmt.Errorf("persist question: %w", err)
	}

	total, err := s.sessions.IncrementTotal(ctx, session.ID, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("increment total: %w", err)
	}

	return question, total, nil
}

// Complete recomputes the score from stored responses and finalizes the
// session. Submitting twice recomputes the same score and leaves the
// session completed — idempotent in effect. Unanswered questions are never
// credited; completing with zero responses yields score 0.
func (s *ExamSessionService) Complete(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	session, err := s.getOwned(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	score, err := s.responses.CountCorrect(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("compute score: %w", err)
	}

	completed, err := s.sessions.Complete(ctx, session.ID, userID, score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("complete session: %w", err)
	}

	return completed, nil
}

// Result returns the session summary (score, totals, completion state).
func (s *ExamSessionService) Result(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	return s.getOwned(ctx, sessionID, userID)
}

func (s *ExamSessionService) getOwned(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	session, err := s.sessions.GetByIDAndOwner(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}
