package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/provexlabs/provex-backend/internal/generator"
	"github.com/provexlabs/provex-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory implementation of SessionStore, QuestionStore
// and ResponseStore with the same owner-scoping and upsert semantics as the
// pgx repositories.
type fakeStore struct {
	sessions   map[uuid.UUID]*model.ExamSession
	questions  []*model.Question
	responses  map[[2]uuid.UUID]*model.Response
	nextRespID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:  make(map[uuid.UUID]*model.ExamSession),
		responses: make(map[[2]uuid.UUID]*model.Response),
	}
}

func (f *fakeStore) Create(_ context.Context, s *model.ExamSession) error {
	s.ID = uuid.New()
	s.StartTime = time.Now()
	stored := *s
	f.sessions[s.ID] = &stored
	return nil
}

func (f *fakeStore) GetByIDAndOwner(_ context.Context, id uuid.UUID, userID int) (*model.ExamSession, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ListByOwner(_ context.Context, userID int) ([]model.ExamSession, error) {
	var out []model.ExamSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) IncrementTotal(_ context.Context, id uuid.UUID, userID int) (int, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return 0, pgx.ErrNoRows
	}
	s.TotalQuestions++
	return s.TotalQuestions, nil
}

func (f *fakeStore) Complete(_ context.Context, id uuid.UUID, userID int, score int) (*model.ExamSession, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	now := time.Now()
	s.Score = score
	s.IsCompleted = true
	s.EndTime = &now
	cp := *s
	return &cp, nil
}

func (f *fakeStore) CreateQuestion(q *model.Question) {
	q.ID = uuid.New()
	stored := *q
	f.questions = append(f.questions, &stored)
}

func (f *fakeStore) CreateBatch(_ context.Context, questions []model.Question) error {
	for i := range questions {
		f.CreateQuestion(&questions[i])
	}
	return nil
}

func (f *fakeStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, q := range f.questions {
		if q.SessionID == sessionID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByIDAndSession(_ context.Context, id, sessionID uuid.UUID) (*model.Question, error) {
	for _, q := range f.questions {
		if q.ID == id && q.SessionID == sessionID {
			cp := *q
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) Upsert(_ context.Context, resp *model.Response) error {
	key := [2]uuid.UUID{resp.SessionID, resp.QuestionID}
	if existing, ok := f.responses[key]; ok {
		existing.SelectedAnswer = resp.SelectedAnswer
		existing.IsCorrect = resp.IsCorrect
		resp.ID = existing.ID
		return nil
	}
	f.nextRespID++
	resp.ID = f.nextRespID
	stored := *resp
	f.responses[key] = &stored
	return nil
}

func (f *fakeStore) CountCorrect(_ context.Context, sessionID uuid.UUID) (int, error) {
	count := 0
	for _, r := range f.responses {
		if r.SessionID == sessionID && r.IsCorrect {
			count++
		}
	}
	return count, nil
}

// questionStoreAdapter maps the fake onto QuestionStore (Create collides
// with the session Create method name, hence the adapter).
type questionStoreAdapter struct{ *fakeStore }

func (a questionStoreAdapter) Create(_ context.Context, q *model.Question) error {
	a.CreateQuestion(q)
	return nil
}

func newService(store *fakeStore) *ExamSessionService {
	// The offline generator is deterministic: every question has four
	// options and "Option A" is always the correct answer.
	source := generator.New("", "", "gpt-4o-mini", time.Second, zerolog.Nop())
	return NewExamSessionService(store, questionStoreAdapter{store}, store, source)
}

const (
	ownerID    = 1
	strangerID = 2
)

func TestCreateSessionNormal(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	session, questions, err := svc.CreateSession(context.Background(), ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)

	assert.Equal(t, 5, session.TotalQuestions)
	assert.False(t, session.IsEndless)
	assert.False(t, session.IsCompleted)
	require.Len(t, questions, 5)
	for _, q := range questions {
		assert.Equal(t, session.ID, q.SessionID)
		assert.Len(t, q.Options, 4)
		assert.Contains(t, q.Options, q.CorrectAnswer)
	}
}

func TestCreateSessionEndless(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	session, questions, err := svc.CreateSession(context.Background(), ownerID, "Go", "Hard", model.ExamModeEndless)
	require.NoError(t, err)

	assert.Equal(t, 1, session.TotalQuestions)
	assert.True(t, session.IsEndless)
	assert.Len(t, questions, 1)
}

func TestGetSessionScopedToOwner(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	session, _, err := svc.CreateSession(context.Background(), ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)

	_, _, err = svc.GetSession(context.Background(), session.ID, strangerID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, questions, err := svc.GetSession(context.Background(), session.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Len(t, questions, 5)
}

func TestSaveAnswerIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, questions, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)
	q := questions[0]

	first, err := svc.SaveAnswer(ctx, session.ID, ownerID, q.ID, "Option A")
	require.NoError(t, err)
	second, err := svc.SaveAnswer(ctx, session.ID, ownerID, q.ID, "Option A")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.SelectedAnswer, second.SelectedAnswer)
	assert.Equal(t, first.IsCorrect, second.IsCorrect)
	assert.Len(t, store.responses, 1)
}

func TestSaveAnswerOverwrites(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, questions, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)
	q := questions[0]

	// Fallback questions always key the first option as correct.
	correct, wrong := q.CorrectAnswer, q.Options[1]

	resp, err := svc.SaveAnswer(ctx, session.ID, ownerID, q.ID, wrong)
	require.NoError(t, err)
	assert.False(t, resp.IsCorrect)

	resp, err = svc.SaveAnswer(ctx, session.ID, ownerID, q.ID, correct)
	require.NoError(t, err)
	assert.True(t, resp.IsCorrect)

	// Only the latest write survives.
	require.Len(t, store.responses, 1)
	stored := store.responses[[2]uuid.UUID{session.ID, q.ID}]
	assert.Equal(t, correct, stored.SelectedAnswer)
	assert.True(t, stored.IsCorrect)
}

func TestSaveAnswerRejectsForeignQuestion(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	sessionA, _, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)
	_, questionsB, err := svc.CreateSession(ctx, ownerID, "Go", "Easy", model.ExamModeNormal)
	require.NoError(t, err)

	_, err = svc.SaveAnswer(ctx, sessionA.ID, ownerID, questionsB[0].ID, "Option A")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestSaveAnswerRejectsNonOwner(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, questions, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)

	_, err = svc.SaveAnswer(ctx, session.ID, strangerID, questions[0].ID, "Option A")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExpandRejectsNormalSession(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)

	_, _, err = svc.Expand(ctx, session.ID, ownerID)
	assert.ErrorIs(t, err, ErrNotEndless)

	// Nothing mutated.
	stored := store.sessions[session.ID]
	assert.Equal(t, 5, stored.TotalQuestions)
	questions, _ := store.ListBySession(ctx, session.ID)
	assert.Len(t, questions, 5)
}

func TestExpandGrowsEndlessSession(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeEndless)
	require.NoError(t, err)
	assert.Equal(t, 1, session.TotalQuestions)

	const expands = 4
	for i := 1; i <= expands; i++ {
		question, total, err := svc.Expand(ctx, session.ID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, 1+i, total)
		assert.Equal(t, session.ID, question.SessionID)
		assert.Len(t, question.Options, 4)
		assert.Contains(t, question.Options, question.CorrectAnswer)
	}

	questions, _ := store.ListBySession(ctx, session.ID)
	assert.Len(t, questions, 1+expands)
	assert.Equal(t, 1+expands, store.sessions[session.ID].TotalQuestions)
}

func TestExpandRejectsNonOwner(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeEndless)
	require.NoError(t, err)

	_, _, err = svc.Expand(ctx, session.ID, strangerID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCompleteScoresOnlyCorrectResponses(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, questions, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)

	// One correct, one wrong, three unanswered.
	_, err = svc.SaveAnswer(ctx, session.ID, ownerID, questions[0].ID, questions[0].CorrectAnswer)
	require.NoError(t, err)
	_, err = svc.SaveAnswer(ctx, session.ID, ownerID, questions[1].ID, questions[1].Options[2])
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, session.ID, ownerID)
	require.NoError(t, err)

	assert.Equal(t, 1, completed.Score)
	assert.Equal(t, 5, completed.TotalQuestions)
	assert.True(t, completed.IsCompleted)
	require.NotNil(t, completed.EndTime)
	assert.LessOrEqual(t, completed.Score, completed.TotalQuestions)
}

func TestCompleteWithNoResponses(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, session.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 0, completed.Score)
	assert.True(t, completed.IsCompleted)
}

func TestCompleteIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, questions, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)
	_, err = svc.SaveAnswer(ctx, session.ID, ownerID, questions[0].ID, questions[0].CorrectAnswer)
	require.NoError(t, err)

	first, err := svc.Complete(ctx, session.ID, ownerID)
	require.NoError(t, err)
	second, err := svc.Complete(ctx, session.ID, ownerID)
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.True(t, second.IsCompleted)
}

func TestResultRequiresOwnership(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	session, _, err := svc.CreateSession(ctx, ownerID, "Python", "Easy", model.ExamModeNormal)
	require.NoError(t, err)

	_, err = svc.Result(ctx, session.ID, strangerID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	result, err := svc.Result(ctx, session.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, result.ID)
}
