package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/provexlabs/provex-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a single question and fills in its ID.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (session_id, text, options, correct_answer)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		q.SessionID, q.Text, q.Options, q.CorrectAnswer,
	).Scan(&q.ID)
}

// CreateBatch inserts all questions in one round trip and fills in their IDs.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	batch := &pgx.Batch{}
	for i := range questions {
		batch.Queue(
			`INSERT INTO questions (session_id, text, options, correct_answer)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			questions[i].SessionID, questions[i].Text, questions[i].Options, questions[i].CorrectAnswer,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range questions {
		if err := results.QueryRow().Scan(&questions[i].ID); err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return nil
}

// ListBySession retrieves all questions for a session in insertion order.
func (r *QuestionRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, text, options, correct_answer
		 FROM questions
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Text, &q.Options, &q.CorrectAnswer); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByIDAndSession retrieves one question, scoped to its parent session.
func (r *QuestionRepository) GetByIDAndSession(ctx context.Context, id, sessionID uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, text, options, correct_answer
		 FROM questions
		 WHERE id = $1 AND session_id = $2`, id, sessionID,
	).Scan(&q.ID, &q.SessionID, &q.Text, &q.Options, &q.CorrectAnswer)
	if err != nil {
		return nil, err
	}
	return q, nil
}
