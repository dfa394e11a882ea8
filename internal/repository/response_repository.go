package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/provexlabs/provex-backend/internal/model"
)

// ResponseRepository handles answer data access.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Upsert stores an answer keyed by (session, question). A second submission
// for the same question overwrites the earlier row — the latest write wins,
// no history is kept. The single INSERT ... ON CONFLICT keeps concurrent
// submissions atomic.
func (r *ResponseRepository) Upsert(ctx context.Context, resp *model.Response) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO responses (session_id, question_id, selected_answer, is_correct)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, question_id)
		 DO UPDATE SET selected_answer = EXCLUDED.selected_answer,
		               is_correct = EXCLUDED.is_correct
		 RETURNING id`,
		resp.SessionID, resp.QuestionID, resp.SelectedAnswer, resp.IsCorrect,
	).Scan(&resp.ID)
}

// CountCorrect returns the number of correct answers recorded for a session.
// This is the whole scoring engine: a pure aggregation over stored
// responses, recomputed in full at submission time. Unanswered questions
// simply contribute nothing.
func (r *ResponseRepository) CountCorrect(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM responses WHERE session_id = $1 AND is_correct`, sessionID,
	).Scan(&count)
	return count, err
}

// ListBySession retrieves all answers recorded for a session.
func (r *ResponseRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, selected_answer, is_correct
		 FROM responses
		 WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.ID, &resp.SessionID, &resp.QuestionID, &resp.SelectedAnswer, &resp.IsCorrect); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}
