package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/provexlabs/provex-backend/internal/model"
)

// ExamSessionRepository handles exam session data access. Every lookup is
// scoped by the owning user — a session that exists under a different owner
// is indistinguishable from one that does not exist (pgx.ErrNoRows either
// way), so handlers cannot leak existence.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a new exam session and fills in its ID and start time.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (user_id, subject, difficulty, total_questions, is_endless)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, start_time`,
		s.UserID, s.Subject, s.Difficulty, s.TotalQuestions, s.IsEndless,
	).Scan(&s.ID, &s.StartTime)
}

// GetByIDAndOwner retrieves a session owned by the given user.
func (r *ExamSessionRepository) GetByIDAndOwner(ctx context.Context, id uuid.UUID, userID int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, subject, difficulty, start_time, end_time,
		        score, total_questions, is_completed, is_endless
		 FROM exam_sessions
		 WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&s.ID, &s.UserID, &s.Subject, &s.Difficulty, &s.StartTime, &s.EndTime,
		&s.Score, &s.TotalQuestions, &s.IsCompleted, &s.IsEndless)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByOwner retrieves all sessions for a user, newest first.
func (r *ExamSessionRepository) ListByOwner(ctx context.Context, userID int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, subject, difficulty, start_time, end_time,
		        score, total_questions, is_completed, is_endless
		 FROM exam_sessions
		 WHERE user_id = $1
		 ORDER BY start_time DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Subject, &s.Difficulty, &s.StartTime, &s.EndTime,
			&s.Score, &s.TotalQuestions, &s.IsCompleted, &s.IsEndless); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// IncrementTotal bumps total_questions by one in a single statement and
// returns the new value. The in-database increment keeps concurrent expands
// from both reading N and both writing N+1.
func (r *ExamSessionRepository) IncrementTotal(ctx context.Context, id uuid.UUID, userID int) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET total_questions = total_questions + 1
		 WHERE id = $1 AND user_id = $2
		 RETURNING total_questions`, id, userID,
	).Scan(&total)
	return total, err
}

// Complete finalizes a session: sets the score, marks it completed and
// stamps the end time, all in one statement. Calling it again overwrites
// with the same recomputed score, which keeps submission idempotent in
// effect.
func (r *ExamSessionRepository) Complete(ctx context.Context, id uuid.UUID, userID int, score int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET score = $1, is_completed = TRUE, end_time = NOW()
		 WHERE id = $2 AND user_id = $3
		 RETURNING id, user_id, subject, difficulty, start_time, end_time,
		           score, total_questions, is_completed, is_endless`,
		score, id, userID,
	).Scan(&s.ID, &s.UserID, &s.Subject, &s.Difficulty, &s.StartTime, &s.EndTime,
		&s.Score, &s.TotalQuestions, &s.IsCompleted, &s.IsEndless)
	if err != nil {
		return nil, err
	}
	return s, nil
}
