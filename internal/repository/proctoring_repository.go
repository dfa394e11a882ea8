package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/provexlabs/provex-backend/internal/model"
)

// ProctoringRepository handles append-only proctoring event and snapshot
// persistence. Rows are only ever inserted; cleanup happens through the
// cascade when the parent session is deleted.
type ProctoringRepository struct {
	pool *pgxpool.Pool
}

// NewProctoringRepository creates a new ProctoringRepository.
func NewProctoringRepository(pool *pgxpool.Pool) *ProctoringRepository {
	return &ProctoringRepository{pool: pool}
}

// BulkInsertEvents inserts a batch of proctoring events with COPY.
func (r *ProctoringRepository) BulkInsertEvents(ctx context.Context, events []model.ProctoringEvent) error {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{e.SessionID, e.EventType, e.Details, e.RecordedAt})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctoring_events"},
		[]string{"session_id", "event_type", "details", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// InsertEvent inserts a single proctoring event. Used as the row-by-row
// recovery path when a bulk COPY fails.
func (r *ProctoringRepository) InsertEvent(ctx context.Context, e *model.ProctoringEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctoring_events (session_id, event_type, details, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		e.SessionID, e.EventType, e.Details, e.RecordedAt,
	)
	return err
}

// BulkInsertSnapshots inserts a batch of webcam snapshots with COPY.
func (r *ProctoringRepository) BulkInsertSnapshots(ctx context.Context, snapshots []model.Snapshot) error {
	rows := make([][]interface{}, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []interface{}{s.SessionID, s.ImageData, s.RecordedAt})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"snapshots"},
		[]string{"session_id", "image_data", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// InsertSnapshot inserts a single snapshot (bulk-failure recovery path).
func (r *ProctoringRepository) InsertSnapshot(ctx context.Context, s *model.Snapshot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO snapshots (session_id, image_data, recorded_at)
		 VALUES ($1, $2, $3)`,
		s.SessionID, s.ImageData, s.RecordedAt,
	)
	return err
}

// ListEventsBySession retrieves all proctoring events for a session in
// chronological order.
func (r *ProctoringRepository) ListEventsBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ProctoringEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, event_type, details, recorded_at
		 FROM proctoring_events
		 WHERE session_id = $1
		 ORDER BY recorded_at ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ProctoringEvent
	for rows.Next() {
		var e model.ProctoringEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Details, &e.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
