package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/provexlabs/provex-backend/internal/config"
	"github.com/provexlabs/provex-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventStore is the proctoring event readback the service depends on.
// Implemented by repository.ProctoringRepository.
type EventStore interface {
	ListEventsBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ProctoringEvent, error)
}

// ProctoringService records proctoring signals for a session. Writes are
// append-only and asynchronous: after the ownership check the event is
// pushed onto a Redis queue for the batch workers to persist, and events
// are additionally published on the session's monitor channel for live
// watchers. The timestamp is assigned here, at enqueue time.
type ProctoringService struct {
	sessions SessionStore
	events   EventStore
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewProctoringService creates a new ProctoringService.
func NewProctoringService(sessions SessionStore, events EventStore, rdb *redis.Client, log zerolog.Logger) *ProctoringService {
	return &ProctoringService{
		sessions: sessions,
		events:   events,
		rdb:      rdb,
		log:      log.With().Str("component", "proctoring_service").Logger(),
	}
}

// LogEvent appends a proctoring event to the session. Any event_type tag is
// accepted; there is no validation beyond session ownership.
func (s *ProctoringService) LogEvent(ctx context.Context, sessionID uuid.UUID, userID int, eventType, details string) error {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return err
	}

	event := model.ProctoringEvent{
		SessionID:  sessionID,
		EventType:  eventType,
		Details:    details,
		RecordedAt: time.Now(),
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistEventsQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}

	// Best effort: live monitors are a convenience, never a reason to fail
	// the recording request.
	channel := config.CacheKey.SessionMonitorChannel(sessionID.String())
	if err := s.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Monitor publish failed")
	}

	return nil
}

// UploadSnapshot appends a webcam snapshot to the session. The image
// payload is opaque to the server and is not mirrored onto the monitor
// channel.
func (s *ProctoringService) UploadSnapshot(ctx context.Context, sessionID uuid.UUID, userID int, imageData string) error {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return err
	}

	snapshot := model.Snapshot{
		SessionID:  sessionID,
		ImageData:  imageData,
		RecordedAt: time.Now(),
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue snapshot: %w", err)
	}

	return nil
}

// ListEvents returns the persisted proctoring log for a session in
// chronological order. Because persistence is asynchronous, events enqueued
// moments ago may not appear yet.
func (s *ProctoringService) ListEvents(ctx context.Context, sessionID uuid.UUID, userID int) ([]model.ProctoringEvent, error) {
	if _, err := s.getOwned(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	events, err := s.events.ListEventsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// VerifyOwnership checks that the session exists and belongs to the user.
// Used by the monitor stream before subscribing.
func (s *ProctoringService) VerifyOwnership(ctx context.Context, sessionID uuid.UUID, userID int) error {
	_, err := s.getOwned(ctx, sessionID, userID)
	return err
}

func (s *ProctoringService) getOwned(ctx context.Context, sessionID uuid.UUID, userID int) (*model.ExamSession, error) {
	session, err := s.sessions.GetByIDAndOwner(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}
