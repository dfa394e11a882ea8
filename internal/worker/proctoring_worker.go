package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/provexlabs/provex-backend/internal/config"
	"github.com/provexlabs/provex-backend/internal/model"
	"github.com/provexlabs/provex-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	EventBatchSize    = 50
	EventBatchTimeout = 2 * time.Second
	EventPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ProctoringWorker drains the proctoring event queue and persists events in
// batches. Handlers only enqueue; this worker is the single writer for
// proctoring_events.
type ProctoringWorker struct {
	repo *repository.ProctoringRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewProctoringWorker(repo *repository.ProctoringRepository, rdb *redis.Client, log zerolog.Logger) *ProctoringWorker {
	return &ProctoringWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "proctoring_worker").Logger(),
	}
}

func (w *ProctoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctoringWorker started")

	buffer := make([]model.ProctoringEvent, 0, EventBatchSize)
	lastFlush := time.Now()

	for {
		// Flush on size or age.
		if len(buffer) > 0 &&
			(len(buffer) >= EventBatchSize || time.Since(lastFlush) >= EventBatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, EventPollTimeout, config.WorkerKey.PersistEventsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer.
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var event model.ProctoringEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed event")
			continue
		}

		buffer = append(buffer, event)
	}
}

// flushSafe attempts the bulk COPY, then row-by-row recovery with requeue.
func (w *ProctoringWorker) flushSafe(ctx context.Context, batch []model.ProctoringEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.repo.BulkInsertEvents(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ProctoringWorker) fallbackInsert(ctx context.Context, batch []model.ProctoringEvent) {
	var requeueList []model.ProctoringEvent

	for i := range batch {
		if err := w.repo.InsertEvent(ctx, &batch[i]); err != nil {
			w.log.Error().Err(err).Str("session_id", batch[i].SessionID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, batch[i])
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ProctoringWorker) requeue(ctx context.Context, events []model.ProctoringEvent) {
	pipe := w.rdb.Pipeline()
	for i := range events {
		data, _ := json.Marshal(events[i])
		pipe.RPush(ctx, config.WorkerKey.PersistEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue events to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(events)).Msg("Requeued failed events back to Redis")
	// Avoid thrashing while the database is down.
	time.Sleep(2 * time.Second)
}

func (w *ProctoringWorker) shutdown(buffer []model.ProctoringEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w.flushSafe(shutdownCtx, buffer)
}
