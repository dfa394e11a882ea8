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
	// Snapshots carry base64 image payloads, so batches stay small.
	SnapshotBatchSize    = 10
	SnapshotBatchTimeout = 2 * time.Second
	SnapshotPollTimeout  = 1 * time.Second
)

// SnapshotWorker drains the webcam snapshot queue and persists snapshots in
// batches.
type SnapshotWorker struct {
	repo *repository.ProctoringRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewSnapshotWorker(repo *repository.ProctoringRepository, rdb *redis.Client, log zerolog.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "snapshot_worker").Logger(),
	}
}

func (w *SnapshotWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SnapshotWorker started")

	buffer := make([]model.Snapshot, 0, SnapshotBatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 &&
			(len(buffer) >= SnapshotBatchSize || time.Since(lastFlush) >= SnapshotBatchTimeout) {
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

		result, err := w.rdb.BLPop(ctx, SnapshotPollTimeout, config.WorkerKey.PersistSnapshotsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue
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

		var snapshot model.Snapshot
		if err := json.Unmarshal([]byte(result[1]), &snapshot); err != nil {
			w.log.Error().Err(err).Msg("Discarding malformed snapshot")
			continue
		}

		buffer = append(buffer, snapshot)
	}
}

func (w *SnapshotWorker) flushSafe(ctx context.Context, batch []model.Snapshot) {
	if len(batch) == 0 {
		return
	}

	if err := w.repo.BulkInsertSnapshots(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *SnapshotWorker) fallbackInsert(ctx context.Context, batch []model.Snapshot) {
	var requeueList []model.Snapshot

	for i := range batch {
		if err := w.repo.InsertSnapshot(ctx, &batch[i]); err != nil {
			w.log.Error().Err(err).Str("session_id", batch[i].SessionID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, batch[i])
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *SnapshotWorker) requeue(ctx context.Context, snapshots []model.Snapshot) {
	pipe := w.rdb.Pipeline()
	for i := range snapshots {
		data, _ := json.Marshal(snapshots[i])
		pipe.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue snapshots to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(snapshots)).Msg("Requeued failed snapshots back to Redis")
	time.Sleep(2 * time.Second)
}

func (w *SnapshotWorker) shutdown(buffer []model.Snapshot) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w.flushSafe(shutdownCtx, buffer)
}
