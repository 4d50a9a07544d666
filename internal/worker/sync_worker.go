package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fitstudio/internal/database"
	"fitstudio/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const TaskAppendBooking = "append_booking"

// SheetsClient mirrors one booking row to an external sheet.
type SheetsClient interface {
	AppendBooking(*models.Booking) error
}

// syncPayload is persisted in SyncTask.Payload as JSON.
type syncPayload struct {
	Booking *models.Booking `json:"booking"`
}

// SyncWorker drains the sync_queue outbox and mirrors confirmed bookings to
// Google Sheets. Tasks ride a redis list when redis is up, an in-memory
// channel otherwise; the DB row is the source of truth either way.
type SyncWorker struct {
	db            *database.DB
	sheets        SheetsClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

// NewSyncWorker builds a worker with sane defaults.
func NewSyncWorker(db *database.DB, sheets SheetsClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SyncWorker {
	return &SyncWorker{
		db:            db,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.normalized(),
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "bookings:sync:queue",
		deadLetterKey: "bookings:sync:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

// EnqueueBooking persists a sync task and schedules it via redis or the
// in-memory queue.
func (w *SyncWorker) EnqueueBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.ID == 0 {
		return errors.New("booking id is required")
	}

	payloadBytes, err := json.Marshal(syncPayload{Booking: booking})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  TaskAppendBooking,
		BookingID: booking.ID,
		Payload:   string(payloadBytes),
		Status:    models.SyncTaskStatusPending,
	}

	if err := w.db.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		// Queue full; the DB poll loop will pick the task up.
		w.logger.Warn().Int64("task_id", task.ID).Msg("memory queue full, deferring to poll loop")
	}
	return nil
}

// Start blocks until ctx is canceled, processing queued tasks.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("sync worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("sync worker stopped")
			return
		case task := <-w.queue:
			w.process(ctx, task)
		case <-ticker.C:
			w.drainRedis(ctx)
			w.pollPending(ctx)
		}
	}
}

func (w *SyncWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.RPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SyncWorker) drainRedis(ctx context.Context) {
	if w.redis == nil {
		return
	}
	for i := 0; i < w.batchSize; i++ {
		data, err := w.redis.LPop(ctx, w.redisQueueKey).Result()
		if err == redis.Nil {
			return
		}
		if err != nil {
			w.logger.Warn().Err(err).Msg("redis pop failed")
			return
		}

		var task models.SyncTask
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			w.logger.Error().Err(err).Str("raw", data).Msg("discarding undecodable sync task")
			continue
		}
		w.process(ctx, task)
	}
}

func (w *SyncWorker) pollPending(ctx context.Context) {
	tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to poll pending sync tasks")
		return
	}
	for _, task := range tasks {
		w.process(ctx, task)
	}
}

func (w *SyncWorker) process(ctx context.Context, task models.SyncTask) {
	claimed, err := w.db.ClaimSyncTask(ctx, task.ID)
	if err != nil {
		w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("failed to claim sync task")
		return
	}
	if !claimed {
		w.logger.Debug().Int64("task_id", task.ID).Msg("sync task already handled, skipping")
		return
	}

	var payload syncPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil || payload.Booking == nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sync task payload is broken")
		w.deadLetter(ctx, task, "broken payload")
		return
	}

	err = w.sheets.AppendBooking(payload.Booking)
	if err == nil {
		if markErr := w.db.MarkSyncTaskDone(ctx, task.ID); markErr != nil {
			w.logger.Warn().Err(markErr).Int64("task_id", task.ID).Msg("failed to mark sync task done")
		}
		return
	}

	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Int("attempts", attempt).Msg("sync task exhausted retries")
		w.deadLetter(ctx, task, err.Error())
		return
	}

	nextRetryAt := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if markErr := w.db.MarkSyncTaskRetry(ctx, task.ID, err.Error(), nextRetryAt); markErr != nil {
		w.logger.Warn().Err(markErr).Int64("task_id", task.ID).Msg("failed to schedule sync task retry")
	}
	w.logger.Warn().Err(err).Int64("task_id", task.ID).Time("next_retry_at", nextRetryAt).Msg("sync task failed, will retry")
}

func (w *SyncWorker) deadLetter(ctx context.Context, task models.SyncTask, reason string) {
	if markErr := w.db.MarkSyncTaskFailed(ctx, task.ID, reason); markErr != nil {
		w.logger.Warn().Err(markErr).Int64("task_id", task.ID).Msg("failed to mark sync task failed")
	}
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := w.redis.RPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("failed to push dead letter")
	}
}
