package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fitstudio/internal/models"
)

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	query := `INSERT INTO sync_queue (task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		task.TaskType,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now

	return nil
}

func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	query := `SELECT id, task_type, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM sync_queue
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var task models.SyncTask
		var lastError sql.NullString
		err := rows.Scan(
			&task.ID, &task.TaskType, &task.BookingID, &task.Payload, &task.Status,
			&task.RetryCount, &lastError, &task.CreatedAt, &task.ProcessedAt, &task.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		task.LastError = lastError.String
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ClaimSyncTask flips a queued task to processing. It reports false when the
// task is no longer claimable, so a second delivery of the same task (the
// in-memory channel plus the poll loop both carry it) cannot run twice.
func (db *DB) ClaimSyncTask(ctx context.Context, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ? WHERE id = ? AND status IN (?, ?)`,
		models.SyncTaskStatusProcessing, id, models.SyncTaskStatusPending, models.SyncTaskStatusRetry)
	if err != nil {
		return false, fmt.Errorf("failed to claim sync task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (db *DB) MarkSyncTaskDone(ctx context.Context, id int64) error {
	query := `UPDATE sync_queue SET status = ?, processed_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, models.SyncTaskStatusDone, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark sync task done: %w", err)
	}
	return nil
}

func (db *DB) MarkSyncTaskRetry(ctx context.Context, id int64, lastError string, nextRetryAt time.Time) error {
	query := `UPDATE sync_queue SET status = ?, retry_count = retry_count + 1, last_error = ?, next_retry_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, models.SyncTaskStatusRetry, lastError, nextRetryAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark sync task for retry: %w", err)
	}
	return nil
}

func (db *DB) MarkSyncTaskFailed(ctx context.Context, id int64, lastError string) error {
	query := `UPDATE sync_queue SET status = ?, last_error = ?, processed_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, models.SyncTaskStatusFailed, lastError, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark sync task failed: %w", err)
	}
	return nil
}
