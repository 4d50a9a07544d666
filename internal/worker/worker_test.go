package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fitstudio/internal/config"
	"fitstudio/internal/database"
	"fitstudio/internal/models"
	"fitstudio/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"
)

type fakeSheets struct {
	appended []*models.Booking
	err      error
}

func (f *fakeSheets) AppendBooking(b *models.Booking) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, b)
	return nil
}

func setupWorkerDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "fitstudio.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestWorker(t *testing.T, db *database.DB, sheets SheetsClient) *SyncWorker {
	t.Helper()
	logger := zerolog.Nop()
	return NewSyncWorker(db, sheets, nil, RetryPolicy{MaxRetries: 3}, &logger)
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}

	assert.Equal(t, 2*time.Second, policy.NextDelay(1))
	assert.Equal(t, 4*time.Second, policy.NextDelay(2))
	assert.Equal(t, 8*time.Second, policy.NextDelay(3))
	assert.Equal(t, time.Minute, policy.NextDelay(10))

	// Bad inputs fall back to safe values.
	assert.Equal(t, 2*time.Second, policy.NextDelay(0))
}

func TestRetryPolicy_Normalized(t *testing.T) {
	defaults := RetryPolicy{}.normalized()
	assert.Equal(t, 5, defaults.MaxRetries)
	assert.Equal(t, 2*time.Second, defaults.InitialDelay)
	assert.Equal(t, time.Minute, defaults.MaxDelay)
	assert.Equal(t, float64(2), defaults.BackoffFactor)

	// A zero-valued policy backs off with the defaults.
	assert.Equal(t, 2*time.Second, RetryPolicy{}.NextDelay(1))
	assert.Equal(t, 4*time.Second, RetryPolicy{}.NextDelay(2))

	// Explicit fields survive normalization.
	custom := RetryPolicy{MaxRetries: 2, InitialDelay: time.Second}.normalized()
	assert.Equal(t, 2, custom.MaxRetries)
	assert.Equal(t, time.Second, custom.InitialDelay)
	assert.Equal(t, time.Minute, custom.MaxDelay)
}

func TestEnqueueBooking_PersistsTask(t *testing.T) {
	db := setupWorkerDB(t)
	w := newTestWorker(t, db, &fakeSheets{})

	booking := &models.Booking{
		ID:          7,
		ClassID:     3,
		ClassName:   "HIIT",
		ClientName:  "Priya Sharma",
		ClientEmail: "priya@example.com",
	}
	require.NoError(t, w.EnqueueBooking(context.Background(), booking))

	tasks, err := db.GetPendingSyncTasks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskAppendBooking, tasks[0].TaskType)
	assert.Equal(t, int64(7), tasks[0].BookingID)
	assert.Contains(t, tasks[0].Payload, `"priya@example.com"`)

	// The task also rides the in-memory queue when redis is absent.
	select {
	case task := <-w.queue:
		assert.Equal(t, tasks[0].ID, task.ID)
	default:
		t.Fatal("expected task on in-memory queue")
	}
}

func TestEnqueueBooking_RejectsUnsavedBooking(t *testing.T) {
	db := setupWorkerDB(t)
	w := newTestWorker(t, db, &fakeSheets{})

	assert.Error(t, w.EnqueueBooking(context.Background(), nil))
	assert.Error(t, w.EnqueueBooking(context.Background(), &models.Booking{}))
}

func TestEnqueueBooking_UsesRedisWhenAvailable(t *testing.T) {
	db := setupWorkerDB(t)
	mr := miniredis.RunT(t)
	client := repository.NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zerolog.Nop()
	w := NewSyncWorker(db, &fakeSheets{}, client, RetryPolicy{}, &logger)

	booking := &models.Booking{ID: 7, ClassID: 3, ClassName: "HIIT", ClientName: "Priya Sharma", ClientEmail: "priya@example.com"}
	require.NoError(t, w.EnqueueBooking(context.Background(), booking))

	queued, err := client.LLen(context.Background(), w.redisQueueKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)
	select {
	case <-w.queue:
		t.Fatal("task must not ride the memory queue when redis accepted it")
	default:
	}
}

func TestProcess_Success(t *testing.T) {
	db := setupWorkerDB(t)
	sheets := &fakeSheets{}
	w := newTestWorker(t, db, sheets)

	booking := &models.Booking{ID: 7, ClassID: 3, ClassName: "HIIT", ClientName: "Priya Sharma", ClientEmail: "priya@example.com"}
	require.NoError(t, w.EnqueueBooking(context.Background(), booking))
	task := <-w.queue

	w.process(context.Background(), task)

	require.Len(t, sheets.appended, 1)
	assert.Equal(t, "priya@example.com", sheets.appended[0].ClientEmail)

	pending, err := db.GetPendingSyncTasks(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// A task can arrive twice, once over the channel and once from the poll
// loop. Only the first delivery may append a sheet row.
func TestProcess_DuplicateDeliveryAppendsOnce(t *testing.T) {
	db := setupWorkerDB(t)
	sheets := &fakeSheets{}
	w := newTestWorker(t, db, sheets)

	booking := &models.Booking{ID: 7, ClassID: 3, ClassName: "HIIT", ClientName: "Priya Sharma", ClientEmail: "priya@example.com"}
	require.NoError(t, w.EnqueueBooking(context.Background(), booking))
	task := <-w.queue

	w.process(context.Background(), task)
	w.process(context.Background(), task)

	assert.Len(t, sheets.appended, 1)
}

func TestProcess_SchedulesRetryOnFailure(t *testing.T) {
	db := setupWorkerDB(t)
	sheets := &fakeSheets{err: errors.New("sheets unavailable")}
	w := newTestWorker(t, db, sheets)

	booking := &models.Booking{ID: 7, ClassID: 3, ClassName: "HIIT", ClientName: "Priya Sharma", ClientEmail: "priya@example.com"}
	require.NoError(t, w.EnqueueBooking(context.Background(), booking))
	task := <-w.queue

	w.process(context.Background(), task)

	// Retry is future-dated, so the task is invisible until due.
	pending, err := db.GetPendingSyncTasks(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var status string
	var retryCount int
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT status, retry_count FROM sync_queue WHERE id = ?`, task.ID).Scan(&status, &retryCount))
	assert.Equal(t, models.SyncTaskStatusRetry, status)
	assert.Equal(t, 1, retryCount)
}

func TestProcess_DeadLettersAfterMaxRetries(t *testing.T) {
	db := setupWorkerDB(t)
	sheets := &fakeSheets{err: errors.New("sheets unavailable")}
	w := newTestWorker(t, db, sheets)

	booking := &models.Booking{ID: 7, ClassID: 3, ClassName: "HIIT", ClientName: "Priya Sharma", ClientEmail: "priya@example.com"}
	require.NoError(t, w.EnqueueBooking(context.Background(), booking))
	task := <-w.queue
	task.RetryCount = w.retryPolicy.MaxRetries - 1

	w.process(context.Background(), task)

	var status string
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT status FROM sync_queue WHERE id = ?`, task.ID).Scan(&status))
	assert.Equal(t, models.SyncTaskStatusFailed, status)
}

func TestProcess_BrokenPayloadDeadLetters(t *testing.T) {
	db := setupWorkerDB(t)
	sheets := &fakeSheets{}
	w := newTestWorker(t, db, sheets)

	task := models.SyncTask{
		TaskType:  TaskAppendBooking,
		BookingID: 7,
		Payload:   `{not json`,
		Status:    models.SyncTaskStatusPending,
	}
	require.NoError(t, db.CreateSyncTask(context.Background(), &task))

	w.process(context.Background(), task)

	assert.Empty(t, sheets.appended)
	var status string
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT status FROM sync_queue WHERE id = ?`, task.ID).Scan(&status))
	assert.Equal(t, models.SyncTaskStatusFailed, status)
}

func TestDrainRedis_ProcessesQueuedTasks(t *testing.T) {
	db := setupWorkerDB(t)
	mr := miniredis.RunT(t)
	client := repository.NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sheets := &fakeSheets{}
	logger := zerolog.Nop()
	w := NewSyncWorker(db, sheets, client, RetryPolicy{}, &logger)

	booking := &models.Booking{ID: 7, ClassID: 3, ClassName: "HIIT", ClientName: "Priya Sharma", ClientEmail: "priya@example.com"}
	require.NoError(t, w.EnqueueBooking(context.Background(), booking))

	w.drainRedis(context.Background())

	require.Len(t, sheets.appended, 1)
	left, err := client.LLen(context.Background(), w.redisQueueKey).Result()
	require.NoError(t, err)
	assert.Zero(t, left)
}
