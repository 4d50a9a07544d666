package models

const (
	// ScheduleLayout is the wall-time layout classes are stored with.
	ScheduleLayout = "2006-01-02 15:04"

	// Sync task lifecycle states for sync_queue rows.
	SyncTaskStatusPending    = "pending"
	SyncTaskStatusProcessing = "processing"
	SyncTaskStatusRetry      = "retry"
	SyncTaskStatusDone       = "done"
	SyncTaskStatusFailed     = "failed"

	// WorkerQueueSize is the in-memory sync queue capacity.
	WorkerQueueSize = 1000
)
