package database

import (
	"context"
	"testing"
	"time"

	"topdivers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueueInvoice(t *testing.T, db *DB, invoiceID int64) *models.SyncTask {
	t.Helper()
	task := &models.SyncTask{TaskType: "upsert", InvoiceID: invoiceID, Payload: `{"invoice_id":1}`}
	require.NoError(t, db.CreateSyncTask(context.Background(), task))
	require.NotZero(t, task.ID)
	return task
}

func pendingIDs(t *testing.T, db *DB) []int64 {
	t.Helper()
	tasks, err := db.GetPendingSyncTasks(context.Background(), 10)
	require.NoError(t, err)
	ids := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func TestSyncQueue_CompletedTasksLeaveThePendingList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := enqueueInvoice(t, db, 100)
	second := enqueueInvoice(t, db, 101)
	assert.Equal(t, models.SyncStatusPending, first.Status)
	assert.Equal(t, []int64{first.ID, second.ID}, pendingIDs(t, db))

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, first.ID, models.SyncStatusCompleted, "", nil))
	assert.Equal(t, []int64{second.ID}, pendingIDs(t, db))
}

func TestSyncQueue_RetryWaitsForItsSlot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	task := enqueueInvoice(t, db, 102)

	later := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, "sheet quota", &later))
	assert.Empty(t, pendingIDs(t, db))

	earlier := time.Now().Add(-time.Minute)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, "sheet quota", &earlier))
	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].RetryCount)
	require.NotNil(t, tasks[0].LastError)
	assert.Equal(t, "sheet quota", *tasks[0].LastError)
}

func TestSyncQueue_DeadLetterAndReset(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	task := enqueueInvoice(t, db, 103)
	enqueueInvoice(t, db, 104)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, "timeout", nil))
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, "sheet removed", nil))

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, int64(103), failed[0].InvoiceID)
	assert.NotNil(t, failed[0].ProcessedAt)

	stats, err := db.SyncQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.SyncStatusFailed: 1, models.SyncStatusPending: 1}, stats)

	require.NoError(t, db.ResetSyncTask(ctx, task.ID))
	failed, err = db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, got := range tasks {
		if got.ID == task.ID {
			assert.Zero(t, got.RetryCount)
			assert.Nil(t, got.LastError)
			assert.Nil(t, got.ProcessedAt)
		}
	}
}
