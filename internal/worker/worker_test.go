package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/database"
	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	upserts  []string
	statuses []string
	err      error
}

func (f *fakeSheets) UpsertRequest(ctx context.Context, req *models.TravelRequest) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, req.ID)
	return nil
}

func (f *fakeSheets) UpdateRequestStatus(ctx context.Context, requestID, status string) error {
	if f.err != nil {
		return f.err
	}
	f.statuses = append(f.statuses, requestID+":"+status)
	return nil
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRequest(id string) *models.TravelRequest {
	return &models.TravelRequest{
		ID:        id,
		UserID:    "u1",
		UserEmail: "u1@example.com",
		UserName:  "Cliente",
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	assert.Equal(t, 10*time.Second, policy.NextDelay(10)) // clamped
	assert.Equal(t, time.Second, policy.NextDelay(0))     // attempt floor
}

func TestEnqueueUpsert_PersistsAndQueues(t *testing.T) {
	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueUpsert(ctx, testRequest("req-1")))

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, TaskUpsert, pending[0].TaskType)
	assert.Equal(t, "req-1", pending[0].RequestID)

	_, ok := w.tryLocalQueue()
	assert.True(t, ok)
}

func TestEnqueue_Validation(t *testing.T) {
	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	assert.Error(t, w.EnqueueUpsert(ctx, nil))
	assert.Error(t, w.EnqueueUpsert(ctx, &models.TravelRequest{}))
	assert.Error(t, w.EnqueueStatus(ctx, "", models.StatusQuoted))
	assert.Error(t, w.EnqueueStatus(ctx, "req-1", ""))
}

func TestProcessTask_Success(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueStatus(ctx, "req-1", models.StatusQuoted))
	task, ok := w.tryLocalQueue()
	require.True(t, ok)

	w.processTask(ctx, &task)

	assert.Equal(t, []string{"req-1:" + models.StatusQuoted}, sheets.statuses)

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessTask_SchedulesRetryOnFailure(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("sheets down")}
	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueUpsert(ctx, testRequest("req-1")))
	task, ok := w.tryLocalQueue()
	require.True(t, ok)

	w.processTask(ctx, &task)

	// Hidden until next_retry_at, visible to the failed query only
	// after retries are exhausted.
	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestProcessTask_FailsAfterMaxRetries(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("sheets down")}
	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 1}, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueUpsert(ctx, testRequest("req-1")))
	task, ok := w.tryLocalQueue()
	require.True(t, ok)

	w.processTask(ctx, &task)

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "sheets down", failed[0].LastError)
}

func TestProcessTask_BadPayloadFailsImmediately(t *testing.T) {
	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	task := &models.SyncTask{TaskType: TaskUpsert, RequestID: "req-1", Payload: "{broken", Status: "pending"}
	require.NoError(t, db.CreateSyncTask(ctx, task))

	w.processTask(ctx, task)

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
}

func TestProcessTask_UnknownTypeFails(t *testing.T) {
	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{MaxRetries: 1}, nil)
	ctx := context.Background()

	task := &models.SyncTask{TaskType: "delete", RequestID: "req-1", Payload: "{}", Status: "pending"}
	require.NoError(t, db.CreateSyncTask(ctx, task))

	w.processTask(ctx, task)

	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].LastError, "unknown task type")
}
