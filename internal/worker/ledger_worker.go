package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"topdivers/internal/database"
	"topdivers/internal/domain"
	"topdivers/internal/events"
	"topdivers/internal/metrics"
	"topdivers/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
)

const (
	redisQueueKey = "ledger:queue"
	deadLetterKey = "ledger:deadletter"
)

// ledgerTaskPayload is persisted in SyncTask.Payload as JSON.
type ledgerTaskPayload struct {
	InvoiceID int64           `json:"invoice_id"`
	Invoice   *models.Invoice `json:"invoice,omitempty"`
	Status    string          `json:"status,omitempty"`
	PickedUp  bool            `json:"picked_up,omitempty"`
}

// LedgerWorker mirrors invoices into the spreadsheet ledger. Tasks are
// stored in sync_queue first and handed over through Redis, or an in-memory
// channel when Redis is unavailable; the table is polled as a last resort.
type LedgerWorker struct {
	db           *database.DB
	ledger       domain.LedgerWriter
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan models.SyncTask
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
}

func NewLedgerWorker(db *database.DB, ledger domain.LedgerWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *LedgerWorker {
	retry = retry.orDefaults(LedgerRetryPolicy())
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &LedgerWorker{
		db:           db,
		ledger:       ledger,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan models.SyncTask, models.WorkerQueueSize),
		pollInterval: 2 * time.Second,
		batchSize:    20,
		logger:       logger,
	}
}

// Subscribe queues ledger updates for invoice events on bus.
func (w *LedgerWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventInvoiceCreated, func(e *events.Event) error {
		var p events.InvoiceEventPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		return w.EnqueueUpsert(context.Background(), InvoiceFromEvent(p))
	})
	bus.Subscribe(events.EventInvoicePickedUp, func(e *events.Event) error {
		var p events.InvoiceEventPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		return w.EnqueueStatus(context.Background(), p.InvoiceID, p.Status, p.PickedUp)
	})
}

// InvoiceFromEvent rebuilds the ledger row from an invoice event.
func InvoiceFromEvent(p events.InvoiceEventPayload) *models.Invoice {
	inv := &models.Invoice{
		ID:          p.InvoiceID,
		BuyerName:   p.BuyerName,
		BuyerEmail:  p.BuyerEmail,
		Activity:    p.Activity,
		Amount:      models.Amount(p.Amount),
		Currency:    p.Currency,
		InvoiceType: p.InvoiceType,
		CouponCode:  p.CouponCode,
		Status:      p.Status,
		PickedUp:    p.PickedUp,
		CreatedAt:   p.CreatedAt,
	}
	if p.ActivityID != 0 {
		detail := models.ActivityDetail{}
		if p.Activity == models.ActivityCourse {
			detail.CourseID = p.ActivityID
		} else {
			detail.TripID = p.ActivityID
		}
		inv.ActivityDetails = []models.ActivityDetail{detail}
	}
	return inv
}

func (w *LedgerWorker) EnqueueUpsert(ctx context.Context, inv *models.Invoice) error {
	if inv == nil || inv.ID == 0 {
		return errors.New("invoice id is required")
	}
	return w.enqueue(ctx, TaskUpsert, ledgerTaskPayload{InvoiceID: inv.ID, Invoice: inv})
}

func (w *LedgerWorker) EnqueueStatus(ctx context.Context, invoiceID int64, status string, pickedUp bool) error {
	if invoiceID == 0 {
		return errors.New("invoice id is required")
	}
	if status == "" {
		return errors.New("status is required")
	}
	return w.enqueue(ctx, TaskUpdateStatus, ledgerTaskPayload{InvoiceID: invoiceID, Status: status, PickedUp: pickedUp})
}

func (w *LedgerWorker) enqueue(ctx context.Context, taskType string, payload ledgerTaskPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		InvoiceID: payload.InvoiceID,
		Payload:   string(payloadBytes),
		Status:    models.SyncStatusPending,
	}
	if err := w.db.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}
	metrics.IncLedgerTask(models.SyncStatusPending)

	if w.redis != nil {
		if err := w.pushRedis(ctx, redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("memory queue full, task left to polling")
	}
	return nil
}

// Start runs the worker until ctx is done.
func (w *LedgerWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("ledger worker started")
	defer w.logger.Info().Msg("ledger worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending ledger tasks")
		}
		if err != nil || len(tasks) == 0 {
			w.idle(ctx)
			continue
		}
		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *LedgerWorker) idle(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *LedgerWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *LedgerWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Warn().Err(err).Msg("redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Warn().Err(err).Msg("decode redis ledger task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *LedgerWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.apply(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark ledger task completed")
	}
	metrics.IncLedgerTask(models.SyncStatusCompleted)
}

func (w *LedgerWorker) apply(ctx context.Context, taskType string, payload ledgerTaskPayload) error {
	switch taskType {
	case TaskUpsert:
		if payload.Invoice == nil {
			return errors.New("invoice payload missing")
		}
		return w.ledger.UpsertInvoice(ctx, payload.Invoice)
	case TaskUpdateStatus:
		if payload.InvoiceID == 0 || payload.Status == "" {
			return errors.New("invoice id or status missing")
		}
		return w.ledger.UpdateInvoiceStatus(ctx, payload.InvoiceID, payload.Status, payload.PickedUp)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *LedgerWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	next := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark ledger task retry")
	}
	metrics.IncLedgerTask(models.SyncStatusRetry)
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", next).Msg("ledger task failed, retrying")
}

func (w *LedgerWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark ledger task failed")
	}
	metrics.IncLedgerTask(models.SyncStatusFailed)
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Int64("invoice_id", task.InvoiceID).Msg("ledger task dead-lettered")
	if w.redis != nil {
		if err := w.pushRedis(ctx, deadLetterKey, *task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push failed")
		}
	}
}

// Stats counts queued ledger tasks per status.
func (w *LedgerWorker) Stats(ctx context.Context) (map[string]int, error) {
	return w.db.SyncQueueStats(ctx)
}

// RequeueFailed gives every dead-lettered task a fresh retry budget and
// hands it back to the worker.
func (w *LedgerWorker) RequeueFailed(ctx context.Context) (int, error) {
	failed, err := w.db.GetFailedSyncTasks(ctx)
	if err != nil {
		return 0, err
	}
	for i := range failed {
		task := failed[i]
		if err := w.db.ResetSyncTask(ctx, task.ID); err != nil {
			return i, err
		}
		task.Status = models.SyncStatusPending
		task.RetryCount = 0
		task.LastError = nil
		task.NextRetryAt = nil
		select {
		case w.queue <- task:
		default:
		}
	}
	if len(failed) > 0 {
		w.logger.Info().Int("tasks", len(failed)).Msg("dead-lettered ledger tasks requeued")
	}
	return len(failed), nil
}

func decodePayload(raw string) (ledgerTaskPayload, error) {
	var payload ledgerTaskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *LedgerWorker) pushRedis(ctx context.Context, key string, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
