package worker

import (
	"context"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// ReconcileStore is the record-store slice the reconciliation worker
// needs: the unconditional restock plus the idempotency table.
type ReconcileStore interface {
	AdjustStock(ctx context.Context, code string, delta int) (int, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ReconcileWorker drains CompensationPending events: compensating
// restocks that failed during a sale rollback are retried here until
// the stock is restored. This is the reconciliation queue for stuck
// sagas; without it a failed compensation would only ever be a log line.
type ReconcileWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        ReconcileStore
	logger       *zap.Logger

	attempts int
	backoff  time.Duration
}

// NewReconcileWorker creates a new reconciliation worker
func NewReconcileWorker(consumer *broker.Consumer, store ReconcileStore) *ReconcileWorker {
	w := &ReconcileWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
		attempts: 3,
		backoff:  500 * time.Millisecond,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnCompensationPending(w.handleCompensationPending)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reconciliation worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReconcileWorker) Stop() error {
	w.logger.Info("Stopping reconciliation worker")
	return w.consumer.Close()
}

// handleCompensationPending retries the restock with a capped backoff.
// Returning an error skips the Kafka commit so the event is redelivered
// later; success and permanently-dead cases are marked processed.
func (w *ReconcileWorker) handleCompensationPending(ctx context.Context, event *models.CompensationPendingEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	w.logger.Info("Reconciling failed compensation",
		zap.String("sale_id", event.SaleID),
		zap.String("code", event.Code),
		zap.Int("quantity", event.Quantity))

	var lastErr error
	for attempt := 0; attempt < w.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * w.backoff):
			}
		}

		_, lastErr = w.store.AdjustStock(ctx, event.Code, event.Quantity)
		if lastErr == nil {
			w.logger.Info("Compensation reconciled",
				zap.String("sale_id", event.SaleID),
				zap.String("code", event.Code))
			return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
		}

		if apperr.IsNotFound(lastErr) {
			// Product deleted since the sale; nothing to restore.
			w.logger.Warn("Dropping compensation for missing product",
				zap.String("code", event.Code))
			return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
		}
	}

	w.logger.Error("Compensation still failing, leaving for redelivery",
		zap.String("sale_id", event.SaleID),
		zap.String("code", event.Code),
		zap.Error(lastErr))
	return lastErr
}
