package service

import (
	"context"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerStore is the slice of the record store the ledger needs: a
// keyed fetch and a single-record conditional atomic increment. The
// increment must be a true compare-and-swap at the store, never a
// client-side read-then-write.
type LedgerStore interface {
	GetProductByCode(ctx context.Context, code string) (*models.Product, error)
	AdjustStock(ctx context.Context, code string, delta int) (int, error)
}

// SaleStore persists and deletes the sale aggregate.
type SaleStore interface {
	CreateSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context, id string) error
	GetSaleByID(ctx context.Context, id string) (*models.Sale, error)
}

// EventPublisher publishes ledger and saga events. Publish failures are
// logged by callers, never surfaced to API consumers.
type EventPublisher interface {
	PublishSaleCommitted(ctx context.Context, event *models.SaleCommittedEvent) error
	PublishSaleFailed(ctx context.Context, event *models.SaleFailedEvent) error
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
	PublishCompensationPending(ctx context.Context, event *models.CompensationPendingEvent) error
}

// Ledger owns the invariant "stock never goes negative". All stock
// mutation funnels through AdjustStock.
type Ledger struct {
	store  LedgerStore
	events EventPublisher
	logger *zap.Logger
}

// NewLedger creates a new stock ledger
func NewLedger(store LedgerStore, events EventPublisher) *Ledger {
	return &Ledger{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// AdjustStock applies stock += delta as one conditional atomic update.
// Negative deltas are guarded by stock + delta >= 0; a guard rejection
// surfaces as a ConflictError, an unknown code as a NotFoundError.
// Returns the product with its post-adjustment stock.
func (l *Ledger) AdjustStock(ctx context.Context, code string, delta int) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Ledger.AdjustStock")
	defer span.End()

	if code == "" {
		return nil, apperr.NewValidationError("product code is required")
	}
	if delta == 0 {
		return nil, apperr.NewValidationError("delta must be non-zero")
	}

	newStock, err := l.store.AdjustStock(ctx, code, delta)
	if err != nil {
		if apperr.IsConflict(err) {
			util.StockRejectionsTotal.Inc()
		}
		return nil, err
	}

	direction := "increase"
	if delta < 0 {
		direction = "decrease"
	}
	util.StockAdjustmentsTotal.WithLabelValues(direction).Inc()

	l.logger.Info("Stock adjusted",
		zap.String("code", code),
		zap.Int("delta", delta),
		zap.Int("new_stock", newStock))

	event := &models.StockAdjustedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockAdjusted,
			Timestamp: time.Now(),
		},
		Code:     code,
		Delta:    delta,
		NewStock: newStock,
	}
	if err := l.events.PublishStockAdjusted(ctx, event); err != nil {
		l.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
	}

	product, err := l.store.GetProductByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	// Another request may have moved stock between the update and the
	// read; report the value this adjustment produced.
	product.Stock = newStock
	return product, nil
}
