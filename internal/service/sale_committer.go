package service

import (
	"context"
	"math"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleCommitter runs the multi-item sale saga. The record store only
// guarantees atomicity per record, so a sale is committed as a sequence
// of independent conditional decrements; any rejection triggers
// compensating restocks of the steps that already landed plus deletion
// of the provisional sale record.
type SaleCommitter struct {
	products LedgerStore
	sales    SaleStore
	events   EventPublisher
	logger   *zap.Logger
}

// NewSaleCommitter creates a new sale committer
func NewSaleCommitter(products LedgerStore, sales SaleStore, events EventPublisher) *SaleCommitter {
	return &SaleCommitter{
		products: products,
		sales:    sales,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// CommitSaleRequest is the checkout payload.
type CommitSaleRequest struct {
	Items      []SaleItemRequest `json:"items" binding:"required"`
	GrandTotal float64           `json:"grandTotal"`
}

// SaleItemRequest is one requested line. Price and total are accepted
// for receipt compatibility but recomputed server-side from the catalog.
type SaleItemRequest struct {
	Code     string  `json:"code"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

type committedLine struct {
	code     string
	quantity int
}

// CommitSale validates the request, persists a provisional sale, then
// decrements stock per line in list order. Duplicate codes are
// decremented independently, never merged. After this returns, either
// every line's stock was decremented and the sale exists, or no stock
// changed and no sale record remains.
func (c *SaleCommitter) CommitSale(ctx context.Context, req *CommitSaleRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleCommitter.CommitSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleCommitLatency.Observe(time.Since(start).Seconds())
	}()

	if len(req.Items) == 0 {
		util.SalesFailedTotal.WithLabelValues("empty_items").Inc()
		return nil, apperr.NewValidationError("sale must contain at least one item")
	}
	for _, item := range req.Items {
		if item.Code == "" {
			util.SalesFailedTotal.WithLabelValues("invalid_items").Inc()
			return nil, apperr.NewValidationError("item code is required")
		}
		if item.Quantity <= 0 {
			util.SalesFailedTotal.WithLabelValues("invalid_items").Inc()
			return nil, apperr.NewValidationError("quantity for product %s must be positive", item.Code)
		}
	}

	// Advisory pre-check pass. It narrows the race window but the
	// authoritative guard is the conditional decrement below.
	lines, err := c.snapshotLines(ctx, req.Items)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("precheck").Inc()
		c.publishSaleFailed(ctx, "", offendingCode(err), err.Error())
		return nil, err
	}

	var grandTotal float64
	for _, line := range lines {
		grandTotal += line.Total
	}
	if math.Abs(grandTotal-req.GrandTotal) > 0.005 {
		util.SalesFailedTotal.WithLabelValues("grand_total_mismatch").Inc()
		return nil, apperr.NewValidationError(
			"grand total mismatch: got %.2f, computed %.2f", req.GrandTotal, grandTotal)
	}

	// The saga must run to completion even if the caller disconnects;
	// a mid-saga disconnect is a completed-but-unobserved result.
	sagaCtx := context.WithoutCancel(ctx)

	sale := &models.Sale{
		ID:         uuid.New().String(),
		Items:      lines,
		GrandTotal: grandTotal,
	}
	if err := c.sales.CreateSale(sagaCtx, sale); err != nil {
		util.SalesFailedTotal.WithLabelValues("store_error").Inc()
		return nil, err
	}

	committed := make([]committedLine, 0, len(lines))
	for _, line := range lines {
		if _, err := c.products.AdjustStock(sagaCtx, line.Code, -line.Quantity); err != nil {
			c.rollback(sagaCtx, sale, committed)
			c.publishSaleFailed(sagaCtx, sale.ID, line.Code, err.Error())

			if apperr.IsConflict(err) {
				util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
				return nil, apperr.NewConflictError(
					"stock changed concurrently for product %s", line.Code)
			}
			util.SalesFailedTotal.WithLabelValues("store_error").Inc()
			return nil, err
		}
		committed = append(committed, committedLine{code: line.Code, quantity: line.Quantity})
	}

	util.SalesCommittedTotal.Inc()
	c.logger.Info("Sale committed",
		zap.String("sale_id", sale.ID),
		zap.Int("lines", len(lines)),
		zap.Float64("grand_total", grandTotal))

	eventItems := make([]models.SaleItemData, 0, len(lines))
	for _, line := range lines {
		eventItems = append(eventItems, models.SaleItemData{
			Code:     line.Code,
			Quantity: line.Quantity,
			Price:    line.Price,
			Total:    line.Total,
		})
	}
	event := &models.SaleCommittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCommitted,
			Timestamp: time.Now(),
		},
		SaleID:     sale.ID,
		GrandTotal: grandTotal,
		Items:      eventItems,
	}
	if err := c.events.PublishSaleCommitted(sagaCtx, event); err != nil {
		c.logger.Error("Failed to publish SaleCommitted event", zap.Error(err))
	}

	return sale, nil
}

// snapshotLines runs the read-only pre-check and freezes product
// identity and price per line. Order is preserved.
func (c *SaleCommitter) snapshotLines(ctx context.Context, items []SaleItemRequest) ([]models.SaleItem, error) {
	lines := make([]models.SaleItem, 0, len(items))
	for _, item := range items {
		product, err := c.products.GetProductByCode(ctx, item.Code)
		if err != nil {
			return nil, err
		}
		if product.Stock == 0 {
			return nil, apperr.NewConflictError("product %s is out of stock", item.Code)
		}
		if item.Quantity > product.Stock {
			return nil, apperr.NewConflictError(
				"insufficient quantity for product %s: requested %d, available %d",
				item.Code, item.Quantity, product.Stock)
		}
		lines = append(lines, models.SaleItem{
			Code:     product.Code,
			Name:     product.Name,
			Price:    product.Price,
			Quantity: item.Quantity,
			Total:    product.Price * float64(item.Quantity),
		})
	}
	return lines, nil
}

// rollback restores stock for every line already decremented, in
// commit order, then deletes the provisional sale record. Compensation
// is best-effort: a failed restock is queued for the reconciliation
// worker rather than retried inline, so the original conflict reason
// still reaches the caller.
func (c *SaleCommitter) rollback(ctx context.Context, sale *models.Sale, committed []committedLine) {
	util.SaleRollbacksTotal.Inc()
	c.logger.Warn("Rolling back sale",
		zap.String("sale_id", sale.ID),
		zap.Int("committed_lines", len(committed)))

	for _, line := range committed {
		if _, err := c.products.AdjustStock(ctx, line.code, line.quantity); err != nil {
			util.CompensationFailuresTotal.Inc()
			c.logger.Error("Failed to compensate stock, queueing for reconciliation",
				zap.String("sale_id", sale.ID),
				zap.String("code", line.code),
				zap.Int("quantity", line.quantity),
				zap.Error(err))

			event := &models.CompensationPendingEvent{
				BaseEvent: models.BaseEvent{
					EventID:   uuid.New().String(),
					EventType: models.EventTypeCompensationPending,
					Timestamp: time.Now(),
				},
				SaleID:   sale.ID,
				Code:     line.code,
				Quantity: line.quantity,
			}
			if pubErr := c.events.PublishCompensationPending(ctx, event); pubErr != nil {
				c.logger.Error("Failed to publish CompensationPending event",
					zap.Error(pubErr))
			}
		}
	}

	if err := c.sales.DeleteSale(ctx, sale.ID); err != nil {
		// Left for manual reconciliation; raising here would mask
		// the original conflict from the caller.
		c.logger.Error("Failed to delete provisional sale",
			zap.String("sale_id", sale.ID),
			zap.Error(err))
	}
}

// GetSale retrieves a committed sale
func (c *SaleCommitter) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	return c.sales.GetSaleByID(ctx, id)
}

func (c *SaleCommitter) publishSaleFailed(ctx context.Context, saleID, code, reason string) {
	event := &models.SaleFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleFailed,
			Timestamp: time.Now(),
		},
		SaleID: saleID,
		Code:   code,
		Reason: reason,
	}
	if err := c.events.PublishSaleFailed(ctx, event); err != nil {
		c.logger.Error("Failed to publish SaleFailed event", zap.Error(err))
	}
}

func offendingCode(err error) string {
	switch e := err.(type) {
	case *apperr.NotFoundError:
		return e.Key
	default:
		return ""
	}
}
