package models

import "time"

// Event types
const (
	EventTypeSaleCommitted       = "SALE_COMMITTED"
	EventTypeSaleFailed          = "SALE_FAILED"
	EventTypeStockAdjusted       = "STOCK_ADJUSTED"
	EventTypeCompensationPending = "COMPENSATION_PENDING"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCommittedEvent published when every line of a sale was reserved
// and the sale record is final.
type SaleCommittedEvent struct {
	BaseEvent
	SaleID     string         `json:"sale_id"`
	GrandTotal float64        `json:"grand_total"`
	Items      []SaleItemData `json:"items"`
}

// SaleFailedEvent published when a sale was rejected, either at
// pre-check or mid-saga after rollback.
type SaleFailedEvent struct {
	BaseEvent
	SaleID string `json:"sale_id,omitempty"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// StockAdjustedEvent published for manual restock/consumption via the
// ledger endpoints.
type StockAdjustedEvent struct {
	BaseEvent
	Code     string `json:"code"`
	Delta    int    `json:"delta"`
	NewStock int    `json:"new_stock"`
}

// CompensationPendingEvent published when a compensating restock failed
// during rollback. The reconciliation worker retries it until the stock
// is restored.
type CompensationPendingEvent struct {
	BaseEvent
	SaleID   string `json:"sale_id"`
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

// SaleItemData represents line data in events
type SaleItemData struct {
	Code     string  `json:"code"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}
