package models

import "time"

// Product is a catalog record. Stock is only ever mutated through the
// ledger's conditional increment and must stay >= 0 at every observable
// point, including under concurrent sales.
type Product struct {
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Price     float64   `db:"price" json:"price"`
	Stock     int       `db:"stock" json:"stock"`
	Image     string    `db:"image" json:"image,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Availability labels returned by the catalog lookup
const (
	ProductStatusAvailable  = "Available"
	ProductStatusOutOfStock = "Out of Stock"
)

// SaleItem is one line on a receipt. Code, name and price are snapshots
// of the product at sale time, not live references.
type SaleItem struct {
	Code     string  `db:"code" json:"code"`
	Name     string  `db:"name" json:"name"`
	Price    float64 `db:"price" json:"price"`
	Quantity int     `db:"quantity" json:"quantity"`
	Total    float64 `db:"total" json:"total"`
}

// Sale is immutable once committed. A Sale that exists durably implies
// stock for every line was actually reserved; the committer deletes the
// provisional record if reservation cannot complete.
type Sale struct {
	ID         string     `db:"id" json:"id"`
	Items      []SaleItem `db:"-" json:"items"`
	GrandTotal float64    `db:"grand_total" json:"grandTotal"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// Admin holds the hashed passcode guarding catalog mutations.
type Admin struct {
	ID           int64     `db:"id" json:"id"`
	PasscodeHash string    `db:"passcode_hash" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
