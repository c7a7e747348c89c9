package service

import (
	"context"
	"sync"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/models"

	"github.com/google/uuid"
)

// fakeStore is an in-memory record store. The mutex makes AdjustStock a
// true compare-and-swap the way the real store's conditional UPDATE is,
// so concurrency tests exercise the same guard semantics.
type fakeStore struct {
	mu       sync.Mutex
	products map[string]*models.Product
	sales    map[string]*models.Sale

	// adjustHook, when set, can inject a failure for a given code and
	// delta before the adjustment is applied.
	adjustHook func(code string, delta int) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]*models.Product),
		sales:    make(map[string]*models.Sale),
	}
}

func (f *fakeStore) addProduct(code, name string, price float64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[code] = &models.Product{
		Code: code, Name: name, Price: price, Stock: stock,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

func (f *fakeStore) stockOf(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[code].Stock
}

func (f *fakeStore) saleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sales)
}

func (f *fakeStore) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[code]
	if !ok {
		return nil, apperr.NewNotFoundError("product", code)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) AdjustStock(ctx context.Context, code string, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adjustHook != nil {
		if err := f.adjustHook(code, delta); err != nil {
			return 0, err
		}
	}
	p, ok := f.products[code]
	if !ok {
		return 0, apperr.NewNotFoundError("product", code)
	}
	if p.Stock+delta < 0 {
		return 0, apperr.NewConflictError("insufficient stock for product %s", code)
	}
	p.Stock += delta
	return p.Stock, nil
}

func (f *fakeStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) CreateProduct(ctx context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.products[p.Code] = &cp
	return nil
}

func (f *fakeStore) DeleteProduct(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[code]; !ok {
		return apperr.NewNotFoundError("product", code)
	}
	delete(f.products, code)
	return nil
}

func (f *fakeStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	sale.CreatedAt = time.Now()
	cp := *sale
	cp.Items = append([]models.SaleItem(nil), sale.Items...)
	f.sales[sale.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteSale(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sales, id)
	return nil
}

func (f *fakeStore) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[id]
	if !ok {
		return nil, apperr.NewNotFoundError("sale", id)
	}
	cp := *sale
	return &cp, nil
}

func (f *fakeStore) GetSalesBetween(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Sale
	for _, sale := range f.sales {
		if !sale.CreatedAt.Before(from) && sale.CreatedAt.Before(to) {
			out = append(out, *sale)
		}
	}
	return out, nil
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu        sync.Mutex
	committed []*models.SaleCommittedEvent
	failed    []*models.SaleFailedEvent
	adjusted  []*models.StockAdjustedEvent
	pending   []*models.CompensationPendingEvent
}

func (p *capturePublisher) PublishSaleCommitted(ctx context.Context, e *models.SaleCommittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.committed = append(p.committed, e)
	return nil
}

func (p *capturePublisher) PublishSaleFailed(ctx context.Context, e *models.SaleFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, e)
	return nil
}

func (p *capturePublisher) PublishStockAdjusted(ctx context.Context, e *models.StockAdjustedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adjusted = append(p.adjusted, e)
	return nil
}

func (p *capturePublisher) PublishCompensationPending(ctx context.Context, e *models.CompensationPendingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, e)
	return nil
}

func (p *capturePublisher) pendingEvents() []*models.CompensationPendingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.CompensationPendingEvent(nil), p.pending...)
}
