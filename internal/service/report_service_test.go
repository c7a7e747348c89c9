package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	sales := []models.Sale{
		{Items: []models.SaleItem{
			{Code: "A", Name: "Apple", Price: 10, Quantity: 2, Total: 20},
			{Code: "B", Name: "Banana", Price: 5, Quantity: 1, Total: 5},
		}},
		{Items: []models.SaleItem{
			{Code: "A", Name: "Apple", Price: 10, Quantity: 3, Total: 30},
		}},
	}

	rows, grandTotal := Aggregate(sales)

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Code, "first-seen order preserved")
	assert.Equal(t, 5, rows[0].Quantity)
	assert.Equal(t, 50.0, rows[0].Revenue)
	assert.Equal(t, "B", rows[1].Code)
	assert.Equal(t, 1, rows[1].Quantity)
	assert.Equal(t, 5.0, rows[1].Revenue)
	assert.Equal(t, 55.0, grandTotal)
}

func TestAggregateEmpty(t *testing.T) {
	rows, grandTotal := Aggregate(nil)
	assert.Empty(t, rows)
	assert.Zero(t, grandTotal)
}

func TestReportWindows(t *testing.T) {
	svc := NewReportService(newFakeStore(), nil, report.NewPDFSink())
	now := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	from, to := svc.Window(WindowDaily)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC), to)

	from, to = svc.Window(WindowWeekly)
	assert.Equal(t, now.AddDate(0, 0, -7), from)
	assert.Equal(t, now, to)

	from, to = svc.Window(WindowMonthly)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestDailySummary(t *testing.T) {
	store := newFakeStore()
	store.sales["s1"] = &models.Sale{ID: "s1", GrandTotal: 30, CreatedAt: time.Now()}
	store.sales["s2"] = &models.Sale{ID: "s2", GrandTotal: 45, CreatedAt: time.Now()}
	// Outside today's window.
	store.sales["s3"] = &models.Sale{ID: "s3", GrandTotal: 99, CreatedAt: time.Now().AddDate(0, 0, -2)}

	svc := NewReportService(store, nil, report.NewPDFSink())

	summary, err := svc.DailySummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 75.0, summary.Total)
	assert.Equal(t, 2, summary.Count)
}

func TestRenderReport(t *testing.T) {
	store := newFakeStore()
	store.sales["s1"] = &models.Sale{
		ID:         "s1",
		GrandTotal: 20,
		CreatedAt:  time.Now(),
		Items: []models.SaleItem{
			{Code: "A", Name: "Apple", Price: 10, Quantity: 2, Total: 20},
		},
	}

	svc := NewReportService(store, nil, report.NewPDFSink())

	var buf bytes.Buffer
	require.NoError(t, svc.RenderReport(context.Background(), WindowDaily, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
