package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/report"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// Report windows
const (
	WindowDaily   = "daily"
	WindowWeekly  = "weekly"
	WindowMonthly = "monthly"
)

// SalesReader is the record-store slice behind reporting.
type SalesReader interface {
	GetSalesBetween(ctx context.Context, from, to time.Time) ([]models.Sale, error)
}

// ReportService aggregates time-windowed sales and feeds the report
// sink. Aggregation is a plain group-by-code reduction.
type ReportService struct {
	store  SalesReader
	redis  *redisclient.Client
	sink   report.Sink
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService creates a new report service. redis may be nil, in
// which case summary caching is skipped.
func NewReportService(store SalesReader, redis *redisclient.Client, sink report.Sink) *ReportService {
	return &ReportService{
		store:  store,
		redis:  redis,
		sink:   sink,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// Summary is the JSON daily rollup.
type Summary struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// DailySummary returns today's revenue and sale count, cached briefly
// in redis since the tills poll it.
func (s *ReportService) DailySummary(ctx context.Context) (*Summary, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.DailySummary")
	defer span.End()

	if s.redis != nil {
		if payload, ok, err := s.redis.GetReportSummary(ctx, WindowDaily); err == nil && ok {
			var summary Summary
			if err := json.Unmarshal(payload, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	from, to := s.Window(WindowDaily)
	sales, err := s.store.GetSalesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Count: len(sales)}
	for _, sale := range sales {
		summary.Total += sale.GrandTotal
	}

	if s.redis != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.redis.CacheReportSummary(ctx, WindowDaily, payload, 30*time.Second); err != nil {
				s.logger.Warn("Failed to cache daily summary", zap.Error(err))
			}
		}
	}
	return summary, nil
}

// RenderReport aggregates the window's sales and renders them through
// the sink.
func (s *ReportService) RenderReport(ctx context.Context, window string, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "ReportService.RenderReport")
	defer span.End()

	from, to := s.Window(window)
	sales, err := s.store.GetSalesBetween(ctx, from, to)
	if err != nil {
		return err
	}

	rows, grandTotal := Aggregate(sales)

	util.ReportsGeneratedTotal.WithLabelValues(window).Inc()
	s.logger.Info("Report generated",
		zap.String("window", window),
		zap.Int("sales", len(sales)),
		zap.Int("products", len(rows)))

	return s.sink.Render(reportTitle(window), rows, grandTotal, w)
}

// Window returns the [from, to) bounds of a report window relative to
// the current local time. Daily is midnight to midnight, weekly the
// trailing seven days, monthly the first of this month to the first of
// the next.
func (s *ReportService) Window(window string) (time.Time, time.Time) {
	now := s.now()
	switch window {
	case WindowWeekly:
		return now.AddDate(0, 0, -7), now
	case WindowMonthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0)
	default:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight, midnight.AddDate(0, 0, 1)
	}
}

// Aggregate reduces sales to per-product quantity and revenue rows,
// first-seen order preserved, plus the window's grand total.
func Aggregate(sales []models.Sale) ([]report.Row, float64) {
	index := make(map[string]int)
	rows := make([]report.Row, 0)

	for _, sale := range sales {
		for _, item := range sale.Items {
			i, ok := index[item.Code]
			if !ok {
				i = len(rows)
				index[item.Code] = i
				rows = append(rows, report.Row{Code: item.Code, Name: item.Name})
			}
			rows[i].Quantity += item.Quantity
			rows[i].Revenue += item.Total
		}
	}

	var grandTotal float64
	for _, row := range rows {
		grandTotal += row.Revenue
	}
	return rows, grandTotal
}

func reportTitle(window string) string {
	switch window {
	case WindowWeekly:
		return "Weekly Sales Report"
	case WindowMonthly:
		return "Monthly Sales Report"
	default:
		return "Daily Sales Report"
	}
}
