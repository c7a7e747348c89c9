package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_committed_total",
		Help: "Total number of sales fully committed",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of failed sales",
	}, []string{"reason"})

	SaleRollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_rollbacks_total",
		Help: "Total number of sales rolled back after partial commitment",
	})

	CompensationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compensation_failures_total",
		Help: "Total number of compensating restocks that failed and were queued for reconciliation",
	})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of applied stock adjustments",
	}, []string{"direction"})

	StockRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_rejections_total",
		Help: "Total number of stock adjustments rejected by the conditional guard",
	})

	SaleCommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_commit_latency_seconds",
		Help:    "Latency of the full sale commit saga",
		Buckets: prometheus.DefBuckets,
	})

	ReportsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Total number of sales reports generated",
	}, []string{"window"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
