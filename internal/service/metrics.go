package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invoicesGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_invoices_generated_total",
			Help: "Total number of invoices generated by billing cycles",
		},
	)

	customersSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_customers_skipped_total",
			Help: "Total number of customers skipped by billing cycles, by reason",
		},
		[]string{"reason"},
	)

	billingErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_errors_total",
			Help: "Total number of per-customer billing errors, by kind",
		},
		[]string{"kind"},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_cycle_duration_seconds",
			Help:    "Billing cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	invoicesReconciledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_invoices_reconciled_total",
			Help: "Total number of incomplete invoices removed before a cycle",
		},
	)
)
