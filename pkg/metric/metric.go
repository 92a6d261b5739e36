// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all prometheus instrumentation for the marketplace ledger
type Metrics struct {
	registry *prometheus.Registry

	// Inventory metrics
	ProvidersRegistered prometheus.Counter
	DevicesClaimed      prometheus.Counter
	DevicesAvailable    prometheus.Gauge

	// Campaign metrics
	CampaignsCreated prometheus.Counter
	CampaignsActive  prometheus.Gauge
	Bookings         prometheus.Counter
	BookingConflicts prometheus.Counter

	// Oracle metrics
	OracleUpdates prometheus.Counter
	OracleRejects *prometheus.CounterVec

	// Financial metrics
	BudgetFunded    prometheus.Counter
	FeesDistributed prometheus.Counter
	Withdrawals     prometheus.Counter

	// Performance metrics
	OpDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics instance on its own registry
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.ProvidersRegistered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "providers_registered_total",
		Help:      "Total number of providers registered",
	})
	m.DevicesClaimed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "devices_claimed_total",
		Help:      "Total number of devices claimed by providers",
	})
	m.DevicesAvailable = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "soulboard",
		Name:      "devices_available",
		Help:      "Number of devices currently available for booking",
	})

	m.CampaignsCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "campaigns_created_total",
		Help:      "Total number of campaigns created",
	})
	m.CampaignsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "soulboard",
		Name:      "campaigns_active",
		Help:      "Number of campaigns currently active",
	})
	m.Bookings = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "bookings_total",
		Help:      "Total number of successful device bookings",
	})
	m.BookingConflicts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "booking_conflicts_total",
		Help:      "Total number of bookings rejected because the device was not available",
	})

	m.OracleUpdates = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "oracle_updates_total",
		Help:      "Total number of accepted oracle feed updates",
	})
	m.OracleRejects = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "oracle_rejects_total",
		Help:      "Total number of rejected oracle feed updates by reason",
	}, []string{"reason"})

	m.BudgetFunded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "budget_funded_total",
		Help:      "Total budget funded across all campaigns, in native units",
	})
	m.FeesDistributed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "fees_distributed_total",
		Help:      "Total number of campaign fee distributions",
	})
	m.Withdrawals = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "soulboard",
		Name:      "withdrawals_total",
		Help:      "Total number of provider earnings withdrawals",
	})

	m.OpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "soulboard",
		Name:      "op_duration_seconds",
		Help:      "Time to execute a ledger operation",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	return m, nil
}

// Handler returns an HTTP handler exporting the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
