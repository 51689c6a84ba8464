package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersLocalFulfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_local_fulfilled_total",
		Help: "Total number of orders fulfilled from the local return pool",
	})

	OrdersUnassignedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_unassigned_total",
		Help: "Total number of orders created with no warehouse available",
	})

	ReturnsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "returns_created_total",
		Help: "Total number of returns initiated",
	})

	ReturnsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "returns_rejected_total",
		Help: "Total number of return requests rejected before creation",
	}, []string{"reason"})

	ReturnRecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "return_recommendations_total",
		Help: "Return score recommendations by tier",
	}, []string{"tier"})

	ReturnTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "return_transitions_total",
		Help: "Return pipeline transitions by target status",
	}, []string{"status"})

	InventoryPooledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_pooled_total",
		Help: "Total number of inventory lines materialized from returns",
	})

	WarehouseLookupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warehouse_lookup_latency_seconds",
		Help:    "Latency of nearest-warehouse scans",
		Buckets: prometheus.DefBuckets,
	})

	CO2SavedKg = promauto.NewCounter(prometheus.CounterOpts{
		Name: "co2_saved_kg_total",
		Help: "Cumulative estimated CO2 saved by local return routing",
	})

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
