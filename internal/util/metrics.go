package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed from carts",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order placements",
	}, []string{"reason"})

	OrderIdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_idempotent_replays_total",
		Help: "Order placements answered from an existing idempotency key",
	})

	OrderValue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_value",
		Help:    "Total value of placed orders",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	OrderItemsPerOrder = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_items_per_order",
		Help:    "Number of line items per placed order",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of cart to order conversion",
		Buckets: prometheus.DefBuckets,
	})

	CartItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_added_total",
		Help: "Total number of add-to-cart operations",
	})

	CartAddRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_add_rejected_total",
		Help: "Add-to-cart operations rejected by validation",
	}, []string{"reason"})

	AuthFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Authentication failures",
	}, []string{"reason"})

	UsersRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "users_registered_total",
		Help: "Total number of registered users",
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
