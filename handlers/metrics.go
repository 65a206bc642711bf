package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_ordering_orders_placed_total",
		Help: "The total number of orders placed through checkout",
	}, []string{"type", "payment_method"})

	orderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_ordering_order_transitions_total",
		Help: "Order status changes by the status reached",
	}, []string{"status"})

	feedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "food_ordering_feed_subscribers",
		Help: "The number of open change feed websockets",
	})
)
