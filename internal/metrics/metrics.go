package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tracker metrics
var (
	// CarsTracked tracks the number of cars currently in the registry
	CarsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_cars_tracked",
			Help: "Number of cars currently tracked in the location registry",
		},
	)

	// SweeperEvictionsTotal tracks cars evicted for inactivity
	SweeperEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_sweeper_evictions_total",
			Help: "Total cars evicted by the staleness sweeper",
		},
	)

	// DisconnectEvictionsTotal tracks cars evicted because their socket closed
	DisconnectEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_disconnect_evictions_total",
			Help: "Total cars evicted because their push channel closed",
		},
	)
)

// Hub metrics
var (
	// ConnectedSockets tracks currently open push channels
	ConnectedSockets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_sockets",
			Help: "Number of currently connected websocket clients",
		},
	)

	// BroadcastsTotal tracks broadcasts by event name
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total broadcast events by event name",
		},
		[]string{"event"},
	)

	// SlowClientsEvictedTotal tracks clients dropped for not keeping up
	SlowClientsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total clients disconnected because their send buffer was full",
		},
	)
)
