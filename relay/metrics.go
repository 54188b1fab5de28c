package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_clients",
		Help: "Number of connected websocket clients",
	})
	framesBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_broadcast_total",
		Help: "Total number of frames fanned out to clients",
	})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_dropped_total",
		Help: "Total number of per-client deliveries skipped because the buffer was full",
	})
	framesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_frames_rejected_total",
		Help: "Total number of inbound frames rejected",
	}, []string{"reason"})
)
