package livefeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Channel metrics
var (
	framesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livefeed_frames_received_total",
		Help: "Total number of frames read from the channel",
	})
	framesDecodeFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livefeed_frames_decode_failed_total",
		Help: "Total number of inbound frames discarded because they could not be decoded",
	})
	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livefeed_frames_sent_total",
		Help: "Total number of frames written to the channel",
	})
	sendsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livefeed_sends_rejected_total",
		Help: "Total number of sends rejected because the channel was not open",
	})
	reconnectsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livefeed_reconnects_scheduled_total",
		Help: "Total number of reconnect timers armed",
	})
	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livefeed_connection_state",
		Help: "Current connection state (0 closed, 1 connecting, 2 open, 3 reconnecting)",
	})
)

// Feed metrics
var (
	feedEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livefeed_feed_entries",
		Help: "Number of entries held by the feed store",
	})
	feedDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livefeed_feed_duplicates_total",
		Help: "Total number of posts ignored because they were already in the feed",
	})
)
