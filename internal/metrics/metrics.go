// Package metrics defines the Prometheus metrics exported by the player.
// All metrics register with the default registry on package init and are
// served from GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "listenup_player"

// LoginsTotal counts login attempts.
// Label:
//   - result: "created", "ok", "invalid_username", "incorrect_pin", "rate_limited" or "auto"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ProgressSnapshotsTotal counts progress writes.
// Labels:
//   - trigger: "tick", "pause" or "ended"
//   - result: "ok" or "error"
var ProgressSnapshotsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "progress_snapshots_total",
		Help:      "Total number of progress snapshots persisted, by trigger and result.",
	},
	[]string{"trigger", "result"},
)

// StorageCorruptTotal counts stored blobs that failed to decode and were replaced by an empty collection.
var StorageCorruptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_corrupt_total",
		Help:      "Total number of malformed profile blobs recovered as empty.",
	},
)

// StorageOperationDuration measures store reads and writes.
// Label:
//   - op: "load" or "save"
var StorageOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "storage_operation_duration_seconds",
		Help:      "Duration of profile store operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op"},
)

// SleepTimerFiredTotal counts sleep timers that reached zero and paused playback.
var SleepTimerFiredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sleep_timer_fired_total",
		Help:      "Total number of sleep timers that fired.",
	},
)

// PlaybackEventsTotal counts notifications received from the media primitive.
// Label:
//   - event: "loadedmetadata", "timeupdate", "play", "pause" or "ended"
var PlaybackEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_events_total",
		Help:      "Total number of playback notifications, by event.",
	},
	[]string{"event"},
)

// SSEClients tracks the number of connected event stream clients.
var SSEClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sse_clients",
		Help:      "Current number of connected SSE clients.",
	},
)
