// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one roomsync client.
type Metrics struct {
	eventsIngested  *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	eventsMalformed prometheus.Counter

	syncRounds   *prometheus.CounterVec
	syncDuration prometheus.Histogram
	rateLimited  *prometheus.CounterVec

	dispatches      prometheus.Counter
	handlerFailures prometheus.Counter
	roomQueues      prometheus.Gauge
	queuedEvents    prometheus.Gauge
	// queueDepth has one series per room ever queued. Room queues are
	// never evicted, so neither are the series; alert on queuedEvents
	// when the room count is large.
	queueDepth *prometheus.GaugeVec
}

// New creates and registers the collectors on registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		eventsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsync_events_ingested_total",
			Help: "Events classified and stored, by kind.",
		}, []string{"kind"}),
		eventsDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomsync_events_duplicate_total",
			Help: "Events dropped because their ID was already stored.",
		}),
		eventsMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomsync_events_malformed_total",
			Help: "Timeline records skipped for missing or invalid fields.",
		}),
		syncRounds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsync_sync_rounds_total",
			Help: "Completed /sync rounds, by loop state at request time.",
		}, []string{"state"}),
		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "roomsync_sync_round_duration_seconds",
			Help:    "Wall time of a /sync round including ingestion.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 30, 60},
		}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomsync_rate_limited_total",
			Help: "HTTP 429 responses that were waited out and retried.",
		}, []string{"method"}),
		dispatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomsync_dispatches_total",
			Help: "Events fanned out to observers.",
		}),
		handlerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomsync_handler_failures_total",
			Help: "Observer invocations that returned an error or panicked.",
		}),
		roomQueues: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roomsync_room_queues",
			Help: "Per-room dispatch queues created.",
		}),
		queuedEvents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roomsync_queued_events",
			Help: "Events accepted by the dispatch queues and not yet dispatched, across all rooms.",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roomsync_room_queue_depth",
			Help: "Events waiting in a room's dispatch queue.",
		}, []string{"room_id"}),
	}
}

// EventIngested counts one stored event of the given kind.
func (m *Metrics) EventIngested(kind string) {
	if m == nil {
		return
	}
	m.eventsIngested.WithLabelValues(kind).Inc()
}

func (m *Metrics) EventDuplicate() {
	if m == nil {
		return
	}
	m.eventsDuplicate.Inc()
}

func (m *Metrics) EventMalformed() {
	if m == nil {
		return
	}
	m.eventsMalformed.Inc()
}

// SyncRound records a completed round made in state.
func (m *Metrics) SyncRound(state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncRounds.WithLabelValues(state).Inc()
	m.syncDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimited(method string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(method).Inc()
}

func (m *Metrics) Dispatched() {
	if m == nil {
		return
	}
	m.dispatches.Inc()
}

func (m *Metrics) HandlerFailed() {
	if m == nil {
		return
	}
	m.handlerFailures.Inc()
}

func (m *Metrics) RoomQueueCreated() {
	if m == nil {
		return
	}
	m.roomQueues.Inc()
}

// QueueDepth sets the pending event count for roomID.
func (m *Metrics) QueueDepth(roomID string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(roomID).Set(float64(depth))
}

// QueuedEvents sets the undispatched event count across all rooms.
func (m *Metrics) QueuedEvents(count int) {
	if m == nil {
		return
	}
	m.queuedEvents.Set(float64(count))
}
