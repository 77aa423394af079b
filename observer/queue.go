// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/roomsync/lib/metrics"
	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/timeline"
)

// Dispatcher delivers one event and returns when delivery completes.
// *Registry implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, event timeline.Event) error
}

// RoomQueuesConfig holds optional dependencies of RoomQueues.
type RoomQueuesConfig struct {
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Metrics receives queue counts and depths. May be nil.
	Metrics *metrics.Metrics
}

// RoomQueues serializes dispatch per room. The first Push for a room
// creates an unbounded FIFO and a consumer goroutine for it; both live
// until Close. Queues are never evicted, so memory grows with the
// number of rooms seen.
type RoomQueues struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// ctx bounds every consumer and is the ctx handlers receive.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	queues map[ref.RoomID]*roomQueue
	// outstanding counts events pushed but not yet dispatched or
	// discarded; drainers are closed when it reaches zero.
	outstanding int
	drainers    []chan struct{}

	consumers sync.WaitGroup
}

type roomQueue struct {
	roomID ref.RoomID

	mu      sync.Mutex
	pending []timeline.Event

	// signal has capacity one; a pending token means "look again".
	signal chan struct{}
}

// NewRoomQueues returns RoomQueues feeding dispatcher.
func NewRoomQueues(dispatcher Dispatcher, config RoomQueuesConfig) *RoomQueues {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RoomQueues{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    config.Metrics,
		ctx:        ctx,
		cancel:     cancel,
		queues:     make(map[ref.RoomID]*roomQueue),
	}
}

// Push appends event to its room's queue. It never blocks on dispatch.
// ctx only gates acceptance: events pushed with a done ctx, or after
// Close, are dropped. Cancelling ctx later does not affect delivery.
func (q *RoomQueues) Push(ctx context.Context, event timeline.Event) {
	if ctx.Err() != nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	queue := q.queueLocked(event.Room())
	q.outstanding++
	q.metrics.QueuedEvents(q.outstanding)
	// Appending under q.mu orders this event before a concurrent
	// Close, so the exiting consumer discards and settles it.
	queue.mu.Lock()
	queue.pending = append(queue.pending, event)
	depth := len(queue.pending)
	queue.mu.Unlock()
	q.mu.Unlock()
	q.metrics.QueueDepth(queue.roomID.String(), depth)

	select {
	case queue.signal <- struct{}{}:
	default:
	}
}

// Depth returns the number of events waiting in roomID's queue, not
// counting one being dispatched.
func (q *RoomQueues) Depth(roomID ref.RoomID) int {
	q.mu.Lock()
	queue, ok := q.queues[roomID]
	q.mu.Unlock()
	if !ok {
		return 0
	}
	queue.mu.Lock()
	defer queue.mu.Unlock()
	return len(queue.pending)
}

// Len returns the number of room queues created so far.
func (q *RoomQueues) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues)
}

// Drain blocks until every event pushed so far has been dispatched or
// discarded, or ctx is done.
func (q *RoomQueues) Drain(ctx context.Context) error {
	q.mu.Lock()
	if q.outstanding == 0 {
		q.mu.Unlock()
		return nil
	}
	drained := make(chan struct{})
	q.drainers = append(q.drainers, drained)
	q.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle marks count events as no longer outstanding.
func (q *RoomQueues) settle(count int) {
	if count == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.outstanding -= count
	q.metrics.QueuedEvents(q.outstanding)
	if q.outstanding > 0 {
		return
	}
	for _, drained := range q.drainers {
		close(drained)
	}
	q.drainers = nil
}

// Close stops every consumer and waits for them to exit. An in-flight
// dispatch sees its ctx cancelled; events still queued are discarded.
// Later Pushes are dropped. Close is idempotent.
func (q *RoomQueues) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	q.consumers.Wait()
}

// queueLocked returns roomID's queue, starting its consumer on first
// use. q.mu must be held.
func (q *RoomQueues) queueLocked(roomID ref.RoomID) *roomQueue {
	if queue, ok := q.queues[roomID]; ok {
		return queue
	}
	queue := &roomQueue{roomID: roomID, signal: make(chan struct{}, 1)}
	q.queues[roomID] = queue
	q.metrics.RoomQueueCreated()

	q.consumers.Add(1)
	go func() {
		defer q.consumers.Done()
		q.consume(q.ctx, queue)
	}()
	q.logger.Debug("room queue started", "room_id", roomID)
	return queue
}

// consume dispatches the queue's events one at a time, waiting for
// each dispatch to finish before taking the next.
func (q *RoomQueues) consume(ctx context.Context, queue *roomQueue) {
	defer func() {
		q.settle(queue.discard())
	}()
	for {
		event, depth, ok := queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-queue.signal:
				continue
			}
		}
		if ctx.Err() != nil {
			q.settle(1)
			return
		}
		q.metrics.QueueDepth(queue.roomID.String(), depth)

		if err := q.dispatcher.Dispatch(ctx, event); err != nil {
			q.logger.Debug("dispatch completed with handler errors",
				"room_id", queue.roomID,
				"event_id", event.ID(),
				"error", err,
			)
		}
		q.settle(1)
	}
}

func (r *roomQueue) pop() (timeline.Event, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil, 0, false
	}
	event := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return event, len(r.pending), true
}

// discard empties the queue and returns how many events it held.
func (r *roomQueue) discard() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := len(r.pending)
	r.pending = nil
	return count
}
