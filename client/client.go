// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/roomsync/lib/clock"
	"github.com/bureau-foundation/roomsync/lib/metrics"
	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/messaging"
	"github.com/bureau-foundation/roomsync/observer"
	"github.com/bureau-foundation/roomsync/tap"
	"github.com/bureau-foundation/roomsync/timeline"
)

// DefaultSyncTimeout is the long-poll wait used when Config.SyncTimeout
// is zero.
const DefaultSyncTimeout = 30 * time.Second

// State is the sync loop's phase.
type State int32

const (
	// CatchingUp is the phase before the first completed round. Events
	// are stored but not dispatched.
	CatchingUp State = iota
	// Live dispatches every newly stored event.
	Live
)

func (s State) String() string {
	switch s {
	case CatchingUp:
		return "catching_up"
	case Live:
		return "live"
	default:
		return "unknown"
	}
}

// Recorder receives every newly stored event. *tap.Writer implements
// it.
type Recorder interface {
	Record(entry tap.Entry) error
}

// MediaResolver builds HTTP URLs for mxc:// references.
// *messaging.Client implements it.
type MediaResolver interface {
	MediaDownloadURL(uri ref.ContentURI) string
	MediaThumbnailURL(uri ref.ContentURI, width, height int) string
}

// Config holds configuration for creating a Client.
type Config struct {
	// Session performs every homeserver request. Required.
	Session messaging.Session

	// SyncTimeout is the /sync long-poll wait. Zero uses
	// DefaultSyncTimeout.
	SyncTimeout time.Duration

	// Filter is a filter ID or inline JSON filter sent with every
	// /sync request. Empty sends none.
	Filter string

	// Media builds attachment URLs. If nil, AttachmentURL and
	// ThumbnailURL return "".
	Media MediaResolver

	// Recorder, when set, receives every newly stored event.
	Recorder Recorder

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Clock timestamps rounds and tap entries. If nil, clock.Real() is used.
	Clock clock.Clock

	// Metrics is shared with the classifier, registry and queues. May
	// be nil.
	Metrics *metrics.Metrics
}

// Client owns the sync cursor, the event Store, the room snapshots and
// the dispatch pipeline of one account.
type Client struct {
	session     messaging.Session
	syncTimeout time.Duration
	filter      string
	media       MediaResolver
	recorder    Recorder
	logger      *slog.Logger
	clock       clock.Clock
	metrics     *metrics.Metrics

	store      *timeline.Store
	classifier *timeline.Classifier
	rooms      *timeline.RoomDirectory
	registry   *observer.Registry
	subscriber *observer.Subscriber
	queues     *observer.RoomQueues

	mu     sync.Mutex
	state  State
	cursor string
}

// New creates a Client in the CatchingUp state with an empty cursor.
func New(config Config) (*Client, error) {
	if config.Session == nil {
		return nil, errors.New("client: Session is required")
	}
	syncTimeout := config.SyncTimeout
	if syncTimeout == 0 {
		syncTimeout = DefaultSyncTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	store := timeline.NewStore()
	registry := observer.NewRegistry(observer.RegistryConfig{Logger: logger, Metrics: config.Metrics})
	return &Client{
		session:     config.Session,
		syncTimeout: syncTimeout,
		filter:      config.Filter,
		media:       config.Media,
		recorder:    config.Recorder,
		logger:      logger,
		clock:       clk,
		metrics:     config.Metrics,
		store:       store,
		classifier:  timeline.NewClassifier(store, timeline.ClassifierConfig{Logger: logger, Metrics: config.Metrics}),
		rooms:       timeline.NewRoomDirectory(),
		registry:    registry,
		subscriber:  observer.NewSubscriber(registry),
		queues:      observer.NewRoomQueues(registry, observer.RoomQueuesConfig{Logger: logger, Metrics: config.Metrics}),
	}, nil
}

// Subscriber registers event handlers.
func (c *Client) Subscriber() *observer.Subscriber { return c.subscriber }

// Registry returns the handler registry behind Subscriber.
func (c *Client) Registry() *observer.Registry { return c.registry }

// Queues returns the per-room dispatch queues.
func (c *Client) Queues() *observer.RoomQueues { return c.queues }

// Close stops the per-room dispatch consumers. Events not yet
// dispatched are discarded and handlers in flight see their ctx
// cancelled. The session is left open; it belongs to the caller.
func (c *Client) Close() {
	c.queues.Close()
}

// Session returns the homeserver session.
func (c *Client) Session() messaging.Session { return c.session }

// State returns the current sync phase.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cursor returns the next_batch token of the last completed round.
func (c *Client) Cursor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Event returns a stored event, or nil.
func (c *Client) Event(id ref.EventID) timeline.Event {
	return c.store.Event(id)
}

// Events returns every stored event in ingestion order.
func (c *Client) Events() []timeline.Event {
	return c.store.Events()
}

// Room returns the latest state snapshot of a joined room.
func (c *Client) Room(id ref.RoomID) (*timeline.Room, bool) {
	return c.rooms.Room(id)
}

// Rooms returns every known room snapshot ordered by room ID.
func (c *Client) Rooms() []*timeline.Room {
	return c.rooms.Rooms()
}
