// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/roomsync/lib/metrics"
	"github.com/bureau-foundation/roomsync/timeline"
)

// Context is what a Handler receives: the event and the ability to
// cancel the registration that delivered it.
type Context struct {
	Event timeline.Event

	subscription *Subscription
}

// Unsubscribe removes the registration that delivered this event. The
// current dispatch is unaffected. Safe to call more than once.
func (c *Context) Unsubscribe() {
	if c.subscription != nil {
		c.subscription.Unsubscribe()
	}
}

// Subscription is a registered filter chain. The pointer identifies the
// registration for Unsubscribe and Registry.Unregister.
type Subscription struct {
	registry *Registry
	filter   Filter
}

// Unsubscribe removes the subscription from its registry. It reports
// whether the subscription was still registered.
func (s *Subscription) Unsubscribe() bool {
	return s.registry.Unregister(s)
}

// RegistryConfig holds optional dependencies of a Registry.
type RegistryConfig struct {
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Metrics receives dispatch and failure counts. May be nil.
	Metrics *metrics.Metrics
}

// Registry holds the active subscriptions. The mutex guards the list
// only; it is never held while a handler runs.
type Registry struct {
	mu            sync.Mutex
	subscriptions []*Subscription

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRegistry returns an empty Registry.
func NewRegistry(config RegistryConfig) *Registry {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger, metrics: config.Metrics}
}

// Register appends a filter chain and returns its subscription.
func (r *Registry) Register(filter Filter) *Subscription {
	subscription := &Subscription{registry: r, filter: filter}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions = append(r.subscriptions, subscription)
	return subscription
}

// Unregister removes subscription. It reports whether it was present.
func (r *Registry) Unregister(subscription *Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := slices.Index(r.subscriptions, subscription)
	if index < 0 {
		return false
	}
	r.subscriptions = slices.Delete(r.subscriptions, index, index+1)
	return true
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscriptions)
}

// Dispatch delivers event to every subscription registered when the
// call starts. Subscriptions run concurrently, each in its own
// goroutine; Dispatch returns after all of them finish. Handler errors
// and panics are logged and joined into the result.
func (r *Registry) Dispatch(ctx context.Context, event timeline.Event) error {
	r.mu.Lock()
	snapshot := slices.Clone(r.subscriptions)
	r.mu.Unlock()

	r.metrics.Dispatched()
	if len(snapshot) == 0 {
		return nil
	}

	errs := make([]error, len(snapshot))
	var wg sync.WaitGroup
	for i, subscription := range snapshot {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.deliver(ctx, subscription, event)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// deliver runs one filter chain, converting a panic into an error.
func (r *Registry) deliver(ctx context.Context, subscription *Subscription, event timeline.Event) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("observer: handler panicked on event %s: %v", event.ID(), recovered)
		}
		if err != nil {
			r.metrics.HandlerFailed()
			r.logger.Warn("event handler failed",
				"room_id", event.Room(),
				"event_id", event.ID(),
				"error", err,
			)
		}
	}()
	return subscription.filter.Apply(ctx, &Context{Event: event, subscription: subscription})
}
