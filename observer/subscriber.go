// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observer

import (
	"context"
	"slices"

	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/timeline"
)

// Option configures a subscription built by Subscriber.
type Option func(*options)

type options struct {
	kind timeline.Kind
	room ref.RoomID
	once bool
}

// OfKind restricts delivery to events of kind. The default is any kind.
func OfKind(kind timeline.Kind) Option {
	return func(o *options) { o.kind = kind }
}

// InRoom restricts delivery to one room. The default is every room.
func InRoom(roomID ref.RoomID) Option {
	return func(o *options) { o.room = roomID }
}

// Once unsubscribes after the first delivered event.
func Once() Option {
	return func(o *options) { o.once = true }
}

// Subscriber builds filter chains from options and registers them.
type Subscriber struct {
	registry *Registry
}

// NewSubscriber returns a Subscriber registering into registry.
func NewSubscriber(registry *Registry) *Subscriber {
	return &Subscriber{registry: registry}
}

// Registry returns the registry subscriptions are added to.
func (s *Subscriber) Registry() *Registry {
	return s.registry
}

// Subscribe registers handler behind the filters the options select.
// The chain is EventTypeFilter(RoomFilter(OneTimeFilter(Plain))), with
// unselected links left out.
func (s *Subscriber) Subscribe(handler Handler, opts ...Option) *Subscription {
	return s.registry.Register(buildChain(handler, opts))
}

// Builder returns a function that registers handlers with the given
// options. It can be called any number of times.
func (s *Subscriber) Builder(opts ...Option) func(Handler) *Subscription {
	return func(handler Handler) *Subscription {
		return s.Subscribe(handler, opts...)
	}
}

// Event subscribes fn to every event kind.
func (s *Subscriber) Event(fn func(ctx context.Context, event timeline.Event) error, opts ...Option) *Subscription {
	return s.Subscribe(func(ctx context.Context, dispatch *Context) error {
		return fn(ctx, dispatch.Event)
	}, opts...)
}

// Message subscribes fn to message events.
func (s *Subscriber) Message(fn func(ctx context.Context, message *timeline.MessageEvent) error, opts ...Option) *Subscription {
	return s.MessageContext(dropContext(fn), opts...)
}

// MessageContext subscribes fn to message events, passing the dispatch
// context for handlers that unsubscribe themselves.
func (s *Subscriber) MessageContext(fn func(ctx context.Context, dispatch *Context, message *timeline.MessageEvent) error, opts ...Option) *Subscription {
	return s.Subscribe(typed(fn), withKind(opts, timeline.KindMessage)...)
}

// Edit subscribes fn to message edits.
func (s *Subscriber) Edit(fn func(ctx context.Context, edit *timeline.MessageEditEvent) error, opts ...Option) *Subscription {
	return s.EditContext(dropContext(fn), opts...)
}

// EditContext subscribes fn to message edits with the dispatch context.
func (s *Subscriber) EditContext(fn func(ctx context.Context, dispatch *Context, edit *timeline.MessageEditEvent) error, opts ...Option) *Subscription {
	return s.Subscribe(typed(fn), withKind(opts, timeline.KindMessageEdit)...)
}

// Redaction subscribes fn to redactions.
func (s *Subscriber) Redaction(fn func(ctx context.Context, redaction *timeline.RedactionEvent) error, opts ...Option) *Subscription {
	return s.Subscribe(typed(dropContext(fn)), withKind(opts, timeline.KindRedaction)...)
}

// withKind appends a kind option without touching the caller's
// backing array.
func withKind(opts []Option, kind timeline.Kind) []Option {
	return append(slices.Clip(opts), OfKind(kind))
}

func buildChain(handler Handler, opts []Option) Filter {
	var config options
	for _, opt := range opts {
		opt(&config)
	}

	var chain Filter = Plain{Handler: handler}
	if config.once {
		chain = &OneTimeFilter{Next: chain}
	}
	if !config.room.IsZero() {
		chain = RoomFilter{Room: config.room, Next: chain}
	}
	if config.kind != 0 {
		chain = EventTypeFilter{Kind: config.kind, Next: chain}
	}
	return chain
}

// typed adapts a variant-specific handler. The kind filter in front of
// it guarantees the assertion; anything else is dropped.
func typed[E timeline.Event](fn func(context.Context, *Context, E) error) Handler {
	return func(ctx context.Context, dispatch *Context) error {
		event, ok := dispatch.Event.(E)
		if !ok {
			return nil
		}
		return fn(ctx, dispatch, event)
	}
}

func dropContext[E timeline.Event](fn func(context.Context, E) error) func(context.Context, *Context, E) error {
	return func(ctx context.Context, _ *Context, event E) error {
		return fn(ctx, event)
	}
}
