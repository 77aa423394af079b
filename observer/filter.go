// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observer

import (
	"context"
	"sync/atomic"

	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/timeline"
)

// Handler receives one dispatched event. A returned error is logged
// and counted; it never stops delivery to other handlers or later
// events.
type Handler func(ctx context.Context, dispatch *Context) error

// Filter is one link of a subscription chain. The set is closed:
// Plain, RoomFilter, *OneTimeFilter and EventTypeFilter.
type Filter interface {
	Apply(ctx context.Context, dispatch *Context) error
	filter()
}

// Plain forwards every event to Handler.
type Plain struct {
	Handler Handler
}

func (p Plain) Apply(ctx context.Context, dispatch *Context) error {
	return p.Handler(ctx, dispatch)
}

// RoomFilter forwards events whose room is Room. A zero Room matches
// every room.
type RoomFilter struct {
	Room ref.RoomID
	Next Filter
}

func (f RoomFilter) Apply(ctx context.Context, dispatch *Context) error {
	if !f.Room.IsZero() && dispatch.Event.Room() != f.Room {
		return nil
	}
	return f.Next.Apply(ctx, dispatch)
}

// OneTimeFilter forwards the first event that reaches it and then
// unsubscribes its registration. Concurrent dispatches race for a
// single claim; losers drop the event. Use by pointer.
type OneTimeFilter struct {
	Next Filter

	claimed atomic.Bool
}

func (f *OneTimeFilter) Apply(ctx context.Context, dispatch *Context) error {
	if !f.claimed.CompareAndSwap(false, true) {
		return nil
	}
	defer dispatch.Unsubscribe()
	return f.Next.Apply(ctx, dispatch)
}

// EventTypeFilter forwards events of the given Kind and drops the
// rest. The zero Kind matches every event.
type EventTypeFilter struct {
	Kind timeline.Kind
	Next Filter
}

func (f EventTypeFilter) Apply(ctx context.Context, dispatch *Context) error {
	if f.Kind != 0 && dispatch.Event.Kind() != f.Kind {
		return nil
	}
	return f.Next.Apply(ctx, dispatch)
}

func (Plain) filter()           {}
func (RoomFilter) filter()      {}
func (*OneTimeFilter) filter()  {}
func (EventTypeFilter) filter() {}
