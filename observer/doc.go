// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package observer delivers classified timeline events to application
// handlers.
//
// A [Registry] holds subscriptions, each a chain of [Filter] values
// ending in a [Handler]. [Registry.Dispatch] runs every subscription
// concurrently for one event and returns once all of them finish.
// [RoomQueues] feeds the registry: one FIFO and one consumer goroutine
// per room, so events in a room are dispatched strictly in arrival
// order while rooms proceed independently.
//
// [Subscriber] is the declarative front end:
//
//	subscriber.Message(func(ctx context.Context, message *timeline.MessageEvent) error {
//		body, _ := message.Body()
//		...
//	}, observer.InRoom(roomID))
//
// Handlers may unsubscribe themselves through [Context.Unsubscribe];
// the change affects later dispatches only.
package observer
