// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix event type ("m.room.message",
// "m.room.member", ...). It is a named string rather than a struct
// wrapper: event types are opaque and need no validation. The type
// exists for compile-time safety, preventing a state key or msgtype
// from being passed where an event type is expected.
type EventType string

// Standard Matrix event types that roomsync classifies or reads.
const (
	EventTypeMessage    EventType = "m.room.message"
	EventTypeRedaction  EventType = "m.room.redaction"
	EventTypeMember     EventType = "m.room.member"
	EventTypeRoomName   EventType = "m.room.name"
	EventTypeRoomTopic  EventType = "m.room.topic"
	EventTypeRoomCreate EventType = "m.room.create"
)

// String returns the event type string.
func (t EventType) String() string { return string(t) }
