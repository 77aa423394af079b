// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

// Event is one ingested timeline event. The variant set is closed:
// *GenericEvent, *MessageEvent, *MessageEditEvent, *RedactionEvent.
type Event interface {
	ID() ref.EventID
	Type() ref.EventType
	Room() ref.RoomID
	Sender() ref.UserID
	// Age is unsigned.age as delivered, captured once at ingestion.
	Age() time.Duration
	// OriginServerTS is the sending server's timestamp, or the zero
	// time when absent.
	OriginServerTS() time.Time
	// Raw is the record exactly as delivered.
	Raw() json.RawMessage
	// Content is the record's content object.
	Content() json.RawMessage
	Kind() Kind
	// RedactedBy is the first redaction ingested after this event
	// that targets it, or nil.
	RedactedBy() *RedactionEvent

	header() *eventHeader
}

// Resolver looks up stored events by ID. *Store implements it.
type Resolver interface {
	Event(id ref.EventID) Event
}

// eventHeader holds the fields every variant shares. It is built once
// by parseHeader and copied into the variant; the redaction link is
// shared through the pointer.
type eventHeader struct {
	id         ref.EventID
	eventType  ref.EventType
	room       ref.RoomID
	sender     ref.UserID
	age        time.Duration
	originTS   time.Time
	raw        json.RawMessage
	content    json.RawMessage
	redactedBy *atomic.Pointer[RedactionEvent]
	resolver   Resolver
}

func (h *eventHeader) ID() ref.EventID           { return h.id }
func (h *eventHeader) Type() ref.EventType       { return h.eventType }
func (h *eventHeader) Room() ref.RoomID          { return h.room }
func (h *eventHeader) Sender() ref.UserID        { return h.sender }
func (h *eventHeader) Age() time.Duration        { return h.age }
func (h *eventHeader) OriginServerTS() time.Time { return h.originTS }
func (h *eventHeader) Raw() json.RawMessage      { return h.raw }
func (h *eventHeader) Content() json.RawMessage  { return h.content }
func (h *eventHeader) header() *eventHeader      { return h }

func (h *eventHeader) RedactedBy() *RedactionEvent {
	return h.redactedBy.Load()
}

// markRedacted records the redaction unless one is already recorded.
func (h *eventHeader) markRedacted(redaction *RedactionEvent) bool {
	return h.redactedBy.CompareAndSwap(nil, redaction)
}

// StateKey returns the state_key of a state event.
func (h *eventHeader) StateKey() (string, bool) {
	result := gjson.GetBytes(h.raw, "state_key")
	if result.Type != gjson.String {
		return "", false
	}
	return result.String(), true
}

// contentField projects a path out of the content object.
func (h *eventHeader) contentField(path string) gjson.Result {
	return gjson.GetBytes(h.content, path)
}

// GenericEvent is any event type without a dedicated variant.
type GenericEvent struct {
	eventHeader
}

func (e *GenericEvent) Kind() Kind { return KindGeneric }
