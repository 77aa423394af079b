// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timeline turns raw /sync timeline records into typed,
// de-duplicated, cross-referenced events.
//
// [Classifier.Ingest] validates one record, builds exactly one
// [Event] variant ([*GenericEvent], [*MessageEvent],
// [*MessageEditEvent] or [*RedactionEvent]) and inserts it into the
// [Store]. A record whose event ID is already stored is dropped. Edits
// are appended to the edit list of their target message, and a
// redaction marks its target, when the target is already stored. A
// target that arrives later is never linked.
//
// Events are shared read-only with observers. The only fields that
// change after ingestion are a message's edit list and an event's
// redacted-by link, both guarded.
//
// [RoomDirectory] keeps the state snapshot of the most recent sync
// round that mentioned each room, replaced wholesale per round.
package timeline
