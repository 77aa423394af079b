// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import "github.com/bureau-foundation/roomsync/lib/ref"

// RedactionEvent is an m.room.redaction.
type RedactionEvent struct {
	eventHeader
	redactsID ref.EventID
}

func (e *RedactionEvent) Kind() Kind { return KindRedaction }

// RedactsID is the redacted event's ID: content.redacts, or the
// top-level redacts of pre-v11 rooms. Zero when neither is valid.
func (e *RedactionEvent) RedactsID() ref.EventID {
	return e.redactsID
}

// Redacts resolves the redacted event through the Store, or nil.
func (e *RedactionEvent) Redacts() Event {
	if e.redactsID.IsZero() || e.resolver == nil {
		return nil
	}
	return e.resolver.Event(e.redactsID)
}

// Reason is the optional human-readable reason.
func (e *RedactionEvent) Reason() string {
	return e.contentField("reason").String()
}
