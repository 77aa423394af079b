// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import "github.com/bureau-foundation/roomsync/lib/ref"

// MessageEditEvent is an m.room.message carrying an m.replace relation.
type MessageEditEvent struct {
	eventHeader
	targetID ref.EventID
}

func (e *MessageEditEvent) Kind() Kind { return KindMessageEdit }

// TargetID is m.relates_to.event_id, zero when absent or invalid.
func (e *MessageEditEvent) TargetID() ref.EventID {
	return e.targetID
}

// Original resolves the edited message through the Store. It returns
// nil when the target is unknown or is not a message.
func (e *MessageEditEvent) Original() *MessageEvent {
	if e.targetID.IsZero() || e.resolver == nil {
		return nil
	}
	message, _ := e.resolver.Event(e.targetID).(*MessageEvent)
	return message
}

// NewMsgType is the msgtype of m.new_content.
func (e *MessageEditEvent) NewMsgType() MessageType {
	return parseMessageType(e.contentField(`m\.new_content.msgtype`).String())
}

// Body is the replacement body from m.new_content. It returns
// ErrNotText when the replacement is not a text-like message.
func (e *MessageEditEvent) Body() (string, error) {
	if !e.NewMsgType().IsText() {
		return "", ErrNotText
	}
	return e.contentField(`m\.new_content.body`).String(), nil
}
