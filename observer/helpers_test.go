// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observer

import (
	"encoding/json"
	"testing"

	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/timeline"
)

var (
	roomA = ref.MustParseRoomID("!a:example.org")
	roomB = ref.MustParseRoomID("!b:example.org")
)

// eventFactory produces classified events through a real Classifier.
type eventFactory struct {
	t          *testing.T
	classifier *timeline.Classifier
}

func newEventFactory(t *testing.T) *eventFactory {
	return &eventFactory{t: t, classifier: timeline.NewClassifier(timeline.NewStore(), timeline.ClassifierConfig{})}
}

func (f *eventFactory) ingest(roomID ref.RoomID, eventID string, eventType ref.EventType, content map[string]any) timeline.Event {
	f.t.Helper()
	raw, err := json.Marshal(map[string]any{
		"event_id": eventID,
		"type":     eventType.String(),
		"sender":   "@alice:example.org",
		"unsigned": map[string]any{"age": 0},
		"content":  content,
	})
	if err != nil {
		f.t.Fatal(err)
	}
	event, stored, err := f.classifier.Ingest(roomID, raw)
	if err != nil || !stored {
		f.t.Fatalf("Ingest %s: stored=%v err=%v", eventID, stored, err)
	}
	return event
}

func (f *eventFactory) message(roomID ref.RoomID, eventID, body string) timeline.Event {
	f.t.Helper()
	return f.ingest(roomID, eventID, ref.EventTypeMessage, map[string]any{"msgtype": "m.text", "body": body})
}

func (f *eventFactory) edit(roomID ref.RoomID, eventID, targetID, body string) timeline.Event {
	f.t.Helper()
	return f.ingest(roomID, eventID, ref.EventTypeMessage, map[string]any{
		"msgtype":       "m.text",
		"body":          "* " + body,
		"m.new_content": map[string]any{"msgtype": "m.text", "body": body},
		"m.relates_to":  map[string]any{"rel_type": "m.replace", "event_id": targetID},
	})
}

func (f *eventFactory) redaction(roomID ref.RoomID, eventID, targetID string) timeline.Event {
	f.t.Helper()
	return f.ingest(roomID, eventID, ref.EventTypeRedaction, map[string]any{"redacts": targetID})
}
