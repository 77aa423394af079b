// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"encoding/json"
	"testing"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

var (
	testRoom   = ref.MustParseRoomID("!room:example.org")
	testSender = "@alice:example.org"
)

// rawEvent builds a well-formed timeline record with the given content.
func rawEvent(t *testing.T, eventID string, eventType ref.EventType, content map[string]any) json.RawMessage {
	t.Helper()
	record := map[string]any{
		"event_id":         eventID,
		"type":             eventType.String(),
		"sender":           testSender,
		"origin_server_ts": int64(1700000000000),
		"unsigned":         map[string]any{"age": 1234},
		"content":          content,
	}
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal event %s: %v", eventID, err)
	}
	return data
}

func textContent(body string) map[string]any {
	return map[string]any{"msgtype": "m.text", "body": body}
}

func editContent(targetID, body string) map[string]any {
	return map[string]any{
		"msgtype": "m.text",
		"body":    "* " + body,
		"m.new_content": map[string]any{
			"msgtype": "m.text",
			"body":    body,
		},
		"m.relates_to": map[string]any{
			"rel_type": "m.replace",
			"event_id": targetID,
		},
	}
}

func newTestClassifier() *Classifier {
	return NewClassifier(NewStore(), ClassifierConfig{})
}

// mustIngest ingests raw and fails unless a new event was stored.
func mustIngest(t *testing.T, classifier *Classifier, raw json.RawMessage) Event {
	t.Helper()
	event, stored, err := classifier.Ingest(testRoom, raw)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !stored || event == nil {
		t.Fatalf("Ingest: event not stored")
	}
	return event
}
