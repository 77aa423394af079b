// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

type sampleRecord struct {
	Room    ref.RoomID `json:"room_id"`
	EventID string     `json:"event_id"`
	AgeMS   int64      `json:"age_ms,omitempty"`
}

func TestDeterministicEncoding(t *testing.T) {
	first, err := Marshal(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(map[string]int{"c": 3, "a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("map encoding depends on insertion order:\n%x\n%x", first, second)
	}
}

func TestTextMarshalerEncodesAsString(t *testing.T) {
	record := sampleRecord{Room: ref.MustParseRoomID("!abc:example.org"), EventID: "$e1"}
	data, err := Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"!abc:example.org"`) {
		t.Errorf("room ID not encoded as text string: %s", diagnostic)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != record {
		t.Errorf("decoded %+v, want %+v", decoded, record)
	}
}

func TestStreamSequence(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, id := range []string{"$a", "$b"} {
		if err := encoder.Encode(sampleRecord{Room: ref.MustParseRoomID("!r:s"), EventID: id}); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	var ids []string
	for {
		var record sampleRecord
		err := decoder.Decode(&record)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		ids = append(ids, record.EventID)
	}
	if len(ids) != 2 || ids[0] != "$a" || ids[1] != "$b" {
		t.Errorf("decoded ids %v, want [$a $b]", ids)
	}
}

func TestAnyMapsDecodeWithStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"body": "hi"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Errorf("decoded %T, want map[string]any", decoded)
	}
}
