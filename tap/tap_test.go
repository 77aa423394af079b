// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tap

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

var testRoom = ref.MustParseRoomID("!room:example.org")

func testEntries() []Entry {
	received := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Entry{
		{
			RoomID:     testRoom,
			Event:      json.RawMessage(`{"event_id":"$1","type":"m.room.message","content":{"msgtype":"m.text","body":"hello"}}`),
			Live:       false,
			ReceivedAt: received,
		},
		{
			RoomID:     testRoom,
			Event:      json.RawMessage(`{"event_id":"$2","type":"m.room.redaction","content":{"redacts":"$1","reason":"typo"}}`),
			Live:       true,
			ReceivedAt: received.Add(time.Second),
		},
	}
}

func TestRoundTripInMemory(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(compression.String(), func(t *testing.T) {
			var buffer bytes.Buffer
			writer, err := NewWriter(&buffer, WriterOptions{Compression: compression})
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			for _, entry := range testEntries() {
				if err := writer.Record(entry); err != nil {
					t.Fatalf("Record: %v", err)
				}
			}
			if err := writer.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			reader, err := NewReader(&buffer, compression)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			defer reader.Close()

			var got []Entry
			for entry, err := range reader.All() {
				if err != nil {
					t.Fatalf("All: %v", err)
				}
				got = append(got, entry)
			}
			assertEntries(t, got, testEntries())
		})
	}
}

func TestCreateAndOpenByExtension(t *testing.T) {
	for _, name := range []string{"events.tap", "events.tap.zst", "events.tap.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writer, err := Create(path, false)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			for _, entry := range testEntries() {
				if err := writer.Record(entry); err != nil {
					t.Fatal(err)
				}
			}
			if err := writer.Close(); err != nil {
				t.Fatal(err)
			}

			reader, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer reader.Close()
			first, err := reader.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			second, err := reader.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			assertEntries(t, []Entry{first, second}, testEntries())
			if _, err := reader.Next(); !errors.Is(err, io.EOF) {
				t.Errorf("Next after last entry = %v, want io.EOF", err)
			}
		})
	}
}

func TestCompressionForPath(t *testing.T) {
	tests := map[string]Compression{
		"a.tap":      CompressionNone,
		"a.tap.zst":  CompressionZstd,
		"a.zstd":     CompressionZstd,
		"a.tap.lz4":  CompressionLZ4,
		"no-ext":     CompressionNone,
		"dir.zst/ab": CompressionNone,
	}
	for path, want := range tests {
		if got := CompressionForPath(path); got != want {
			t.Errorf("CompressionForPath(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestRecordAfterClose(t *testing.T) {
	writer, err := NewWriter(io.Discard, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	writer.Close()
	if err := writer.Record(testEntries()[0]); err == nil {
		t.Error("Record after Close should fail")
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestScrub(t *testing.T) {
	raw := json.RawMessage(`{"event_id":"$e","content":{"msgtype":"m.text","body":"secret","m.new_content":{"msgtype":"m.text","body":"also secret"},"m.relates_to":{"rel_type":"m.replace","event_id":"$o"}}}`)
	scrubbed, err := Scrub(raw)
	if err != nil {
		t.Fatalf("Scrub: %v", err)
	}
	for path, want := range map[string]string{
		"content.body":                   ScrubbedBody,
		`content.m\.new_content.body`:    ScrubbedBody,
		`content.m\.relates_to.event_id`: "$o",
		"event_id":                       "$e",
		"content.msgtype":                "m.text",
	} {
		if got := gjson.GetBytes(scrubbed, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	if gjson.GetBytes(scrubbed, "content.formatted_body").Exists() {
		t.Error("Scrub added a field that was absent")
	}
	if gjson.GetBytes(raw, "content.body").String() != "secret" {
		t.Error("Scrub modified its input")
	}
}

func TestWriterScrubs(t *testing.T) {
	var buffer bytes.Buffer
	writer, err := NewWriter(&buffer, WriterOptions{Scrub: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := writer.Record(testEntries()[0]); err != nil {
		t.Fatal(err)
	}
	writer.Close()

	reader, err := NewReader(&buffer, CompressionNone)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := reader.Next()
	if err != nil {
		t.Fatal(err)
	}
	if body := gjson.GetBytes(entry.Event, "content.body").String(); body != ScrubbedBody {
		t.Errorf("recorded body = %q, want scrubbed", body)
	}
}

func assertEntries(t *testing.T, got, want []Entry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].RoomID != want[i].RoomID {
			t.Errorf("entry %d RoomID = %q, want %q", i, got[i].RoomID, want[i].RoomID)
		}
		if !bytes.Equal(got[i].Event, want[i].Event) {
			t.Errorf("entry %d Event = %s, want %s", i, got[i].Event, want[i].Event)
		}
		if got[i].Live != want[i].Live {
			t.Errorf("entry %d Live = %v, want %v", i, got[i].Live, want[i].Live)
		}
		if !got[i].ReceivedAt.Equal(want[i].ReceivedAt) {
			t.Errorf("entry %d ReceivedAt = %v, want %v", i, got[i].ReceivedAt, want[i].ReceivedAt)
		}
	}
}
