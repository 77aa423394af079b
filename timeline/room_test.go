// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"encoding/json"
	"testing"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

func stateEvent(t *testing.T, eventType ref.EventType, stateKey string, content map[string]any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"type":      eventType.String(),
		"state_key": stateKey,
		"sender":    testSender,
		"content":   content,
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRoomNameAndTopic(t *testing.T) {
	directory := NewRoomDirectory()
	room := directory.Replace(testRoom, []json.RawMessage{
		stateEvent(t, ref.EventTypeRoomName, "", map[string]any{"name": "Old"}),
		stateEvent(t, ref.EventTypeRoomTopic, "", map[string]any{"topic": "Chatter"}),
		stateEvent(t, ref.EventTypeRoomName, "", map[string]any{"name": "New"}),
	})
	if room.Name() != "New" {
		t.Errorf("Name = %q, want New", room.Name())
	}
	if room.Topic() != "Chatter" {
		t.Errorf("Topic = %q", room.Topic())
	}
	if len(room.StateEvents()) != 3 {
		t.Errorf("StateEvents len = %d", len(room.StateEvents()))
	}
}

func TestRoomMembersDeduplicated(t *testing.T) {
	directory := NewRoomDirectory()
	room := directory.Replace(testRoom, []json.RawMessage{
		stateEvent(t, ref.EventTypeMember, "@alice:example.org", map[string]any{"membership": "invite"}),
		stateEvent(t, ref.EventTypeMember, "@bob:example.org", map[string]any{"membership": "join", "displayname": "Bob"}),
		stateEvent(t, ref.EventTypeMember, "not-a-user", map[string]any{"membership": "join"}),
		stateEvent(t, ref.EventTypeMember, "@alice:example.org", map[string]any{"membership": "join", "displayname": "Alice"}),
	})

	members := room.Members()
	if len(members) != 2 {
		t.Fatalf("Members = %+v, want 2 entries", members)
	}
	if members[0].UserID.String() != "@alice:example.org" || members[0].Membership != "join" || members[0].DisplayName != "Alice" {
		t.Errorf("members[0] = %+v", members[0])
	}
	if members[1].UserID.String() != "@bob:example.org" || members[1].DisplayName != "Bob" {
		t.Errorf("members[1] = %+v", members[1])
	}
}

func TestRoomDirectoryReplace(t *testing.T) {
	directory := NewRoomDirectory()
	other := ref.MustParseRoomID("!aaa:example.org")

	directory.Replace(testRoom, []json.RawMessage{
		stateEvent(t, ref.EventTypeRoomName, "", map[string]any{"name": "First"}),
	})
	directory.Replace(other, nil)
	directory.Replace(testRoom, nil)

	room, ok := directory.Room(testRoom)
	if !ok {
		t.Fatal("room missing")
	}
	if room.Name() != "" {
		t.Errorf("Name = %q, snapshot should be replaced whole", room.Name())
	}
	if _, ok := directory.Room(ref.MustParseRoomID("!missing:example.org")); ok {
		t.Error("unknown room reported present")
	}

	rooms := directory.Rooms()
	if len(rooms) != 2 || rooms[0].ID() != other || rooms[1].ID() != testRoom {
		t.Errorf("Rooms not sorted by ID: %v", rooms)
	}
}
