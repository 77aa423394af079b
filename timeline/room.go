// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

// Room is an immutable state snapshot of one joined room, as delivered
// by the latest sync round that included it.
type Room struct {
	id    ref.RoomID
	state []json.RawMessage
}

// ID returns the room ID.
func (r *Room) ID() ref.RoomID {
	return r.id
}

// StateEvents returns a copy of the raw state events.
func (r *Room) StateEvents() []json.RawMessage {
	return slices.Clone(r.state)
}

// Name is the content.name of the last m.room.name event in the
// snapshot, or "".
func (r *Room) Name() string {
	return r.lastContentString(ref.EventTypeRoomName, "name")
}

// Topic is the content.topic of the last m.room.topic event, or "".
func (r *Room) Topic() string {
	return r.lastContentString(ref.EventTypeRoomTopic, "topic")
}

func (r *Room) lastContentString(eventType ref.EventType, field string) string {
	for _, raw := range slices.Backward(r.state) {
		record := gjson.ParseBytes(raw)
		if record.Get("type").String() == eventType.String() {
			return record.Get("content." + field).String()
		}
	}
	return ""
}

// RoomMember is one m.room.member entry of a snapshot.
type RoomMember struct {
	UserID      ref.UserID
	DisplayName string
	Membership  string
}

// Members derives the member list from m.room.member state events. A
// user appearing more than once keeps the position of the first
// appearance and the values of the last. Entries without a valid
// state_key are skipped.
func (r *Room) Members() []RoomMember {
	var members []RoomMember
	index := make(map[ref.UserID]int)
	for _, raw := range r.state {
		record := gjson.ParseBytes(raw)
		if record.Get("type").String() != ref.EventTypeMember.String() {
			continue
		}
		stateKey := record.Get("state_key")
		if stateKey.Type != gjson.String {
			continue
		}
		userID, err := ref.ParseUserID(stateKey.String())
		if err != nil {
			continue
		}
		member := RoomMember{
			UserID:      userID,
			DisplayName: record.Get("content.displayname").String(),
			Membership:  record.Get("content.membership").String(),
		}
		if position, seen := index[userID]; seen {
			members[position] = member
			continue
		}
		index[userID] = len(members)
		members = append(members, member)
	}
	return members
}

// RoomDirectory maps room IDs to their latest snapshot. Snapshots are
// replaced whole; readers never see a partial update.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[ref.RoomID]*Room
}

// NewRoomDirectory returns an empty directory.
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[ref.RoomID]*Room)}
}

// Replace installs a new snapshot for roomID built from state.
func (d *RoomDirectory) Replace(roomID ref.RoomID, state []json.RawMessage) *Room {
	room := &Room{id: roomID, state: slices.Clone(state)}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms[roomID] = room
	return room
}

// Room returns the latest snapshot for roomID.
func (d *RoomDirectory) Room(roomID ref.RoomID) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[roomID]
	return room, ok
}

// Rooms returns every snapshot ordered by room ID.
func (d *RoomDirectory) Rooms() []*Room {
	d.mu.RLock()
	rooms := make([]*Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		rooms = append(rooms, room)
	}
	d.mu.RUnlock()

	slices.SortFunc(rooms, func(a, b *Room) int {
		return strings.Compare(a.id.String(), b.id.String())
	})
	return rooms
}
