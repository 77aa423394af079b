// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"time"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string         `json:"type"`
	Identifier               UserIdentifier `json:"identifier"`
	Password                 string         `json:"password"`
	DeviceID                 string         `json:"device_id,omitempty"`
	InitialDeviceDisplayName string         `json:"initial_device_display_name,omitempty"`
}

// UserIdentifier identifies the account in a login request.
type UserIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// LoginResponse is returned by /login.
type LoginResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// SyncOptions controls one /sync request.
type SyncOptions struct {
	// Since is the next_batch cursor of the previous round; empty for
	// an initial sync, in which case the parameter is omitted.
	Since string
	// Timeout is the long-poll wait. Zero omits the parameter and the
	// server answers immediately.
	Timeout time.Duration
	// Filter is a filter ID or an inline JSON filter.
	Filter string
}

// SyncResponse is the subset of the /sync response roomsync consumes.
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection holds per-room data for joined rooms. Map keys decode
// through ref.RoomID's TextUnmarshaler.
type RoomsSection struct {
	Join map[ref.RoomID]JoinedRoom `json:"join,omitempty"`
}

// JoinedRoom contains sync data for a joined room.
type JoinedRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// TimelineSection contains timeline events in delivery order. Events
// stay raw; classification validates them one by one.
type TimelineSection struct {
	Events    []json.RawMessage `json:"events"`
	PrevBatch string            `json:"prev_batch,omitempty"`
	Limited   bool              `json:"limited,omitempty"`
}

// StateSection contains state events.
type StateSection struct {
	Events []json.RawMessage `json:"events"`
}

// SendEventResponse is returned by event and redaction sends.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// RedactRequest is the body of a redaction request.
type RedactRequest struct {
	Reason string `json:"reason,omitempty"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// Profile is a user's public profile.
type Profile struct {
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// RoomAliasesResponse is returned by the room aliases endpoint.
type RoomAliasesResponse struct {
	Aliases []string `json:"aliases"`
}

// RoomMessagesOptions controls one page of room history.
type RoomMessagesOptions struct {
	From      string // pagination token; empty starts from the latest event
	Direction string // "b" (older, default) or "f" (newer)
	Limit     int    // max events; 0 uses the server default
}

// RoomMessagesResponse is one page of room history. End is empty on
// the last page.
type RoomMessagesResponse struct {
	Start string            `json:"start"`
	End   string            `json:"end,omitempty"`
	Chunk []json.RawMessage `json:"chunk"`
}

// Media is a downloaded media object.
type Media struct {
	ContentType string
	Data        []byte
}
