// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable identifiers for the Matrix
// objects roomsync handles: rooms ([RoomID]), events ([EventID]),
// users ([UserID]), event types ([EventType]), and media content
// URIs ([ContentURI]).
//
// Identifiers enter the process as strings inside /sync responses and
// API replies. They are parsed into these types at that boundary so
// the rest of the code never has to re-check a sigil or a ':server'
// suffix. All struct-wrapped types implement encoding.TextMarshaler
// and encoding.TextUnmarshaler, so they decode directly from JSON map
// keys and string fields.
//
// The zero value of every struct type is "unset"; use IsZero to test.
package ref
