// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used for roomsync's
// on-disk formats.
//
// Homeserver traffic is JSON; the event tap (package tap) records
// dispatched events as a CBOR sequence. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2), so re-recording the same
// events yields identical bytes. Types implementing
// encoding.TextMarshaler (ref.RoomID, ref.EventID, ...) encode as CBOR
// text strings.
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Struct fields may carry `json` tags only; fxamacker/cbor falls back
// to them when `cbor` tags are absent.
package codec
