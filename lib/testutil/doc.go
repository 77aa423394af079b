// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for roomsync packages.
//
// [RequireReceive], [RequireNoReceive] and [RequireClosed] wrap the
// select-with-timeout pattern used when a test waits for a handler
// running on a room consumer goroutine. They are the only place tests
// touch the wall clock; everything else goes through lib/clock.
//
// [UniqueID] generates distinct transaction IDs and message bodies.
package testutil
