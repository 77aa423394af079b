// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds homeserver credentials (login passwords and
// access tokens) outside the Go heap.
//
// A [Buffer] is an anonymous mmap region that is mlocked (never
// swapped) and marked MADV_DONTDUMP. Close zeroes and unmaps it; any
// access afterwards panics. The messaging package keeps a session's
// access token in a Buffer and copies it to a string only when building
// the Authorization header.
//
// [ReadFromPath] loads a password or token file (or stdin for "-")
// straight into a Buffer.
package secret
