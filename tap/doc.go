// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tap records ingested timeline events to a file and reads
// them back.
//
// A tap file is a sequence of CBOR-encoded [Entry] values with no
// framing; CBOR items are self-delimiting. The stream may be wrapped in
// zstd or LZ4 compression, chosen by file extension (".zst", ".lz4").
// Replaying a tap through a client reproduces the Store and the live
// dispatches of the recorded session without a homeserver.
//
// [Scrub] rewrites message bodies before they are written, for taps
// that leave the machine.
package tap
