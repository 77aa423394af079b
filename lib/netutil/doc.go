// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers for the homeserver client.
//
// JSON response reads are bounded at [MaxResponseSize] and media
// downloads at [MaxMediaSize], so a misbehaving server cannot exhaust
// memory. [ParseRetryAfter] interprets the Retry-After header on 429
// responses.
package netutil
