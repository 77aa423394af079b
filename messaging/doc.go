// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the HTTP transport to a Matrix homeserver.
//
// [Client] holds the homeserver URL and HTTP transport and performs
// password login. [DirectSession] adds an access token, supplied by a
// [TokenProvider], and exposes the authenticated endpoints roomsync
// needs: /sync, event and redaction sends, media download, whoami,
// profiles, room aliases and paginated room history.
//
// Every request goes through one executor. An HTTP 429 response is
// waited out (Retry-After header, then the body's retry_after_ms, then
// one second) and the identical request is retried in a loop, without
// bound, until the server answers or the context ends. Rate limiting
// is visible only as a warning log line and a counter.
//
// Failures are typed values inspected with errors.As:
//
//   - [*NetworkError]: the request never produced an HTTP response
//   - [*AuthError]: no usable credential, or the server returned 401
//   - [*MatrixError]: any other non-2xx response
//
// /sync timeline and state events are returned as raw JSON so that one
// malformed record never fails decoding of the whole batch; package
// timeline classifies them.
package messaging
