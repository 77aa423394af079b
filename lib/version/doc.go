// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build identification injected via -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/roomsync/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// [Info] is printed by --version. [UserAgent] is sent on every
// homeserver request so server operators can attribute traffic.
package version
