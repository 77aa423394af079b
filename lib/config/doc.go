// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads roomsync's YAML configuration.
//
// Configuration comes from a single file named by the ROOMSYNC_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery and no environment override of
// individual values. The only expansion is ${VAR} and ${VAR:-default}
// in path fields.
//
// A minimal file:
//
//	homeserver: https://matrix.example.org
//	user_id: "@bot:example.org"
//	access_token_file: ${HOME}/.config/roomsync/token
//	sync:
//	  timeout: 30s
//	  filter_file: filter.jsonc
//
// The optional sync filter is a JSONC document (comments and trailing
// commas allowed) returned by [Config.LoadSyncFilter] as plain JSON.
package config
