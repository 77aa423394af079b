// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics defines roomsync's Prometheus collectors.
//
// [New] registers every collector with the given registerer, so tests
// use a fresh prometheus.NewRegistry() and the CLI uses the default
// registry served by promhttp. All methods are no-ops on a nil
// *Metrics; components accept an optional *Metrics and call it
// unconditionally.
package metrics
