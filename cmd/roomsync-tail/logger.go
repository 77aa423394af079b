// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/roomsync/lib/config"
)

// newLogger writes to stderr at the configured level. Format "auto"
// picks text on a terminal and JSON otherwise.
func newLogger(cfg *config.Config) *slog.Logger {
	options := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	useText := cfg.Log.Format == "text" ||
		(cfg.Log.Format != "json" && term.IsTerminal(int(os.Stderr.Fd())))
	if useText {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}
