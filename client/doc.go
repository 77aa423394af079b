// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client runs the /sync loop of one Matrix account and routes
// what it receives.
//
// Each round replaces the room state snapshots, classifies the timeline
// events into the shared [timeline.Store], and, once the client is
// live, pushes every new event onto its room's dispatch queue. The
// first round only catches up: history delivered by the initial sync
// is stored and linked but never dispatched to handlers.
//
//	c, err := client.New(client.Config{Session: session})
//	defer c.Close()
//	c.Subscriber().Message(func(ctx context.Context, message *timeline.MessageEvent) error {
//		body, _ := message.Body()
//		_, err := c.Reply(ctx, message, "echo: "+body)
//		return err
//	})
//	err = c.Run(ctx)
//
// Outbound operations (sends, redactions, media, history) go through
// the same [messaging.Session], so they share its rate-limit handling.
package client
