// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/messaging"
	"github.com/bureau-foundation/roomsync/tap"
	"github.com/bureau-foundation/roomsync/timeline"
)

// SyncOnce performs one /sync round.
//
// Room snapshots are replaced and timeline events classified in
// delivery order. Malformed records are logged and skipped. When the
// client was already Live at the start of the round, every newly
// stored event is then pushed to its room queue; queue consumers are
// bound to ctx. A completed round always leaves the client Live.
//
// Rate limiting is absorbed by the session. Any other request failure
// is returned and leaves the cursor and state unchanged.
func (c *Client) SyncOnce(ctx context.Context) error {
	started := c.clock.Now()
	c.mu.Lock()
	state, cursor := c.state, c.cursor
	c.mu.Unlock()

	response, err := c.session.Sync(ctx, messaging.SyncOptions{
		Since:   cursor,
		Timeout: c.syncTimeout,
		Filter:  c.filter,
	})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	live := state == Live
	var fresh []timeline.Event
	// Rooms are ingested in room ID order, not server order; only order
	// within a room is preserved.
	roomIDs := slices.SortedFunc(maps.Keys(response.Rooms.Join), func(a, b ref.RoomID) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, roomID := range roomIDs {
		room := response.Rooms.Join[roomID]
		c.rooms.Replace(roomID, room.State.Events)
		for _, raw := range room.Timeline.Events {
			if event := c.ingest(roomID, raw, live); event != nil {
				fresh = append(fresh, event)
			}
		}
	}

	if live {
		// The round has been ingested; its events are queued even if
		// ctx ends now. Client.Close governs consumer shutdown.
		pushCtx := context.WithoutCancel(ctx)
		for _, event := range fresh {
			c.queues.Push(pushCtx, event)
		}
	}

	if response.NextBatch == "" {
		c.logger.Warn("sync returned an empty next_batch; next round starts without a cursor",
			"previous_cursor", cursor,
		)
	}
	c.mu.Lock()
	c.cursor = response.NextBatch
	c.state = Live
	c.mu.Unlock()

	if !live {
		c.logger.Info("catch-up sync complete",
			"rooms", len(roomIDs),
			"events", len(fresh),
		)
	}
	c.metrics.SyncRound(state.String(), c.clock.Now().Sub(started))
	return nil
}

// Run calls SyncOnce until ctx is cancelled, which returns nil, or a
// round fails, which returns the error. An *messaging.AuthError is
// logged as fatal; other failures are returned without retry.
func (c *Client) Run(ctx context.Context) error {
	c.logger.Info("sync loop starting",
		"user_id", c.session.UserID(),
		"state", c.State(),
	)
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := c.SyncOnce(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		var authErr *messaging.AuthError
		if errors.As(err, &authErr) {
			c.logger.Error("authentication rejected; stopping sync loop", "error", err)
		} else {
			c.logger.Error("sync loop stopped", "error", err)
		}
		return err
	}
}

// Replay feeds recorded entries through the classifier as if they had
// arrived from /sync. Entries recorded live are dispatched; the rest
// are only stored. The sync state and cursor are not touched. Replay
// stops at the first error from entries.
func (c *Client) Replay(ctx context.Context, entries iter.Seq2[tap.Entry, error]) error {
	for entry, err := range entries {
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		event := c.ingest(entry.RoomID, entry.Event, entry.Live)
		if event != nil && entry.Live {
			c.queues.Push(ctx, event)
		}
	}
	return nil
}

// ingest classifies one record and returns the new event, or nil for a
// duplicate or malformed record.
func (c *Client) ingest(roomID ref.RoomID, raw json.RawMessage, live bool) timeline.Event {
	event, stored, err := c.classifier.Ingest(roomID, raw)
	if err != nil {
		c.logger.Warn("skipping malformed event",
			"room_id", roomID,
			"error", err,
		)
		return nil
	}
	if !stored {
		return nil
	}
	if c.recorder != nil {
		entry := tap.Entry{RoomID: roomID, Event: raw, Live: live, ReceivedAt: c.clock.Now()}
		if err := c.recorder.Record(entry); err != nil {
			c.logger.Warn("recording event failed",
				"room_id", roomID,
				"event_id", event.ID(),
				"error", err,
			)
		}
	}
	return event
}
