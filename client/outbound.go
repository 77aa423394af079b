// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/messaging"
	"github.com/bureau-foundation/roomsync/timeline"
)

// Thumbnail dimensions used by ThumbnailURL.
const (
	ThumbnailWidth  = 64
	ThumbnailHeight = 64
)

// SendText sends a plain m.text message.
func (c *Client) SendText(ctx context.Context, roomID ref.RoomID, body string) (ref.EventID, error) {
	return c.session.SendEvent(ctx, roomID, ref.EventTypeMessage, messaging.NewTextMessage(body))
}

// SendMarkdown sends markdown as body with its HTML rendering as
// formatted_body.
func (c *Client) SendMarkdown(ctx context.Context, roomID ref.RoomID, markdown string) (ref.EventID, error) {
	content, err := messaging.NewMarkdownMessage(markdown)
	if err != nil {
		return ref.EventID{}, err
	}
	return c.session.SendEvent(ctx, roomID, ref.EventTypeMessage, content)
}

// Reply sends an m.text reply to event in event's room.
func (c *Client) Reply(ctx context.Context, event timeline.Event, body string) (ref.EventID, error) {
	return c.session.SendEvent(ctx, event.Room(), ref.EventTypeMessage, messaging.NewReply(event.ID(), body))
}

// Redact redacts event. The reason may be empty.
func (c *Client) Redact(ctx context.Context, event timeline.Event, reason string) (ref.EventID, error) {
	return c.session.Redact(ctx, event.Room(), event.ID(), reason)
}

// Download fetches an attachment's media.
func (c *Client) Download(ctx context.Context, attachment *timeline.Attachment) (*messaging.Media, error) {
	if attachment == nil || attachment.URL.IsZero() {
		return nil, fmt.Errorf("client: attachment has no media URL")
	}
	return c.session.DownloadMedia(ctx, attachment.URL)
}

// AttachmentURL is the HTTP download URL of an attachment.
func (c *Client) AttachmentURL(attachment *timeline.Attachment) string {
	if c.media == nil || attachment == nil {
		return ""
	}
	return c.media.MediaDownloadURL(attachment.URL)
}

// ThumbnailURL is a small thumbnail URL for any mxc:// reference, such
// as an avatar.
func (c *Client) ThumbnailURL(uri ref.ContentURI) string {
	if c.media == nil {
		return ""
	}
	return c.media.MediaThumbnailURL(uri, ThumbnailWidth, ThumbnailHeight)
}

// WhoAmI returns the account the session acts as.
func (c *Client) WhoAmI(ctx context.Context) (*messaging.WhoAmIResponse, error) {
	return c.session.WhoAmI(ctx)
}

// Profile fetches a user's display name and avatar.
func (c *Client) Profile(ctx context.Context, userID ref.UserID) (*messaging.Profile, error) {
	return c.session.Profile(ctx, userID)
}

// RoomAliases lists a room's local aliases.
func (c *Client) RoomAliases(ctx context.Context, roomID ref.RoomID) ([]string, error) {
	return c.session.RoomAliases(ctx, roomID)
}

// RoomHistory iterates a room's history from the newest event
// backwards, fetching pages of pageSize as needed (0 uses the server
// default). History events are classified into a private store; they
// never enter the client's Store or reach handlers. Each page is
// ingested oldest first, so an edit or redaction links to a target on
// the same page. A target on an older page is not yet known when its
// edit is ingested and stays unlinked. Malformed records are skipped.
// A request error is yielded once and ends iteration.
func (c *Client) RoomHistory(ctx context.Context, roomID ref.RoomID, pageSize int) iter.Seq2[timeline.Event, error] {
	return func(yield func(timeline.Event, error) bool) {
		classifier := timeline.NewClassifier(timeline.NewStore(), timeline.ClassifierConfig{Logger: c.logger})
		from := ""
		for {
			page, err := c.session.RoomMessages(ctx, roomID, messaging.RoomMessagesOptions{
				From:      from,
				Direction: "b",
				Limit:     pageSize,
			})
			if err != nil {
				yield(nil, fmt.Errorf("room history: %w", err))
				return
			}
			// Chunks arrive newest first.
			stored := make([]timeline.Event, 0, len(page.Chunk))
			for _, raw := range slices.Backward(page.Chunk) {
				event, ok, err := classifier.Ingest(roomID, raw)
				if err != nil {
					c.logger.Warn("skipping malformed history event", "room_id", roomID, "error", err)
					continue
				}
				if ok {
					stored = append(stored, event)
				}
			}
			for _, event := range slices.Backward(stored) {
				if !yield(event, nil) {
					return
				}
			}
			if page.End == "" || page.End == from || len(page.Chunk) == 0 {
				return
			}
			from = page.End
		}
	}
}
