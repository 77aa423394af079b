// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

// Session is the authenticated surface the sync client depends on.
// *DirectSession is the production implementation; tests may
// substitute their own.
type Session interface {
	// UserID returns the account this session acts as.
	UserID() ref.UserID

	// Close releases the credential. Idempotent.
	Close() error

	// Sync performs one /sync request.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)

	// SendEvent sends a non-state event and returns its ID.
	SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error)

	// Redact redacts eventID and returns the redaction's event ID.
	Redact(ctx context.Context, roomID ref.RoomID, eventID ref.EventID, reason string) (ref.EventID, error)

	// DownloadMedia fetches the media behind an mxc:// reference.
	DownloadMedia(ctx context.Context, uri ref.ContentURI) (*Media, error)

	// WhoAmI validates the token and returns the account identity.
	WhoAmI(ctx context.Context) (*WhoAmIResponse, error)

	// Profile fetches a user's display name and avatar.
	Profile(ctx context.Context, userID ref.UserID) (*Profile, error)

	// RoomAliases lists the local aliases of a room.
	RoomAliases(ctx context.Context, roomID ref.RoomID) ([]string, error)

	// RoomMessages fetches one page of room history.
	RoomMessages(ctx context.Context, roomID ref.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error)
}

var _ Session = (*DirectSession)(nil)
