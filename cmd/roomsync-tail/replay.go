// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"

	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/messaging"
)

// errOffline is returned by every homeserver call during replay.
var errOffline = errors.New("replaying a tap file: no homeserver connection")

// offlineSession satisfies messaging.Session for replay, where events
// come from a tap file and nothing talks to a homeserver.
type offlineSession struct{}

var _ messaging.Session = offlineSession{}

func (offlineSession) UserID() ref.UserID { return ref.UserID{} }
func (offlineSession) Close() error       { return nil }

func (offlineSession) Sync(context.Context, messaging.SyncOptions) (*messaging.SyncResponse, error) {
	return nil, errOffline
}

func (offlineSession) SendEvent(context.Context, ref.RoomID, ref.EventType, any) (ref.EventID, error) {
	return ref.EventID{}, errOffline
}

func (offlineSession) Redact(context.Context, ref.RoomID, ref.EventID, string) (ref.EventID, error) {
	return ref.EventID{}, errOffline
}

func (offlineSession) DownloadMedia(context.Context, ref.ContentURI) (*messaging.Media, error) {
	return nil, errOffline
}

func (offlineSession) WhoAmI(context.Context) (*messaging.WhoAmIResponse, error) {
	return nil, errOffline
}

func (offlineSession) Profile(context.Context, ref.UserID) (*messaging.Profile, error) {
	return nil, errOffline
}

func (offlineSession) RoomAliases(context.Context, ref.RoomID) ([]string, error) {
	return nil, errOffline
}

func (offlineSession) RoomMessages(context.Context, ref.RoomID, messaging.RoomMessagesOptions) (*messaging.RoomMessagesResponse, error) {
	return nil, errOffline
}
