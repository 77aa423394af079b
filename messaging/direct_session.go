// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/bureau-foundation/roomsync/lib/netutil"
	"github.com/bureau-foundation/roomsync/lib/ref"
)

// DirectSession is an authenticated session against the homeserver.
type DirectSession struct {
	client   *Client
	token    TokenProvider
	userID   ref.UserID
	deviceID string
}

// UserID returns the account this session acts as.
func (s *DirectSession) UserID() ref.UserID {
	return s.userID
}

// DeviceID returns the device ID assigned at login, or "" for token
// sessions.
func (s *DirectSession) DeviceID() string {
	return s.deviceID
}

// Client returns the client this session was derived from.
func (s *DirectSession) Client() *Client {
	return s.client
}

// Close releases the token provider if it holds resources.
func (s *DirectSession) Close() error {
	if closer, ok := s.token.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// WhoAmI validates the access token and returns the account identity.
func (s *DirectSession) WhoAmI(ctx context.Context) (*WhoAmIResponse, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/account/whoami", s.token, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: whoami failed: %w", err)
	}
	var response WhoAmIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse whoami response: %w", err)
	}
	return &response, nil
}

// Sync performs one /sync request.
func (s *DirectSession) Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error) {
	query := url.Values{}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	if options.Timeout > 0 {
		query.Set("timeout", strconv.FormatInt(options.Timeout.Milliseconds(), 10))
	}
	if options.Filter != "" {
		query.Set("filter", options.Filter)
	}

	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/sync", s.token, nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: sync failed: %w", err)
	}
	var response SyncResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse sync response: %w", err)
	}
	return &response, nil
}

// SendEvent sends an event with an idempotent PUT keyed by a fresh
// transaction ID. Rate-limit retries reuse the same transaction ID.
func (s *DirectSession) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventType.String()),
		url.PathEscape(newTransactionID()),
	)
	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.token, content, nil)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send %s to %s failed: %w", eventType, roomID, err)
	}
	return parseSendResponse(body)
}

// SendMessage sends an m.room.message.
func (s *DirectSession) SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error) {
	return s.SendEvent(ctx, roomID, ref.EventTypeMessage, content)
}

// Redact redacts eventID with an optional reason.
func (s *DirectSession) Redact(ctx context.Context, roomID ref.RoomID, eventID ref.EventID, reason string) (ref.EventID, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/redact/%s/%s",
		url.PathEscape(roomID.String()),
		url.PathEscape(eventID.String()),
		url.PathEscape(newTransactionID()),
	)
	body, err := s.client.doRequest(ctx, http.MethodPut, path, s.token, RedactRequest{Reason: reason}, nil)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: redact %s in %s failed: %w", eventID, roomID, err)
	}
	return parseSendResponse(body)
}

// DownloadMedia fetches the media behind uri, bounded by
// netutil.MaxMediaSize.
func (s *DirectSession) DownloadMedia(ctx context.Context, uri ref.ContentURI) (*Media, error) {
	if uri.IsZero() {
		return nil, fmt.Errorf("messaging: download requires a content URI")
	}
	call := request{
		method:   http.MethodGet,
		path:     "/_matrix/media/v3/download/" + url.PathEscape(uri.Server()) + "/" + url.PathEscape(uri.MediaID()),
		token:    s.token,
		readBody: netutil.ReadMedia,
	}
	result, err := s.client.execute(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("messaging: download %s failed: %w", uri, err)
	}
	return &Media{ContentType: result.header.Get("Content-Type"), Data: result.body}, nil
}

// Profile fetches a user's public profile.
func (s *DirectSession) Profile(ctx context.Context, userID ref.UserID) (*Profile, error) {
	path := "/_matrix/client/v3/profile/" + url.PathEscape(userID.String())
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.token, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: profile of %s failed: %w", userID, err)
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse profile response: %w", err)
	}
	return &profile, nil
}

// RoomAliases lists the local aliases of a room.
func (s *DirectSession) RoomAliases(ctx context.Context, roomID ref.RoomID) ([]string, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/aliases", url.PathEscape(roomID.String()))
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.token, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: aliases of %s failed: %w", roomID, err)
	}
	var response RoomAliasesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse aliases response: %w", err)
	}
	return response.Aliases, nil
}

// RoomMessages fetches one page of room history.
func (s *DirectSession) RoomMessages(ctx context.Context, roomID ref.RoomID, options RoomMessagesOptions) (*RoomMessagesResponse, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/messages", url.PathEscape(roomID.String()))

	query := url.Values{}
	if options.From != "" {
		query.Set("from", options.From)
	}
	direction := options.Direction
	if direction == "" {
		direction = "b"
	}
	query.Set("dir", direction)
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}

	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.token, nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: messages of %s failed: %w", roomID, err)
	}
	var response RoomMessagesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse messages response: %w", err)
	}
	return &response, nil
}

func parseSendResponse(body []byte) (ref.EventID, error) {
	var response SendEventResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: failed to parse send response: %w", err)
	}
	return response.EventID, nil
}

// newTransactionID returns a transaction ID unique across restarts.
func newTransactionID() string {
	return "roomsync-" + uuid.NewString()
}
