// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/messaging"
)

var (
	roomA    = ref.MustParseRoomID("!a:example.org")
	roomB    = ref.MustParseRoomID("!b:example.org")
	testUser = ref.MustParseUserID("@bot:example.org")
)

// syncStep is one scripted /sync outcome.
type syncStep struct {
	response *messaging.SyncResponse
	err      error
}

// fakeSession scripts /sync responses and records outbound calls.
// Once the script is exhausted, Sync blocks until ctx is cancelled.
type fakeSession struct {
	mu        sync.Mutex
	steps     []syncStep
	syncCalls []messaging.SyncOptions
	sent      []sentEvent
	redacted  []ref.EventID
	pages     map[string]*messaging.RoomMessagesResponse
	pageCalls []messaging.RoomMessagesOptions
	media     map[string]*messaging.Media
}

type sentEvent struct {
	roomID    ref.RoomID
	eventType ref.EventType
	content   any
}

func newFakeSession(steps ...syncStep) *fakeSession {
	return &fakeSession{steps: steps}
}

func (s *fakeSession) UserID() ref.UserID { return testUser }

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) Sync(ctx context.Context, options messaging.SyncOptions) (*messaging.SyncResponse, error) {
	s.mu.Lock()
	s.syncCalls = append(s.syncCalls, options)
	if len(s.steps) > 0 {
		step := s.steps[0]
		s.steps = s.steps[1:]
		s.mu.Unlock()
		return step.response, step.err
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, &messaging.NetworkError{Method: "GET", Path: "/sync", Err: ctx.Err()}
}

func (s *fakeSession) SendEvent(_ context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEvent{roomID: roomID, eventType: eventType, content: content})
	return ref.MustParseEventID(fmt.Sprintf("$sent%d", len(s.sent))), nil
}

func (s *fakeSession) Redact(_ context.Context, _ ref.RoomID, eventID ref.EventID, _ string) (ref.EventID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redacted = append(s.redacted, eventID)
	return ref.MustParseEventID("$redaction"), nil
}

func (s *fakeSession) DownloadMedia(_ context.Context, uri ref.ContentURI) (*messaging.Media, error) {
	media, ok := s.media[uri.String()]
	if !ok {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeNotFound, StatusCode: 404}
	}
	return media, nil
}

func (s *fakeSession) WhoAmI(context.Context) (*messaging.WhoAmIResponse, error) {
	return &messaging.WhoAmIResponse{UserID: testUser}, nil
}

func (s *fakeSession) Profile(context.Context, ref.UserID) (*messaging.Profile, error) {
	return &messaging.Profile{DisplayName: "Bot"}, nil
}

func (s *fakeSession) RoomAliases(context.Context, ref.RoomID) ([]string, error) {
	return []string{"#bots:example.org"}, nil
}

func (s *fakeSession) RoomMessages(_ context.Context, _ ref.RoomID, options messaging.RoomMessagesOptions) (*messaging.RoomMessagesResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageCalls = append(s.pageCalls, options)
	page, ok := s.pages[options.From]
	if !ok {
		return nil, &messaging.MatrixError{Code: messaging.ErrCodeUnknown, Message: "no page " + options.From, StatusCode: 400}
	}
	return page, nil
}

func (s *fakeSession) syncOptions() []messaging.SyncOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]messaging.SyncOptions(nil), s.syncCalls...)
}

// timelineEvent builds a raw m.room.message record.
func timelineEvent(t *testing.T, eventID, body string) json.RawMessage {
	t.Helper()
	return marshalEvent(t, map[string]any{
		"event_id": eventID,
		"type":     "m.room.message",
		"sender":   "@alice:example.org",
		"unsigned": map[string]any{"age": 5},
		"content":  map[string]any{"msgtype": "m.text", "body": body},
	})
}

func marshalEvent(t *testing.T, record map[string]any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// syncResponse builds a response delivering events into rooms.
func syncResponse(nextBatch string, rooms map[ref.RoomID][]json.RawMessage) *messaging.SyncResponse {
	response := &messaging.SyncResponse{NextBatch: nextBatch}
	response.Rooms.Join = make(map[ref.RoomID]messaging.JoinedRoom)
	for roomID, events := range rooms {
		response.Rooms.Join[roomID] = messaging.JoinedRoom{
			Timeline: messaging.TimelineSection{Events: events},
		}
	}
	return response
}

func newTestClient(t *testing.T, session messaging.Session) *Client {
	t.Helper()
	c, err := New(Config{Session: session})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}
