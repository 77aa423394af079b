// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/roomsync/lib/clock"
	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/lib/testutil"
	"github.com/bureau-foundation/roomsync/messaging"
	"github.com/bureau-foundation/roomsync/observer"
	"github.com/bureau-foundation/roomsync/tap"
	"github.com/bureau-foundation/roomsync/timeline"
)

func TestNewRequiresSession(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New without a session should fail")
	}
}

func TestCatchUpThenLive(t *testing.T) {
	var catchUp []json.RawMessage
	for i := range 5 {
		catchUp = append(catchUp, timelineEvent(t, fmt.Sprintf("$old%d", i), "history"))
	}
	session := newFakeSession(
		syncStep{response: syncResponse("s1", map[ref.RoomID][]json.RawMessage{roomA: catchUp})},
		syncStep{response: syncResponse("s2", map[ref.RoomID][]json.RawMessage{roomA: {timelineEvent(t, "$new", "hello")}})},
	)
	c := newTestClient(t, session)

	delivered := make(chan string, 16)
	c.Subscriber().Subscribe(func(_ context.Context, dispatch *observer.Context) error {
		delivered <- dispatch.Event.ID().String()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if c.State() != CatchingUp {
		t.Fatalf("initial state = %s", c.State())
	}
	if err := c.SyncOnce(ctx); err != nil {
		t.Fatalf("catch-up SyncOnce: %v", err)
	}
	if c.State() != Live {
		t.Errorf("state after first round = %s, want live", c.State())
	}
	if c.Cursor() != "s1" {
		t.Errorf("Cursor = %q, want s1", c.Cursor())
	}
	if len(c.Events()) != 5 {
		t.Errorf("stored %d events, want 5", len(c.Events()))
	}
	if c.Queues().Len() != 0 {
		t.Error("catch-up round created dispatch queues")
	}

	if err := c.SyncOnce(ctx); err != nil {
		t.Fatalf("live SyncOnce: %v", err)
	}
	if got := testutil.RequireReceive(t, delivered, 5*time.Second, "live dispatch"); got != "$new" {
		t.Errorf("dispatched %s, want $new", got)
	}
	testutil.RequireNoReceive(t, delivered, 50*time.Millisecond, "catch-up events must not be dispatched")

	options := session.syncOptions()
	if options[0].Since != "" || options[1].Since != "s1" {
		t.Errorf("since tokens = %q, %q; want \"\", s1", options[0].Since, options[1].Since)
	}
	if options[0].Timeout != DefaultSyncTimeout {
		t.Errorf("Timeout = %v, want default", options[0].Timeout)
	}
}

func TestLiveRoundSkipsDuplicates(t *testing.T) {
	event := timelineEvent(t, "$e1", "once")
	session := newFakeSession(
		syncStep{response: syncResponse("s1", nil)},
		syncStep{response: syncResponse("s2", map[ref.RoomID][]json.RawMessage{roomA: {event, event}})},
		syncStep{response: syncResponse("s3", map[ref.RoomID][]json.RawMessage{roomA: {event, timelineEvent(t, "$e2", "two")}})},
	)
	c := newTestClient(t, session)
	delivered := make(chan string, 16)
	c.Subscriber().Event(func(_ context.Context, event timeline.Event) error {
		delivered <- event.ID().String()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for range 3 {
		if err := c.SyncOnce(ctx); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []string{"$e1", "$e2"} {
		if got := testutil.RequireReceive(t, delivered, 5*time.Second, "dispatch %s", want); got != want {
			t.Fatalf("dispatched %s, want %s", got, want)
		}
	}
	testutil.RequireNoReceive(t, delivered, 50*time.Millisecond, "duplicate dispatched")
}

func TestLiveDispatchOutlivesRoundContext(t *testing.T) {
	session := newFakeSession(
		syncStep{response: syncResponse("s1", nil)},
		syncStep{response: syncResponse("s2", map[ref.RoomID][]json.RawMessage{roomA: {timelineEvent(t, "$a", "first")}})},
		syncStep{response: syncResponse("s3", map[ref.RoomID][]json.RawMessage{roomA: {timelineEvent(t, "$b", "second")}})},
	)
	c := newTestClient(t, session)
	delivered := make(chan string, 16)
	c.Subscriber().Event(func(_ context.Context, event timeline.Event) error {
		delivered <- event.ID().String()
		return nil
	})

	// Each round gets its own ctx, cancelled as soon as the round
	// returns; the room's consumer must keep running between rounds.
	for round := range 3 {
		roundCtx, roundCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.SyncOnce(roundCtx)
		roundCancel()
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
	for _, want := range []string{"$a", "$b"} {
		if got := testutil.RequireReceive(t, delivered, 5*time.Second, "dispatch %s", want); got != want {
			t.Fatalf("dispatched %s, want %s", got, want)
		}
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if err := c.Queues().Drain(drainCtx); err != nil {
		t.Errorf("Drain = %v", err)
	}
}

func TestRoundIngestsRoomsInIDOrder(t *testing.T) {
	session := newFakeSession(syncStep{response: syncResponse("s1", map[ref.RoomID][]json.RawMessage{
		roomB: {timelineEvent(t, "$b1", "b one"), timelineEvent(t, "$b2", "b two")},
		roomA: {timelineEvent(t, "$a1", "a one"), timelineEvent(t, "$a2", "a two")},
	})})
	c := newTestClient(t, session)
	if err := c.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, event := range c.Events() {
		ids = append(ids, event.ID().String())
	}
	want := []string{"$a1", "$a2", "$b1", "$b2"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("store order = %v, want %v", ids, want)
	}
}

func TestMalformedEventSkipped(t *testing.T) {
	malformed := marshalEvent(t, map[string]any{
		"event_id": "$bad",
		"type":     "m.room.message",
		"sender":   "@alice:example.org",
		"content":  map[string]any{"body": "no age"},
	})
	session := newFakeSession(
		syncStep{response: syncResponse("s1", map[ref.RoomID][]json.RawMessage{
			roomA: {malformed, timelineEvent(t, "$good", "fine")},
		})},
	)
	c := newTestClient(t, session)

	if err := c.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if c.Event(ref.MustParseEventID("$bad")) != nil {
		t.Error("malformed event was stored")
	}
	if c.Event(ref.MustParseEventID("$good")) == nil {
		t.Error("valid event after a malformed one was not stored")
	}
	if c.Cursor() != "s1" {
		t.Errorf("Cursor = %q", c.Cursor())
	}
}

func TestEmptyCursorKeptAndStaysLive(t *testing.T) {
	session := newFakeSession(
		syncStep{response: syncResponse("s1", nil)},
		syncStep{response: syncResponse("", nil)},
		syncStep{response: syncResponse("s3", nil)},
	)
	c := newTestClient(t, session)
	for range 3 {
		if err := c.SyncOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
		if c.State() != Live {
			t.Fatalf("state = %s, want live", c.State())
		}
	}
	options := session.syncOptions()
	if options[2].Since != "" {
		t.Errorf("round after empty cursor sent since=%q, want none", options[2].Since)
	}
	if c.Cursor() != "s3" {
		t.Errorf("Cursor = %q, want s3", c.Cursor())
	}
}

func TestSyncFailureLeavesStateUnchanged(t *testing.T) {
	failure := &messaging.MatrixError{Code: messaging.ErrCodeUnknown, Message: "boom", StatusCode: 500}
	session := newFakeSession(syncStep{err: failure})
	c := newTestClient(t, session)

	err := c.SyncOnce(context.Background())
	var matrixErr *messaging.MatrixError
	if !errors.As(err, &matrixErr) {
		t.Fatalf("error = %v, want *MatrixError", err)
	}
	if c.State() != CatchingUp || c.Cursor() != "" {
		t.Errorf("state=%s cursor=%q after failure", c.State(), c.Cursor())
	}
}

func TestRoomSnapshotsReplaced(t *testing.T) {
	nameEvent := func(name string) json.RawMessage {
		return marshalEvent(t, map[string]any{
			"type": "m.room.name", "state_key": "", "sender": "@alice:example.org",
			"content": map[string]any{"name": name},
		})
	}
	first := syncResponse("s1", nil)
	first.Rooms.Join[roomA] = messaging.JoinedRoom{State: messaging.StateSection{Events: []json.RawMessage{nameEvent("Before")}}}
	second := syncResponse("s2", nil)
	second.Rooms.Join[roomA] = messaging.JoinedRoom{State: messaging.StateSection{Events: []json.RawMessage{nameEvent("After")}}}
	second.Rooms.Join[roomB] = messaging.JoinedRoom{}

	c := newTestClient(t, newFakeSession(syncStep{response: first}, syncStep{response: second}))
	for range 2 {
		if err := c.SyncOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	room, ok := c.Room(roomA)
	if !ok || room.Name() != "After" {
		t.Errorf("room A name = %q, want After", room.Name())
	}
	if len(c.Rooms()) != 2 {
		t.Errorf("Rooms = %d, want 2", len(c.Rooms()))
	}
}

func TestRunStopsOnAuthError(t *testing.T) {
	session := newFakeSession(
		syncStep{response: syncResponse("s1", nil)},
		syncStep{err: &messaging.AuthError{Err: errors.New("token revoked")}},
	)
	c := newTestClient(t, session)

	err := c.Run(context.Background())
	if !messaging.IsAuthError(err) {
		t.Fatalf("Run = %v, want AuthError", err)
	}
}

func TestRunReturnsNilOnCancel(t *testing.T) {
	session := newFakeSession(syncStep{response: syncResponse("s1", nil)})
	c := newTestClient(t, session)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Wait for the loop to block in its second /sync.
	deadline := time.Now().Add(5 * time.Second)
	for len(session.syncOptions()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("sync loop never issued its second request")
		}
		time.Sleep(time.Millisecond) //nolint:realclock polling a goroutine under test
	}
	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Run after cancel"); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
	c.Close()
}

func TestRateLimitedSyncRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/v3/sync" {
			http.NotFound(writer, request)
			return
		}
		if calls.Add(1) == 1 {
			writer.Header().Set("Retry-After", "2")
			writer.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(writer).Encode(map[string]any{"errcode": "M_LIMIT_EXCEEDED", "error": "slow down"})
			return
		}
		json.NewEncoder(writer).Encode(map[string]any{"next_batch": "s1"})
	}))
	defer server.Close()

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	homeserver, err := messaging.NewClient(messaging.ClientConfig{HomeserverURL: server.URL, Clock: fake})
	if err != nil {
		t.Fatal(err)
	}
	session, err := homeserver.SessionFromToken(testUser, "token")
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	c, err := New(Config{Session: session, Clock: fake, Media: homeserver})
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- c.SyncOnce(context.Background()) }()

	fake.WaitForTimers(1)
	fake.Advance(2 * time.Second)
	if err := testutil.RequireReceive(t, done, 5*time.Second, "SyncOnce after rate limit"); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("requests = %d, want 2", calls.Load())
	}
	if c.Cursor() != "s1" {
		t.Errorf("Cursor = %q", c.Cursor())
	}
}

type recordingTap struct {
	entries []tap.Entry
}

func (r *recordingTap) Record(entry tap.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func TestRecorderAndReplay(t *testing.T) {
	recorder := &recordingTap{}
	session := newFakeSession(
		syncStep{response: syncResponse("s1", map[ref.RoomID][]json.RawMessage{roomA: {timelineEvent(t, "$old", "x")}})},
		syncStep{response: syncResponse("s2", map[ref.RoomID][]json.RawMessage{roomA: {timelineEvent(t, "$new", "y")}})},
	)
	c, err := New(Config{Session: session, Recorder: recorder})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for range 2 {
		if err := c.SyncOnce(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if len(recorder.entries) != 2 || recorder.entries[0].Live || !recorder.entries[1].Live {
		t.Fatalf("recorded %+v, want [catch-up, live]", recorder.entries)
	}

	replayed := newTestClient(t, newFakeSession())
	delivered := make(chan string, 4)
	replayed.Subscriber().Event(func(_ context.Context, event timeline.Event) error {
		delivered <- event.ID().String()
		return nil
	})
	entries := func(yield func(tap.Entry, error) bool) {
		for _, entry := range recorder.entries {
			if !yield(entry, nil) {
				return
			}
		}
	}
	if err := replayed.Replay(ctx, entries); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got := testutil.RequireReceive(t, delivered, 5*time.Second, "replayed live event"); got != "$new" {
		t.Errorf("replay dispatched %s, want $new", got)
	}
	if len(replayed.Events()) != 2 {
		t.Errorf("replay stored %d events, want 2", len(replayed.Events()))
	}
	if replayed.State() != CatchingUp {
		t.Error("Replay must not change the sync state")
	}
}
