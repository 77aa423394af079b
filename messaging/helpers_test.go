// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bureau-foundation/roomsync/lib/clock"
	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/lib/secret"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestSession creates a Client and DirectSession pointing at a test
// server, with a fake clock for rate-limit waits.
func newTestSession(t *testing.T, handler http.Handler) (*DirectSession, *clock.FakeClock) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fake := clock.Fake(testEpoch)
	client, err := NewClient(ClientConfig{HomeserverURL: server.URL, Clock: fake})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.SessionFromToken(ref.MustParseUserID("@test:local"), "test-token")
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session, fake
}

// testBuffer creates a secret.Buffer closed when the test completes.
func testBuffer(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("creating test buffer: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func assertAuth(t *testing.T, request *http.Request, expectedToken string) {
	t.Helper()
	auth := request.Header.Get("Authorization")
	expected := "Bearer " + expectedToken
	if auth != expected {
		t.Errorf("unexpected auth header: got %q, want %q", auth, expected)
	}
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func writeError(writer http.ResponseWriter, status int, code, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(map[string]string{"errcode": code, "error": message})
}
