// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bureau-foundation/roomsync/lib/config"
	"github.com/bureau-foundation/roomsync/messaging"
)

func TestOpenSessionResolvesUserFromToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_matrix/client/v3/account/whoami" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer syt_secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errcode":"M_UNKNOWN_TOKEN","error":"bad token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id":"@bob:example.org","device_id":"DEV"}`))
	}))
	defer server.Close()

	homeserver, err := messaging.NewClient(messaging.ClientConfig{HomeserverURL: server.URL, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Homeserver = server.URL
	cfg.AccessTokenFile = writeFile(t, "token", "syt_secret\n")

	session, err := openSession(context.Background(), homeserver, cfg)
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer session.Close()
	if got := session.UserID().String(); got != "@bob:example.org" {
		t.Errorf("UserID = %q, want @bob:example.org", got)
	}
}

func TestOpenSessionRejectsBadToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errcode":"M_UNKNOWN_TOKEN","error":"bad token"}`))
	}))
	defer server.Close()

	homeserver, err := messaging.NewClient(messaging.ClientConfig{HomeserverURL: server.URL, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.AccessTokenFile = writeFile(t, "token", "syt_wrong\n")

	_, err = openSession(context.Background(), homeserver, cfg)
	if !messaging.IsAuthError(err) {
		t.Fatalf("openSession error = %v, want an auth error", err)
	}
}

func TestOpenSessionSkipsWhoAmIWithUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	homeserver, err := messaging.NewClient(messaging.ClientConfig{HomeserverURL: server.URL, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.UserID = "@carol:example.org"
	cfg.AccessTokenFile = writeFile(t, "token", "syt_secret\n")

	session, err := openSession(context.Background(), homeserver, cfg)
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	defer session.Close()
	if got := session.UserID().String(); got != "@carol:example.org" {
		t.Errorf("UserID = %q, want @carol:example.org", got)
	}
}
