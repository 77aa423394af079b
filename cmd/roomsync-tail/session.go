// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/roomsync/lib/config"
	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/lib/secret"
	"github.com/bureau-foundation/roomsync/messaging"
)

// openSession authenticates with an access token file when one is
// configured, and by password login otherwise.
func openSession(ctx context.Context, homeserver *messaging.Client, cfg *config.Config) (*messaging.DirectSession, error) {
	var userID ref.UserID
	if cfg.UserID != "" {
		parsed, err := ref.ParseUserID(cfg.UserID)
		if err != nil {
			return nil, fmt.Errorf("user_id: %w", err)
		}
		userID = parsed
	}

	if cfg.AccessTokenFile != "" {
		token, err := secret.ReadFromPath(cfg.AccessTokenFile)
		if err != nil {
			return nil, fmt.Errorf("reading access token: %w", err)
		}
		provider := messaging.NewSecretToken(token)
		if userID.IsZero() {
			whoami, err := homeserver.Session(userID, provider).WhoAmI(ctx)
			if err != nil {
				provider.Close()
				return nil, fmt.Errorf("resolving account: %w", err)
			}
			userID = whoami.UserID
		}
		return homeserver.Session(userID, provider), nil
	}

	password, err := readPassword(cfg.PasswordFile)
	if err != nil {
		return nil, err
	}
	defer password.Close()
	return homeserver.Login(ctx, userID, password)
}

// readPassword reads password_file, prompting on the terminal when it
// is "-" and stdin is a terminal.
func readPassword(path string) (*secret.Buffer, error) {
	stdin := int(os.Stdin.Fd())
	if path != "-" || !term.IsTerminal(stdin) {
		buffer, err := secret.ReadFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return buffer, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return nil, errors.New("empty password")
	}
	buffer, err := secret.NewFromBytes(passwordBytes)
	secret.Zero(passwordBytes)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
