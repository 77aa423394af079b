// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/bureau-foundation/roomsync/lib/secret"
)

// TokenProvider supplies the access token for each authenticated
// request. An error is reported to callers as *AuthError.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// errTokenReleased is returned after a SecretToken is closed.
var errTokenReleased = errors.New("access token released")

// SecretToken is a TokenProvider backed by protected memory.
type SecretToken struct {
	mu     sync.Mutex
	buffer *secret.Buffer
}

// NewSecretToken takes ownership of buffer.
func NewSecretToken(buffer *secret.Buffer) *SecretToken {
	return &SecretToken{buffer: buffer}
}

// Token returns a heap copy of the token for the Authorization header.
func (t *SecretToken) Token(context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.buffer == nil {
		return "", errTokenReleased
	}
	return t.buffer.String(), nil
}

// Close releases the protected memory. Idempotent.
func (t *SecretToken) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.buffer == nil {
		return nil
	}
	err := t.buffer.Close()
	t.buffer = nil
	return err
}
