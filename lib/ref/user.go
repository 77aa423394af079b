// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// UserID is a validated Matrix user ID (e.g., "@alice:example.org").
//
// A Matrix user ID always starts with '@' and contains a ':'
// separating the localpart from the server name. Only the structural
// format is validated; localpart character rules are left to the
// homeserver.
//
// UserID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type UserID struct {
	id string
}

// ParseUserID validates and wraps a raw Matrix user ID string.
// Returns an error if the string is empty, doesn't start with '@',
// has an empty localpart, or is missing the ':server' suffix.
func ParseUserID(raw string) (UserID, error) {
	if _, _, err := parseMatrixID(raw); err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

// MustParseUserID is like ParseUserID but panics on error.
func MustParseUserID(raw string) UserID {
	u, err := ParseUserID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseUserID(%q): %v", raw, err))
	}
	return u
}

// String returns the full user ID string (e.g., "@alice:example.org").
func (u UserID) String() string { return u.id }

// IsZero reports whether the UserID is the zero value (uninitialized).
func (u UserID) IsZero() bool { return u.id == "" }

// Localpart returns the portion between '@' and ':'. Returns "" for the
// zero value.
func (u UserID) Localpart() string {
	localpart, _, _ := parseMatrixID(u.id)
	return localpart
}

// Server returns the portion after the first ':'. Returns "" for the
// zero value.
func (u UserID) Server() string {
	_, server, _ := parseMatrixID(u.id)
	return server
}

// MarshalText implements encoding.TextMarshaler.
func (u UserID) MarshalText() ([]byte, error) {
	return []byte(u.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value (unset user ID).
func (u *UserID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// parseMatrixID extracts localpart and server from @localpart:server.
func parseMatrixID(matrixID string) (localpart, server string, err error) {
	if len(matrixID) < 2 || matrixID[0] != '@' {
		return "", "", fmt.Errorf("invalid Matrix user ID %q: must start with @", matrixID)
	}
	colonIndex := strings.IndexByte(matrixID[1:], ':')
	if colonIndex < 0 {
		return "", "", fmt.Errorf("invalid Matrix user ID %q: missing :server", matrixID)
	}
	if colonIndex == 0 {
		return "", "", fmt.Errorf("invalid Matrix user ID %q: empty localpart", matrixID)
	}
	localpart = matrixID[1 : 1+colonIndex]
	server = matrixID[1+colonIndex+1:]
	if server == "" {
		return "", "", fmt.Errorf("invalid Matrix user ID %q: empty server", matrixID)
	}
	return localpart, server, nil
}
