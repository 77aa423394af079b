// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"errors"
	"fmt"
)

// MalformedEventError is a timeline record missing a required field or
// carrying an invalid one. The record is skipped; the Store is
// untouched.
type MalformedEventError struct {
	// EventID is the raw event_id when one could be read.
	EventID string
	// Field names the offending field as a dotted path.
	Field string
	Err   error
}

func (e *MalformedEventError) Error() string {
	id := e.EventID
	if id == "" {
		id = "(unknown)"
	}
	if e.Err == nil {
		return fmt.Sprintf("timeline: malformed event %s: field %s", id, e.Field)
	}
	return fmt.Sprintf("timeline: malformed event %s: field %s: %v", id, e.Field, e.Err)
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// ErrNotText is returned by MessageEditEvent.Body when the replacement
// content is not a text-like message.
var ErrNotText = errors.New("timeline: replacement content is not a text message")

var (
	errMissing    = errors.New("missing")
	errNotString  = errors.New("not a string")
	errNotNumber  = errors.New("not a number")
	errNotObject  = errors.New("not an object")
	errInvalidRaw = errors.New("not a JSON object")
)
