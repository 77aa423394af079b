// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

const contentURIScheme = "mxc://"

// ContentURI is a validated Matrix media reference of the form
// "mxc://<server-name>/<media-id>". Attachments, avatars, and
// thumbnails all point into the media repository this way; the
// homeserver's download endpoint is addressed by the two components.
type ContentURI struct {
	server  string
	mediaID string
}

// ParseContentURI validates and splits an mxc:// URI.
func ParseContentURI(raw string) (ContentURI, error) {
	if !strings.HasPrefix(raw, contentURIScheme) {
		return ContentURI{}, fmt.Errorf("content URI must start with %q: %q", contentURIScheme, raw)
	}
	rest := raw[len(contentURIScheme):]
	server, mediaID, found := strings.Cut(rest, "/")
	if !found || server == "" || mediaID == "" {
		return ContentURI{}, fmt.Errorf("content URI must be mxc://server/media-id: %q", raw)
	}
	if strings.Contains(mediaID, "/") {
		return ContentURI{}, fmt.Errorf("content URI media ID contains '/': %q", raw)
	}
	return ContentURI{server: server, mediaID: mediaID}, nil
}

// Server returns the origin server name.
func (c ContentURI) Server() string { return c.server }

// MediaID returns the opaque media identifier.
func (c ContentURI) MediaID() string { return c.mediaID }

// IsZero reports whether the ContentURI is unset.
func (c ContentURI) IsZero() bool { return c.server == "" }

// String returns the mxc:// form, or "" for the zero value.
func (c ContentURI) String() string {
	if c.IsZero() {
		return ""
	}
	return contentURIScheme + c.server + "/" + c.mediaID
}
