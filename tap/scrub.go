// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tap

import (
	"encoding/json"
	"slices"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ScrubbedBody replaces every scrubbed text field.
const ScrubbedBody = "[scrubbed]"

// scrubPaths are the content fields that carry user-written text.
var scrubPaths = []string{
	"content.body",
	"content.formatted_body",
	`content.m\.new_content.body`,
	`content.m\.new_content.formatted_body`,
	"content.reason",
}

// Scrub returns a copy of raw with message text replaced by
// ScrubbedBody. Structure, IDs and relations are kept so a scrubbed
// tap still replays edits and redactions.
func Scrub(raw json.RawMessage) (json.RawMessage, error) {
	scrubbed := slices.Clone([]byte(raw))
	for _, path := range scrubPaths {
		if !gjson.GetBytes(scrubbed, path).Exists() {
			continue
		}
		var err error
		scrubbed, err = sjson.SetBytes(scrubbed, path, ScrubbedBody)
		if err != nil {
			return nil, err
		}
	}
	return scrubbed, nil
}
