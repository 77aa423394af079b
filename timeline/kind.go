// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

// Kind tags the Event variant. The zero value matches no event; the
// observer package uses it to mean "any kind".
type Kind uint8

const (
	KindGeneric Kind = iota + 1
	KindMessage
	KindMessageEdit
	KindRedaction
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindMessage:
		return "message"
	case KindMessageEdit:
		return "message_edit"
	case KindRedaction:
		return "redaction"
	default:
		return "any"
	}
}
