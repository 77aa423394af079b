// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

// Message types for m.room.message content.
const (
	MsgTypeText     = "m.text"
	MsgTypeNotice   = "m.notice"
	MsgTypeEmote    = "m.emote"
	MsgTypeImage    = "m.image"
	MsgTypeFile     = "m.file"
	MsgTypeAudio    = "m.audio"
	MsgTypeVideo    = "m.video"
	MsgTypeLocation = "m.location"
)

// FormatHTML is the only format defined for formatted_body.
const FormatHTML = "org.matrix.custom.html"

// MessageContent is the content of an outbound m.room.message.
type MessageContent struct {
	MsgType       string     `json:"msgtype"`
	Body          string     `json:"body"`
	Format        string     `json:"format,omitempty"`
	FormattedBody string     `json:"formatted_body,omitempty"`
	RelatesTo     *RelatesTo `json:"m.relates_to,omitempty"`
}

// RelatesTo expresses a relation to another event.
type RelatesTo struct {
	RelType   string      `json:"rel_type,omitempty"`
	EventID   ref.EventID `json:"event_id,omitzero"`
	InReplyTo *InReplyTo  `json:"m.in_reply_to,omitempty"`
}

// InReplyTo references the event a message replies to.
type InReplyTo struct {
	EventID ref.EventID `json:"event_id"`
}

// NewTextMessage creates a plain m.text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{MsgType: MsgTypeText, Body: body}
}

// NewReply creates an m.text message replying to target.
func NewReply(target ref.EventID, body string) MessageContent {
	content := NewTextMessage(body)
	content.RelatesTo = &RelatesTo{InReplyTo: &InReplyTo{EventID: target}}
	return content
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// NewMarkdownMessage creates an m.text message whose body is the
// markdown source and whose formatted_body is its HTML rendering.
func NewMarkdownMessage(source string) (MessageContent, error) {
	var rendered bytes.Buffer
	if err := markdown.Convert([]byte(source), &rendered); err != nil {
		return MessageContent{}, fmt.Errorf("messaging: rendering markdown: %w", err)
	}
	return MessageContent{
		MsgType:       MsgTypeText,
		Body:          source,
		Format:        FormatHTML,
		FormattedBody: string(bytes.TrimSpace(rendered.Bytes())),
	}, nil
}
