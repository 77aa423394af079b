// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"slices"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/roomsync/lib/ref"
)

// MessageType is the msgtype of an m.room.message.
type MessageType string

const (
	MessageTypeText     MessageType = "m.text"
	MessageTypeNotice   MessageType = "m.notice"
	MessageTypeEmote    MessageType = "m.emote"
	MessageTypeImage    MessageType = "m.image"
	MessageTypeFile     MessageType = "m.file"
	MessageTypeAudio    MessageType = "m.audio"
	MessageTypeVideo    MessageType = "m.video"
	MessageTypeLocation MessageType = "m.location"
	MessageTypeUnknown  MessageType = ""
)

// IsText reports whether t carries a human-readable body.
func (t MessageType) IsText() bool {
	return t == MessageTypeText || t == MessageTypeNotice || t == MessageTypeEmote
}

// IsAttachment reports whether t refers to uploaded media.
func (t MessageType) IsAttachment() bool {
	switch t {
	case MessageTypeImage, MessageTypeFile, MessageTypeAudio, MessageTypeVideo:
		return true
	}
	return false
}

func parseMessageType(raw string) MessageType {
	switch t := MessageType(raw); t {
	case MessageTypeText, MessageTypeNotice, MessageTypeEmote,
		MessageTypeImage, MessageTypeFile, MessageTypeAudio,
		MessageTypeVideo, MessageTypeLocation:
		return t
	}
	return MessageTypeUnknown
}

// MessageEvent is an m.room.message that is not an edit.
type MessageEvent struct {
	eventHeader

	mu    sync.RWMutex
	edits []*MessageEditEvent
}

func (e *MessageEvent) Kind() Kind { return KindMessage }

// MsgType returns the message type, MessageTypeUnknown for types
// outside the standard set.
func (e *MessageEvent) MsgType() MessageType {
	return parseMessageType(e.contentField("msgtype").String())
}

// Body returns the readable body of a text-like message. For m.text
// replies the quoted reply fallback is removed. The second result is
// false for media and location messages.
func (e *MessageEvent) Body() (string, bool) {
	msgType := e.MsgType()
	if !msgType.IsText() {
		return "", false
	}
	body := e.contentField("body").String()
	if msgType == MessageTypeText && !e.ReplyToID().IsZero() {
		body = stripReplyFallback(body)
	}
	return body, true
}

// FormattedBody returns the HTML formatted_body, or "".
func (e *MessageEvent) FormattedBody() string {
	if e.contentField("format").String() != "org.matrix.custom.html" {
		return ""
	}
	return e.contentField("formatted_body").String()
}

// ReplyToID is the m.in_reply_to target, zero when the message is not
// a reply.
func (e *MessageEvent) ReplyToID() ref.EventID {
	id, err := ref.ParseEventID(e.contentField(`m\.relates_to.m\.in_reply_to.event_id`).String())
	if err != nil {
		return ref.EventID{}
	}
	return id
}

// ReplyTo resolves ReplyToID through the Store. It returns nil when the
// message is not a reply or the target was never ingested.
func (e *MessageEvent) ReplyTo() Event {
	id := e.ReplyToID()
	if id.IsZero() || e.resolver == nil {
		return nil
	}
	return e.resolver.Event(id)
}

// Attachment returns the media reference of an image, file, audio or
// video message.
func (e *MessageEvent) Attachment() (*Attachment, bool) {
	if !e.MsgType().IsAttachment() {
		return nil, false
	}
	return newAttachment(e.content), true
}

// GeoURI returns the geo: URI of a location message.
func (e *MessageEvent) GeoURI() (string, bool) {
	if e.MsgType() != MessageTypeLocation {
		return "", false
	}
	if uri := e.contentField("geo_uri"); uri.Exists() {
		return uri.String(), true
	}
	return e.contentField("body").String(), true
}

// Edits returns a copy of the edits received so far, oldest first. The
// list only grows.
func (e *MessageEvent) Edits() []*MessageEditEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.edits)
}

// Edited reports whether any edit has been linked.
func (e *MessageEvent) Edited() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.edits) > 0
}

// FutureBody is the body after the latest edit received so far, or
// Body when unedited. The value may change while a handler runs, as
// later edits arrive. The second result is false when the effective
// content is not text.
func (e *MessageEvent) FutureBody() (string, bool) {
	e.mu.RLock()
	var latest *MessageEditEvent
	if len(e.edits) > 0 {
		latest = e.edits[len(e.edits)-1]
	}
	e.mu.RUnlock()

	if latest == nil {
		return e.Body()
	}
	body, err := latest.Body()
	if err != nil {
		return "", false
	}
	return body, true
}

func (e *MessageEvent) appendEdit(edit *MessageEditEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.edits = append(e.edits, edit)
}

// stripReplyFallback removes the leading "> " quote block and the blank
// line after it that clients prepend to reply bodies.
func stripReplyFallback(body string) string {
	if !strings.HasPrefix(body, "> ") {
		return body
	}
	rest := body
	for strings.HasPrefix(rest, ">") {
		_, after, found := strings.Cut(rest, "\n")
		if !found {
			return ""
		}
		rest = after
	}
	return strings.TrimPrefix(rest, "\n")
}

// Attachment is the media reference of an attachment message.
type Attachment struct {
	URL          ref.ContentURI
	Filename     string
	MimeType     string
	Size         int64
	ThumbnailURL ref.ContentURI
}

func newAttachment(content []byte) *Attachment {
	parsed := gjson.ParseBytes(content)
	attachment := &Attachment{
		Filename: parsed.Get("body").String(),
		MimeType: parsed.Get("info.mimetype").String(),
		Size:     parsed.Get("info.size").Int(),
	}
	attachment.URL, _ = ref.ParseContentURI(parsed.Get("url").String())
	attachment.ThumbnailURL, _ = ref.ParseContentURI(parsed.Get("info.thumbnail_url").String())
	return attachment
}
