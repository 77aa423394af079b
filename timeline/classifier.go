// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/roomsync/lib/metrics"
	"github.com/bureau-foundation/roomsync/lib/ref"
)

const relTypeReplace = "m.replace"

// ClassifierConfig holds optional dependencies of a Classifier.
type ClassifierConfig struct {
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Metrics receives ingestion counts. May be nil.
	Metrics *metrics.Metrics
}

// Classifier validates raw timeline records and ingests them into a
// Store. It is not safe for concurrent Ingest calls; the sync loop is
// the single writer.
type Classifier struct {
	store   *Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClassifier creates a Classifier writing to store.
func NewClassifier(store *Store, config ClassifierConfig) *Classifier {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{store: store, logger: logger, metrics: config.Metrics}
}

// Store returns the Store this Classifier writes to.
func (c *Classifier) Store() *Store {
	return c.store
}

// Ingest classifies one raw record delivered for roomID, stores it and
// links it to its edit or redaction target.
//
// It returns (event, true, nil) for a new event and (nil, false, nil)
// for an event ID that is already stored. A record missing a required
// field yields a *MalformedEventError and leaves the Store untouched.
func (c *Classifier) Ingest(roomID ref.RoomID, raw json.RawMessage) (Event, bool, error) {
	header, err := parseHeader(roomID, raw)
	if err != nil {
		c.metrics.EventMalformed()
		return nil, false, err
	}
	header.resolver = c.store

	event := classify(header)
	if !c.store.insert(event) {
		c.metrics.EventDuplicate()
		c.logger.Debug("dropping duplicate event",
			"room_id", roomID,
			"event_id", header.id,
		)
		return nil, false, nil
	}
	c.link(event)
	c.metrics.EventIngested(event.Kind().String())
	return event, true, nil
}

// link resolves the edit or redaction target of a newly stored event.
// Missing targets stay unresolved.
func (c *Classifier) link(event Event) {
	switch typed := event.(type) {
	case *MessageEditEvent:
		if original := typed.Original(); original != nil {
			original.appendEdit(typed)
		}
	case *RedactionEvent:
		target := typed.Redacts()
		if target == nil {
			return
		}
		if !target.header().markRedacted(typed) {
			c.logger.Debug("event already redacted; keeping first redaction",
				"room_id", typed.Room(),
				"event_id", target.ID(),
				"redaction_id", typed.ID(),
			)
		}
	}
}

func classify(header *eventHeader) Event {
	switch header.eventType {
	case ref.EventTypeMessage:
		relates := header.contentField(`m\.relates_to`)
		if relates.Get("rel_type").String() == relTypeReplace {
			target, _ := ref.ParseEventID(relates.Get("event_id").String())
			return &MessageEditEvent{eventHeader: *header, targetID: target}
		}
		return &MessageEvent{eventHeader: *header}
	case ref.EventTypeRedaction:
		redacts := header.contentField("redacts")
		if !redacts.Exists() {
			redacts = gjson.GetBytes(header.raw, "redacts")
		}
		target, _ := ref.ParseEventID(redacts.String())
		return &RedactionEvent{eventHeader: *header, redactsID: target}
	default:
		return &GenericEvent{eventHeader: *header}
	}
}

// parseHeader checks the required fields: event_id, type, sender,
// unsigned.age and content.
func parseHeader(roomID ref.RoomID, raw json.RawMessage) (*eventHeader, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &MalformedEventError{Field: "event", Err: errInvalidRaw}
	}
	record := gjson.ParseBytes(raw)
	if !record.IsObject() {
		return nil, &MalformedEventError{Field: "event", Err: errInvalidRaw}
	}

	rawID := record.Get("event_id")
	if err := requireString(rawID); err != nil {
		return nil, &MalformedEventError{Field: "event_id", Err: err}
	}
	eventID, err := ref.ParseEventID(rawID.String())
	if err != nil {
		return nil, &MalformedEventError{EventID: rawID.String(), Field: "event_id", Err: err}
	}
	malformed := func(field string, err error) error {
		return &MalformedEventError{EventID: eventID.String(), Field: field, Err: err}
	}

	eventType := record.Get("type")
	if err := requireString(eventType); err != nil {
		return nil, malformed("type", err)
	}
	if eventType.String() == "" {
		return nil, malformed("type", errMissing)
	}

	rawSender := record.Get("sender")
	if err := requireString(rawSender); err != nil {
		return nil, malformed("sender", err)
	}
	sender, err := ref.ParseUserID(rawSender.String())
	if err != nil {
		return nil, malformed("sender", err)
	}

	age := record.Get("unsigned.age")
	if !age.Exists() {
		return nil, malformed("unsigned.age", errMissing)
	}
	if age.Type != gjson.Number {
		return nil, malformed("unsigned.age", errNotNumber)
	}

	content := record.Get("content")
	if !content.Exists() {
		return nil, malformed("content", errMissing)
	}
	if !content.IsObject() {
		return nil, malformed("content", errNotObject)
	}

	header := &eventHeader{
		id:         eventID,
		eventType:  ref.EventType(eventType.String()),
		room:       roomID,
		sender:     sender,
		age:        time.Duration(age.Int()) * time.Millisecond,
		raw:        raw,
		content:    json.RawMessage(content.Raw),
		redactedBy: new(atomic.Pointer[RedactionEvent]),
	}
	if ts := record.Get("origin_server_ts"); ts.Type == gjson.Number {
		header.originTS = time.UnixMilli(ts.Int()).UTC()
	}
	return header, nil
}

func requireString(result gjson.Result) error {
	if !result.Exists() {
		return errMissing
	}
	if result.Type != gjson.String {
		return errNotString
	}
	return nil
}
