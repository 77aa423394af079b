// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/roomsync/lib/codec"
	"github.com/bureau-foundation/roomsync/lib/ref"
)

// Entry is one recorded event.
type Entry struct {
	RoomID ref.RoomID `cbor:"room_id"`
	// Event is the timeline record exactly as delivered (after Scrub,
	// when enabled).
	Event json.RawMessage `cbor:"event"`
	// Live is true when the event was dispatched to handlers, false
	// when it arrived during catch-up.
	Live       bool      `cbor:"live"`
	ReceivedAt time.Time `cbor:"received_at"`
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	Compression Compression
	// Scrub replaces message bodies before encoding.
	Scrub bool
}

// Writer appends entries to a tap stream. It is safe for concurrent
// use.
type Writer struct {
	mu         sync.Mutex
	compressor io.WriteCloser
	encoder    *codec.Encoder
	file       *os.File
	scrub      bool
}

// NewWriter writes a tap stream to w. Close flushes compression but
// leaves w open.
func NewWriter(w io.Writer, options WriterOptions) (*Writer, error) {
	compressor, err := compressWriter(w, options.Compression)
	if err != nil {
		return nil, fmt.Errorf("tap: %w", err)
	}
	return &Writer{
		compressor: compressor,
		encoder:    codec.NewEncoder(compressor),
		scrub:      options.Scrub,
	}, nil
}

// Create truncates path and writes a tap stream to it, compressed
// according to the file extension.
func Create(path string, scrub bool) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("tap: creating %s: %w", path, err)
	}
	writer, err := NewWriter(file, WriterOptions{
		Compression: CompressionForPath(path),
		Scrub:       scrub,
	})
	if err != nil {
		file.Close()
		return nil, err
	}
	writer.file = file
	return writer, nil
}

// Record appends one entry.
func (w *Writer) Record(entry Entry) error {
	if w.scrub {
		scrubbed, err := Scrub(entry.Event)
		if err != nil {
			return fmt.Errorf("tap: scrubbing event: %w", err)
		}
		entry.Event = scrubbed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.encoder == nil {
		return errors.New("tap: writer is closed")
	}
	if err := w.encoder.Encode(entry); err != nil {
		return fmt.Errorf("tap: encoding entry: %w", err)
	}
	return nil
}

// Close flushes the stream and closes the file opened by Create.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.encoder == nil {
		return nil
	}
	w.encoder = nil
	err := w.compressor.Close()
	if w.file != nil {
		err = errors.Join(err, w.file.Close())
	}
	if err != nil {
		return fmt.Errorf("tap: closing: %w", err)
	}
	return nil
}

// Reader decodes entries from a tap stream.
type Reader struct {
	decoder *codec.Decoder
	release func()
	file    *os.File
}

// NewReader reads a tap stream from r.
func NewReader(r io.Reader, compression Compression) (*Reader, error) {
	decompressed, release, err := decompressReader(r, compression)
	if err != nil {
		return nil, fmt.Errorf("tap: %w", err)
	}
	return &Reader{decoder: codec.NewDecoder(decompressed), release: release}, nil
}

// Open reads the tap file at path, decompressing according to the
// file extension.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tap: opening %s: %w", path, err)
	}
	reader, err := NewReader(file, CompressionForPath(path))
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.file = file
	return reader, nil
}

// Next decodes the next entry. It returns io.EOF after the last one.
func (r *Reader) Next() (Entry, error) {
	var entry Entry
	if err := r.decoder.Decode(&entry); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("tap: decoding entry: %w", err)
	}
	return entry, nil
}

// All iterates the remaining entries. Iteration stops after the first
// decode error, which is yielded.
func (r *Reader) All() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for {
			entry, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(entry, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the decoder and closes the file opened by Open.
func (r *Reader) Close() error {
	r.release()
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
