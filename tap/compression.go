// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tap

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the stream compression of a tap file.
type Compression uint8

const (
	CompressionNone Compression = iota
	// CompressionZstd suits long captures; JSON event bodies compress
	// several times over.
	CompressionZstd
	// CompressionLZ4 trades ratio for speed on busy accounts.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// CompressionForPath picks the compression implied by path's extension.
func CompressionForPath(path string) Compression {
	switch filepath.Ext(path) {
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// nopWriteCloser flushes nothing on Close.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// compressWriter wraps w. Closing the result flushes the compressor
// but does not close w.
func compressWriter(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}

// decompressReader wraps r. The returned close function releases
// decoder resources only.
func decompressReader(r io.Reader, compression Compression) (io.Reader, func(), error) {
	switch compression {
	case CompressionNone:
		return r, func() {}, nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}
