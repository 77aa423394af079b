// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxResponseSize bounds JSON API response reads: 256 MB. A full
// initial /sync for a large account is still far below this.
const MaxResponseSize int64 = 256 << 20

// MaxMediaSize bounds media downloads held in memory: 100 MB, the
// default upload limit of common homeservers.
const MaxMediaSize int64 = 100 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize
// bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ReadMedia reads a media download body up to MaxMediaSize bytes. A
// body that exceeds the bound is an error rather than a silent
// truncation.
func ReadMedia(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxMediaSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxMediaSize {
		return nil, fmt.Errorf("media exceeds %d bytes", MaxMediaSize)
	}
	return data, nil
}

// DecodeResponse reads a bounded JSON body and decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an error response body for diagnostics. Read errors
// are ignored.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}

// ParseRetryAfter interprets a Retry-After header value, either
// delay-seconds or an HTTP-date relative to now. The second result is
// false when the header is absent or unparseable. Dates in the past
// yield zero.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	return max(when.Sub(now), 0), true
}
