// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// ReadFromPath reads a secret from path, or the first line of stdin
// when path is "-". Surrounding whitespace is trimmed. An empty secret
// is an error.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return readFirstLine(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fromRaw(data)
}

func readFirstLine(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return nil, fmt.Errorf("stdin is empty")
	}
	return fromRaw(scanner.Bytes())
}

func fromRaw(data []byte) (*Buffer, error) {
	defer Zero(data)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret is empty")
	}
	return NewFromBytes(trimmed)
}
