// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrBadEscape is returned by Unescape when an Escape byte is followed by
// anything other than EscapedDelimiter or EscapedEscape.
var ErrBadEscape = errors.New("invalid escape sequence")

// ErrTruncatedEscape is returned by Unescape when a body ends with a lone Escape.
var ErrTruncatedEscape = errors.New("truncated escape sequence")

// ErrDelimiterInBody is returned by Unescape when a raw Delimiter sits inside a body.
var ErrDelimiterInBody = errors.New("delimiter inside frame body")

// EncodedLen returns the exact number of bytes AppendFrame produces for payload.
func EncodedLen(payload []byte) int {
	n := len(payload) + Overhead
	for _, b := range payload {
		if IsSpecial(b) {
			n++
		}
	}
	return n
}

// AppendFrame appends the complete frame for payload to dst: a leading
// Delimiter, the escaped payload and a trailing Delimiter.
func AppendFrame(dst, payload []byte) []byte {
	if need := EncodedLen(payload); cap(dst)-len(dst) < need {
		grown := make([]byte, len(dst), len(dst)+need)
		copy(grown, dst)
		dst = grown
	}

	dst = append(dst, Delimiter)
	for _, b := range payload {
		switch b {
		case Delimiter:
			dst = append(dst, Escape, EscapedDelimiter)
		case Escape:
			dst = append(dst, Escape, EscapedEscape)
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, Delimiter)
}

// Unescape decodes a frame body that has already been split on delimiters
// (the delimiters themselves must not be included) and appends the payload to dst.
func Unescape(dst, body []byte) ([]byte, error) {
	for i := 0; i < len(body); i++ {
		b := body[i]
		switch b {
		case Delimiter:
			return dst, fmt.Errorf("offset %d: %w", i, ErrDelimiterInBody)
		case Escape:
			i++
			if i == len(body) {
				return dst, ErrTruncatedEscape
			}
			literal, ok := UnescapeByte(body[i])
			if !ok {
				return dst, fmt.Errorf("offset %d: 0x%02X: %w", i, body[i], ErrBadEscape)
			}
			dst = append(dst, literal)
		default:
			dst = append(dst, b)
		}
	}
	return dst, nil
}

// Preview renders at most limit bytes of data as hex for trace output,
// marking the cut when data is longer.
func Preview(data []byte, limit int) string {
	if limit <= 0 || len(data) <= limit {
		return hex.EncodeToString(data)
	}
	return fmt.Sprintf("%s... (+%d)", hex.EncodeToString(data[:limit]), len(data)-limit)
}
