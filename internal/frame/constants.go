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

// Package frame holds the byte-level SLIP framing rules (RFC 1055) shared by the
// encoder, the decoder and the tooling.
package frame

// Frame markers and control bytes
const (
	Delimiter        = 0xC0 // Marks both the start and the end of a frame
	Escape           = 0xDB // Introduces a two-byte escape sequence
	EscapedDelimiter = 0xDC // Follows Escape to stand for a literal Delimiter
	EscapedEscape    = 0xDD // Follows Escape to stand for a literal Escape
)

// Frame size limits
const (
	// Overhead is the number of delimiter bytes wrapped around every payload.
	Overhead = 2
	// DefaultMaxPayload matches the stub's receive buffer size.
	DefaultMaxPayload = 4096
	// PreviewLimit bounds the number of payload bytes rendered in trace lines.
	PreviewLimit = 32
)

// IsSpecial reports whether b must be escaped inside a frame body.
func IsSpecial(b byte) bool {
	return b == Delimiter || b == Escape
}

// UnescapeByte maps the byte following an Escape back to its literal value.
// ok is false for anything other than the two recognized markers.
func UnescapeByte(b byte) (literal byte, ok bool) {
	switch b {
	case EscapedDelimiter:
		return Delimiter, true
	case EscapedEscape:
		return Escape, true
	default:
		return 0, false
	}
}
