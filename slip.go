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

// Package slip implements SLIP framing (RFC 1055) for the serial control
// channel between a host tool and a flasher stub running on a microcontroller.
//
// An Encoder wraps payloads in delimiter bytes, escaping any delimiter or
// escape byte inside them. A Decoder reads the inbound stream one byte at a
// time, returns one payload per frame and resynchronizes on the next delimiter
// after noise or a malformed frame. The two directions share no state, so an
// Encoder and a Decoder on opposite halves of a full-duplex link may run in
// separate goroutines. Link bundles both over a Transport.
package slip

import "github.com/ZaparooProject/go-slip/internal/frame"

// Wire constants.
const (
	Delimiter        byte = frame.Delimiter
	Escape           byte = frame.Escape
	EscapedDelimiter byte = frame.EscapedDelimiter
	EscapedEscape    byte = frame.EscapedEscape
)

// DefaultMaxPacketSize is the decode capacity a Link uses unless configured otherwise.
const DefaultMaxPacketSize = frame.DefaultMaxPayload
