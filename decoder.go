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

package slip

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-slip/internal/frame"
)

const opDecode = "decode"

// DecoderStats counts what a Decoder has seen on its byte source.
type DecoderStats struct {
	// Frames is the number of frames returned successfully, empty ones included.
	Frames uint64
	// Bytes is the total decoded payload size of those frames.
	Bytes uint64
	// NoiseBytes were discarded while seeking a start delimiter.
	NoiseBytes uint64
	// DiscardedBytes were dropped while resynchronizing after a bad frame.
	DiscardedBytes uint64
	// InvalidEscapes counts frames aborted on an unknown escape successor.
	InvalidEscapes uint64
	// Oversized counts frames that did not fit the caller's buffer.
	Oversized uint64
}

// Decoder reads SLIP frames from a blocking byte source.
//
// Decoding is a small state machine: seek a start delimiter, copy bytes until
// the closing delimiter, translate two-byte escape sequences, and after a bad
// frame discard everything through the next delimiter. Each call reads one
// byte at a time in arrival order and blocks for as long as the source does;
// any timeout policy belongs to the source. A Decoder must not be used from
// more than one goroutine at a time.
type Decoder struct {
	src   io.ByteReader
	stats DecoderStats
}

// NewDecoder returns a Decoder reading from src.
func NewDecoder(src io.ByteReader) *Decoder {
	return &Decoder{src: src}
}

// Decode returns the payload of the next frame, which must fit in maxLen bytes.
//
// Errors:
//   - *FrameError wrapping ErrInvalidEscape: the frame was discarded and the
//     stream resynchronized; call Decode again.
//   - *FrameError wrapping ErrFrameTooLarge: the frame was longer than maxLen;
//     its remainder has been consumed.
//   - *TransportError: the byte source failed. The decoder does not retry.
func (d *Decoder) Decode(maxLen int) ([]byte, error) {
	if maxLen < 0 {
		return nil, fmt.Errorf("%s: max length %d: %w", opDecode, maxLen, ErrInvalidParameter)
	}
	return d.decode(nil, maxLen)
}

// DecodeInto decodes the next frame into buf, using len(buf) as the capacity,
// and returns the payload length. Nothing is written past len(buf). On error
// the returned length is zero and the contents of buf are unspecified.
func (d *Decoder) DecodeInto(buf []byte) (int, error) {
	out, err := d.decode(buf[:0], len(buf))
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

// Stats returns a snapshot of the decoder counters.
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

func (d *Decoder) decode(dst []byte, limit int) ([]byte, error) {
	if err := d.seekStart(); err != nil {
		return nil, err
	}

	for {
		b, err := d.src.ReadByte()
		if err != nil {
			return nil, wrapReadError(opDecode, err)
		}

		switch b {
		case frame.Delimiter:
			if dst == nil {
				dst = []byte{}
			}
			d.stats.Frames++
			d.stats.Bytes += uint64(len(dst))
			traceFrame("<=", dst)
			return dst, nil

		case frame.Escape:
			next, err := d.src.ReadByte()
			if err != nil {
				return nil, wrapReadError(opDecode, err)
			}
			literal, ok := frame.UnescapeByte(next)
			if !ok {
				return nil, d.abortInvalidEscape(next)
			}
			b = literal
		}

		if len(dst) == limit {
			d.stats.Oversized++
			Debugf("slip: frame exceeds %d bytes, discarding remainder", limit)
			if err := d.skipToDelimiter(); err != nil {
				return nil, err
			}
			return nil, NewFrameTooLargeError(opDecode, limit)
		}
		dst = append(dst, b)
	}
}

// abortInvalidEscape discards the current frame after a bad escape successor
// by scanning through the next delimiter. The successor itself is never taken
// as that delimiter, even when it is 0xC0.
func (d *Decoder) abortInvalidEscape(next byte) error {
	d.stats.InvalidEscapes++
	Debugf("slip: invalid escape successor 0x%02X, resynchronizing", next)
	if err := d.skipToDelimiter(); err != nil {
		return err
	}
	return NewInvalidEscapeError(opDecode, next)
}

// seekStart discards bytes until a delimiter has been consumed.
func (d *Decoder) seekStart() error {
	var noise uint64
	defer func() {
		if noise > 0 {
			d.stats.NoiseBytes += noise
			Debugf("slip: skipped %d bytes before frame start", noise)
		}
	}()

	for {
		b, err := d.src.ReadByte()
		if err != nil {
			return wrapReadError(opDecode, err)
		}
		if b == frame.Delimiter {
			return nil
		}
		noise++
	}
}

// skipToDelimiter discards bytes through the next delimiter.
func (d *Decoder) skipToDelimiter() error {
	for {
		b, err := d.src.ReadByte()
		if err != nil {
			return wrapReadError(opDecode, err)
		}
		if b == frame.Delimiter {
			return nil
		}
		d.stats.DiscardedBytes++
	}
}

// Unescape decodes a frame body that was already split on delimiters and
// appends the payload to dst. A raw delimiter in body is ErrInvalidParameter;
// a bad or truncated escape sequence is ErrInvalidEscape.
func Unescape(dst, body []byte) ([]byte, error) {
	out, err := frame.Unescape(dst, body)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, frame.ErrDelimiterInBody):
		return dst, fmt.Errorf("unescape: %w: %w", ErrInvalidParameter, err)
	default:
		return dst, fmt.Errorf("unescape: %w: %w", ErrInvalidEscape, err)
	}
}
