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

// maxRetainedFrameBuffer bounds the frame buffer an Encoder keeps between calls.
const maxRetainedFrameBuffer = 64 * 1024

// EncoderStats counts what an Encoder has written to its sink.
type EncoderStats struct {
	// Frames is the number of frames fully handed to the sink.
	Frames uint64
	// Bytes is the total payload size of those frames, before escaping.
	Bytes uint64
}

// Encoder writes payloads to a byte sink as SLIP frames.
//
// Each Encode assembles the complete frame first and hands it to the sink in a
// single Write call. An Encoder reuses its frame buffer and is therefore not
// safe for concurrent use; Link serializes writers for you.
type Encoder struct {
	sink  io.Writer
	buf   []byte
	stats EncoderStats
}

// NewEncoder returns an Encoder that writes frames to sink.
func NewEncoder(sink io.Writer) *Encoder {
	return &Encoder{sink: sink}
}

// Encode writes payload as one frame. Any byte value and any length are
// accepted; the only failures come from the sink. A sink that accepts fewer
// bytes than offered without an error is reported as a short write.
func (e *Encoder) Encode(payload []byte) error {
	e.buf = frame.AppendFrame(e.buf[:0], payload)
	defer func() {
		if cap(e.buf) > maxRetainedFrameBuffer {
			e.buf = nil
		}
	}()

	n, err := e.sink.Write(e.buf)
	if err != nil {
		return wrapWriteError("encode", err)
	}
	if n != len(e.buf) {
		return NewTransportWriteError("encode", "")
	}

	e.stats.Frames++
	e.stats.Bytes += uint64(len(payload))
	traceFrame("=>", payload)
	return nil
}

// Stats returns a snapshot of the encoder counters.
func (e *Encoder) Stats() EncoderStats {
	return e.stats
}

// AppendFrame appends the encoded frame for payload to dst and returns the
// extended slice. It never fails.
func AppendFrame(dst, payload []byte) []byte {
	return frame.AppendFrame(dst, payload)
}

// EncodedLen returns the number of bytes the frame for payload occupies on the wire.
func EncodedLen(payload []byte) int {
	return frame.EncodedLen(payload)
}

// wrapWriteError classifies an error returned by a byte sink.
func wrapWriteError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, ErrTransportClosed) {
		return NewTransportError(op, "", err, ErrorTypePermanent)
	}
	return NewTransportError(op, "", fmt.Errorf("%w: %w", ErrTransportWrite, err), ErrorTypeTransient)
}
