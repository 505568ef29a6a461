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

// Package testing provides in-memory byte streams and fault injectors for
// exercising the framer without serial hardware.
package testing

import (
	"errors"
	"io"
	"sync"
)

// ErrStreamClosed is returned by reads and writes on a closed Stream.
var ErrStreamClosed = errors.New("stream closed")

// Stream is an unbounded, in-order byte queue. Writes never block; reads
// block until data is available or the stream is closed. It models one
// direction of a serial line.
type Stream struct {
	cond   *sync.Cond
	buf    []byte
	mu     sync.Mutex
	closed bool
}

// NewStream returns an open, empty Stream.
func NewStream() *Stream {
	s := &Stream{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Write appends data to the queue.
func (s *Stream) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStreamClosed
	}
	s.buf = append(s.buf, data...)
	s.cond.Broadcast()
	return len(data), nil
}

// ReadByte blocks until a byte is available. Bytes queued before Close are
// still delivered; after that it returns io.EOF.
func (s *Stream) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

// Read blocks until at least one byte is available and returns as many as fit.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Close wakes blocked readers. Further writes fail.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
	return nil
}

// Len returns the number of queued bytes.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// PipeEnd is one side of a full-duplex in-memory serial line.
type PipeEnd struct {
	in  *Stream
	out *Stream
}

// Pipe returns the host and stub ends of a full-duplex line. Bytes written to
// one end are read from the other.
func Pipe() (host, stub *PipeEnd) {
	a, b := NewStream(), NewStream()
	return &PipeEnd{in: a, out: b}, &PipeEnd{in: b, out: a}
}

// ReadByte reads the next inbound byte.
func (p *PipeEnd) ReadByte() (byte, error) {
	return p.in.ReadByte()
}

// Read reads inbound bytes.
func (p *PipeEnd) Read(buf []byte) (int, error) {
	return p.in.Read(buf)
}

// Write sends bytes to the other end.
func (p *PipeEnd) Write(data []byte) (int, error) {
	return p.out.Write(data)
}

// Close closes both directions.
func (p *PipeEnd) Close() error {
	_ = p.in.Close()
	return p.out.Close()
}
