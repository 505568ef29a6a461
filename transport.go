// go-pn532
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-pn532.
//
// go-pn532 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-pn532 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-pn532; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package slip

import (
	"bytes"
	"io"
	"time"

	"github.com/ZaparooProject/go-slip/internal/syncutil"
)

// Transport is a full-duplex byte stream a Link runs over.
// The UART transport and MockTransport implement it.
type Transport interface {
	// ReadByte blocks until one byte arrives or the transport fails.
	// Once Close has been called it must return an error.
	io.ByteReader

	// Write transfers the whole buffer or reports failure.
	io.Writer

	// Close closes the transport and unblocks any pending ReadByte
	Close() error

	// SetTimeout sets the read timeout for the transport (0 blocks forever)
	SetTimeout(timeout time.Duration) error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// MockTransport provides an in-memory implementation of Transport for testing.
// Bytes queued with Feed are returned by ReadByte in order; everything written
// is captured and can be inspected with Written.
type MockTransport struct {
	readErr    error
	writeErr   error
	notify     chan struct{}
	done       chan struct{}
	inbound    []byte
	written    [][]byte
	timeout    time.Duration
	mu         syncutil.Mutex
	closed     bool
	shortWrite bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// ReadByte implements io.ByteReader. It blocks until data is fed, the
// configured timeout elapses or the transport is closed.
func (m *MockTransport) ReadByte() (byte, error) {
	for {
		m.mu.Lock()
		if err := m.readErr; err != nil {
			m.readErr = nil
			m.mu.Unlock()
			return 0, err
		}
		if len(m.inbound) > 0 {
			b := m.inbound[0]
			m.inbound = m.inbound[1:]
			m.mu.Unlock()
			return b, nil
		}
		if m.closed {
			m.mu.Unlock()
			return 0, NewTransportClosedError("ReadByte", "mock")
		}
		timeout := m.timeout
		m.mu.Unlock()

		if timeout <= 0 {
			select {
			case <-m.notify:
			case <-m.done:
			}
			continue
		}

		timer := time.NewTimer(timeout)
		select {
		case <-m.notify:
			timer.Stop()
		case <-m.done:
			timer.Stop()
		case <-timer.C:
			return 0, NewTimeoutError("ReadByte", "mock")
		}
	}
}

// Write implements io.Writer
func (m *MockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, NewTransportClosedError("Write", "mock")
	}
	if err := m.writeErr; err != nil {
		m.writeErr = nil
		return 0, err
	}

	n := len(data)
	if m.shortWrite && n > 0 {
		n--
	}
	m.written = append(m.written, bytes.Clone(data[:n]))
	return n, nil
}

// Close implements Transport interface
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// SetTimeout implements Transport interface
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// IsConnected implements Transport interface
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type implements Transport interface
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Test helper methods

// Feed queues inbound bytes and wakes a blocked reader
func (m *MockTransport) Feed(data ...byte) {
	m.mu.Lock()
	m.inbound = append(m.inbound, data...)
	m.mu.Unlock()
	m.wake()
}

// FeedFrame queues the encoded frame for payload
func (m *MockTransport) FeedFrame(payload []byte) {
	m.Feed(AppendFrame(nil, payload)...)
}

// SetReadError makes the next ReadByte fail with err
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
	m.wake()
}

// SetWriteError makes the next Write fail with err
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// SetShortWrite makes every Write accept one byte less than offered
func (m *MockTransport) SetShortWrite(short bool) {
	m.mu.Lock()
	m.shortWrite = short
	m.mu.Unlock()
}

// Written returns a copy of every buffer passed to Write, in order
func (m *MockTransport) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	for i, w := range m.written {
		out[i] = bytes.Clone(w)
	}
	return out
}

// Pending returns the number of fed bytes not yet read
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inbound)
}

func (m *MockTransport) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Ensure MockTransport implements Transport
var _ Transport = (*MockTransport)(nil)
