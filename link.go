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
	"context"
	"fmt"

	"github.com/ZaparooProject/go-slip/internal/syncutil"
)

// Stats is a snapshot of both directions of a Link.
type Stats struct {
	Sent     EncoderStats
	Received DecoderStats
}

// LinkOption configures a Link
type LinkOption func(*Link)

// WithMaxPacketSize sets the largest payload ReadPacket accepts.
// Larger frames are discarded and reported as ErrFrameTooLarge.
func WithMaxPacketSize(size int) LinkOption {
	return func(l *Link) {
		if size >= 0 {
			l.maxPacket = size
		}
	}
}

// WithRetryConfig sets the retry policy used by ReadPacketRetry.
func WithRetryConfig(config *RetryConfig) LinkOption {
	return func(l *Link) {
		if config != nil {
			l.retry = config
		}
	}
}

// Link carries SLIP frames in both directions over one Transport.
//
// Reads and writes are serialized independently: one goroutine may block in
// ReadPacket while another calls WritePacket. Link also implements
// io.ReadWriter with one frame per call.
type Link struct {
	transport Transport
	enc       *Encoder
	dec       *Decoder
	retry     *RetryConfig
	stats     Stats
	maxPacket int
	readMu    syncutil.Mutex
	writeMu   syncutil.Mutex
	statsMu   syncutil.Mutex
}

// NewLink creates a Link over transport
func NewLink(transport Transport, opts ...LinkOption) *Link {
	l := &Link{
		transport: transport,
		enc:       NewEncoder(transport),
		dec:       NewDecoder(transport),
		retry:     DefaultRetryConfig(),
		maxPacket: DefaultMaxPacketSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WritePacket sends payload as one frame.
func (l *Link) WritePacket(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	err := l.enc.Encode(payload)
	l.statsMu.Lock()
	l.stats.Sent = l.enc.Stats()
	l.statsMu.Unlock()
	if err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// ReadPacket blocks until the next frame arrives and returns its payload.
//
// A blocking byte read can only be interrupted by closing the transport, so
// cancelling ctx while ReadPacket runs closes the transport and shuts the
// link down. The context error is then returned, even when a frame was
// decoded in the same instant. Framing errors leave the stream
// resynchronized and the link usable.
func (l *Link) ReadPacket(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read packet: %w", err)
	}

	l.readMu.Lock()
	defer l.readMu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		Debugf("slip: read cancelled, closing %s transport", l.transport.Type())
		_ = l.transport.Close()
	})

	payload, err := l.dec.Decode(l.maxPacket)
	closed := !stop()
	l.snapshotReceived()
	if closed {
		return nil, fmt.Errorf("read packet: %w", ctx.Err())
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("read packet: %w", ctxErr)
		}
		return nil, fmt.Errorf("read packet: %w", err)
	}
	return payload, nil
}

// ReadPacketRetry is ReadPacket that reads again when a frame was discarded
// for an invalid escape sequence. Transport failures and oversized frames are
// returned immediately.
func (l *Link) ReadPacketRetry(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := RetryWithPredicate(ctx, l.retry, IsInvalidEscape, func() error {
		var err error
		payload, err = l.ReadPacket(ctx)
		return err
	})
	return payload, err
}

// Read decodes the next frame into p, using len(p) as the capacity, and
// returns the payload length.
func (l *Link) Read(p []byte) (int, error) {
	l.readMu.Lock()
	defer l.readMu.Unlock()

	n, err := l.dec.DecodeInto(p)
	l.snapshotReceived()
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	return n, nil
}

// Write sends p as one frame and reports len(p) on success.
func (l *Link) Write(p []byte) (int, error) {
	if err := l.WritePacket(context.Background(), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Stats returns the link counters as of the most recently completed read and
// write. It never waits for a blocked ReadPacket.
func (l *Link) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

// snapshotReceived publishes the decoder counters; the caller holds readMu.
func (l *Link) snapshotReceived() {
	received := l.dec.Stats()
	l.statsMu.Lock()
	l.stats.Received = received
	l.statsMu.Unlock()
}

// Transport returns the underlying transport
func (l *Link) Transport() Transport {
	return l.transport
}

// Close closes the underlying transport, unblocking a pending read.
func (l *Link) Close() error {
	if err := l.transport.Close(); err != nil {
		return fmt.Errorf("failed to close %s transport: %w", l.transport.Type(), err)
	}
	return nil
}
