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

package testing

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain reads from r until EOF, recording the size of every read.
func drain(t *testing.T, r io.Reader, bufSize int) (data []byte, sizes []int) {
	t.Helper()
	buf := make([]byte, bufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			sizes = append(sizes, n)
		}
		if errors.Is(err, io.EOF) {
			return data, sizes
		}
		require.NoError(t, err)
	}
}

func closedStream(t *testing.T, data []byte) *Stream {
	t.Helper()
	s := NewStream()
	_, err := s.Write(data)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	return s
}

func TestJitteryConnection_PassThrough(t *testing.T) {
	t.Parallel()

	payload := RandomPayload(1, 300)
	jittery := NewJitteryConnection(closedStream(t, payload), JitterConfig{Seed: 12345})

	got, sizes := drain(t, jittery, 512)
	assert.Equal(t, payload, got)
	assert.Len(t, sizes, 1)
}

func TestJitteryConnection_WritePassesThrough(t *testing.T) {
	t.Parallel()

	stream := NewStream()
	jittery := NewJitteryConnection(stream, DefaultJitterConfig())

	n, err := jittery.Write([]byte{0xC0, 0x01, 0xC0})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, stream.Len())
}

func TestJitteryConnection_FragmentsWithoutLoss(t *testing.T) {
	t.Parallel()

	for _, seed := range []uint64{1, 2, 3, 42, 99999} {
		payload := RandomPayload(seed, 700)
		jittery := NewJitteryConnection(closedStream(t, payload), JitterConfig{
			Seed:             seed,
			FragmentReads:    true,
			FragmentMinBytes: 1,
		})

		got, sizes := drain(t, jittery, 256)
		require.Equal(t, payload, got, "seed %d", seed)
		assert.GreaterOrEqual(t, len(sizes), 3, "seed %d", seed)
		for _, n := range sizes {
			assert.LessOrEqual(t, n, 256)
		}
	}
}

func TestJitteryConnection_FragmentMinBytes(t *testing.T) {
	t.Parallel()

	payload := RandomPayload(7, 200)
	jittery := NewJitteryConnection(closedStream(t, payload), JitterConfig{
		Seed:             7,
		FragmentReads:    true,
		FragmentMinBytes: 8,
	})

	got, sizes := drain(t, jittery, 64)
	require.Equal(t, payload, got)
	// Only the tail of a backend chunk may come back shorter than the minimum
	short := 0
	for _, n := range sizes {
		if n < 8 {
			short++
		}
	}
	assert.LessOrEqual(t, short, 1)
}

func TestJitteryConnection_USBBoundaryStress(t *testing.T) {
	t.Parallel()

	payload := RandomPayload(3, 500)
	jittery := NewJitteryConnection(closedStream(t, payload), JitterConfig{
		Seed:              3,
		USBBoundaryStress: true,
	})

	got, sizes := drain(t, jittery, 1024)
	require.Equal(t, payload, got)

	offset := 0
	for _, n := range sizes {
		assert.Equal(t, offset/64, (offset+n-1)/64, "read at %d of %d bytes crosses a 64-byte packet", offset, n)
		offset += n
	}
}

func TestJitteryConnection_StallAfterBytes(t *testing.T) {
	t.Parallel()

	payload := RandomPayload(5, 40)
	jittery := NewJitteryConnection(closedStream(t, payload), JitterConfig{
		Seed:            5,
		StallAfterBytes: 10,
		StallDuration:   20 * time.Millisecond,
	})

	buf := make([]byte, 64)
	n, err := jittery.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n, "first read stops at the stall point")

	start := time.Now()
	n, err = jittery.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	jittery.ResetStallState()
	assert.Zero(t, jittery.bytesReadSinceStall)
	assert.False(t, jittery.stallTriggered)
}

func TestJitteryConnection_ClearBuffer(t *testing.T) {
	t.Parallel()

	stream := NewStream()
	_, err := stream.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	jittery := NewJitteryConnection(stream, JitterConfig{Seed: 1, StallAfterBytes: 1})
	buf := make([]byte, 4)
	n, err := jittery.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	jittery.ClearBuffer()
	_, err = stream.Write([]byte{9})
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	got, _ := drain(t, jittery, 4)
	assert.True(t, bytes.Equal([]byte{9}, got), "buffered bytes should be gone, got %x", got)
}

func TestJitteryConnection_Latency(t *testing.T) {
	t.Parallel()

	jittery := NewJitteryConnection(closedStream(t, []byte{1}), JitterConfig{
		Seed:         11,
		MaxLatencyMs: 5,
	})

	start := time.Now()
	got, _ := drain(t, jittery, 8)
	assert.Equal(t, []byte{1}, got)
	assert.Less(t, time.Since(start), time.Second)
}
