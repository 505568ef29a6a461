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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTransport_FeedAndRead(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	assert.Equal(t, TransportMock, mock.Type())
	assert.True(t, mock.IsConnected())

	mock.Feed(0x01, 0x02)
	assert.Equal(t, 2, mock.Pending())

	for _, want := range []byte{0x01, 0x02} {
		b, err := mock.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}
	assert.Zero(t, mock.Pending())
}

func TestMockTransport_ReadBlocksUntilFed(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	got := make(chan byte, 1)
	go func() {
		b, err := mock.ReadByte()
		if err == nil {
			got <- b
		}
	}()

	select {
	case <-got:
		t.Fatal("ReadByte returned without data")
	case <-time.After(20 * time.Millisecond):
	}

	mock.Feed(0x99)
	select {
	case b := <-got:
		assert.Equal(t, byte(0x99), b)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadByte was not woken by Feed")
	}
}

func TestMockTransport_Timeout(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	require.NoError(t, mock.SetTimeout(5*time.Millisecond))

	start := time.Now()
	_, err := mock.ReadByte()
	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
}

func TestMockTransport_CloseUnblocksReader(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	done := make(chan error, 1)
	go func() {
		_, err := mock.ReadByte()
		done <- err
	}()

	require.NoError(t, mock.Close())
	require.NoError(t, mock.Close(), "second close is a no-op")

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrTransportClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock ReadByte")
	}
	assert.False(t, mock.IsConnected())

	_, err := mock.Write([]byte{0x01})
	require.ErrorIs(t, err, ErrTransportClosed)
}

func TestMockTransport_InjectedErrorsAreOneShot(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	readErr := errors.New("read glitch")
	writeErr := errors.New("write glitch")

	mock.Feed(0x05)
	mock.SetReadError(readErr)
	mock.SetWriteError(writeErr)

	_, err := mock.ReadByte()
	require.ErrorIs(t, err, readErr)
	b, err := mock.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), b)

	_, err = mock.Write([]byte{0x01})
	require.ErrorIs(t, err, writeErr)
	n, err := mock.Write([]byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMockTransport_WrittenIsACopy(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	data := []byte{0x01, 0x02}
	_, err := mock.Write(data)
	require.NoError(t, err)

	data[0] = 0xFF
	written := mock.Written()
	require.Len(t, written, 1)
	assert.Equal(t, []byte{0x01, 0x02}, written[0])

	written[0][1] = 0xFF
	assert.Equal(t, []byte{0x01, 0x02}, mock.Written()[0])
}

func TestMockTransport_ShortWrite(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.SetShortWrite(true)

	n, err := mock.Write([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, [][]byte{{0x01, 0x02}}, mock.Written())
}
