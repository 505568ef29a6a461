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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Microsecond,
		MaxBackoff:        10 * time.Microsecond,
		BackoffMultiplier: 2,
	}
}

func TestDefaultRetryConfig_UsesDecodeConstants(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()
	assert.Equal(t, DefaultDecodeRetries, cfg.MaxAttempts)
	assert.Equal(t, DecodeInitialBackoff, cfg.InitialBackoff)
	assert.Equal(t, DecodeMaxBackoff, cfg.MaxBackoff)
	assert.Zero(t, cfg.RetryTimeout)
}

func TestRetryWithPredicate(t *testing.T) {
	t.Parallel()

	errOther := errors.New("wiring fault")
	tests := []struct {
		name      string
		errs      []error
		predicate func(error) bool
		wantErr   error
		wantCalls int
	}{
		{
			name:      "invalid escape retried until success",
			errs:      []error{NewInvalidEscapeError("test", 0x42), NewInvalidEscapeError("test", 0x42), nil},
			predicate: IsInvalidEscape,
			wantCalls: 3,
		},
		{
			name:      "timeout not retried by escape predicate",
			errs:      []error{NewTimeoutError("test", "port"), nil},
			predicate: IsInvalidEscape,
			wantErr:   ErrTransportTimeout,
			wantCalls: 1,
		},
		{
			name:      "timeout retried by IsRetryable",
			errs:      []error{NewTimeoutError("test", "port"), nil},
			predicate: IsRetryable,
			wantCalls: 2,
		},
		{
			name:      "attempts exhausted returns last error",
			errs:      []error{errOther, errOther, errOther, nil},
			predicate: func(error) bool { return true },
			wantErr:   errOther,
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			err := RetryWithPredicate(context.Background(), fastRetry(3), tt.predicate, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetryWithPredicate_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryWithPredicate(context.Background(), &RetryConfig{}, IsRetryable, func() error {
		calls++
		return NewTimeoutError("test", "port")
	})
	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.Equal(t, 1, calls)
}

func TestRetryWithPredicate_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithPredicate(ctx, nil, IsRetryable, func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryWithPredicate_TimeoutKeepsLastError(t *testing.T) {
	t.Parallel()

	cfg := fastRetry(1000)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	cfg.RetryTimeout = 10 * time.Millisecond

	err := RetryWithPredicate(context.Background(), cfg, IsRetryable, func() error {
		return NewTimeoutError("test", "port")
	})
	require.ErrorIs(t, err, ErrTransportTimeout)
}

func TestCalculateNextBackoff_Caps(t *testing.T) {
	t.Parallel()

	cfg := &RetryConfig{BackoffMultiplier: 2, MaxBackoff: 20 * time.Millisecond}
	assert.Equal(t, 8*time.Millisecond, calculateNextBackoff(4*time.Millisecond, cfg))
	assert.Equal(t, 20*time.Millisecond, calculateNextBackoff(16*time.Millisecond, cfg))
}

func TestCalculateJitteredSleep_Bounds(t *testing.T) {
	t.Parallel()

	base := 10 * time.Millisecond
	assert.Equal(t, base, calculateJitteredSleep(base, 0))
	for range 50 {
		got := calculateJitteredSleep(base, DecodeJitter)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+time.Duration(float64(base)*DecodeJitter))
	}
}
