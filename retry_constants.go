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

import "time"

// Decode retry constants control how often a Link re-reads after a frame was
// discarded for a bad escape sequence. The stream is already resynchronized at
// that point, so backoff only paces a sender that keeps emitting garbage.
const (
	// DefaultDecodeRetries is the number of decode attempts per ReadPacketRetry call.
	DefaultDecodeRetries = 3
	// DecodeInitialBackoff is the delay before the first re-read.
	DecodeInitialBackoff = 1 * time.Millisecond
	// DecodeMaxBackoff caps the delay between re-reads.
	DecodeMaxBackoff = 20 * time.Millisecond
	// DecodeBackoffMultiplier is the exponential backoff multiplier.
	DecodeBackoffMultiplier = 2.0
	// DecodeJitter is the random jitter factor (0.0-1.0).
	DecodeJitter = 0.1
)

// Transport retry constants control low-level serial behavior.
const (
	// TransportDrainRetries is the number of attempts to drain the output buffer
	// when the call is interrupted by a signal.
	TransportDrainRetries = 3
	// TransportDrainBaseDelay is the first delay between drain attempts; it doubles each time.
	TransportDrainBaseDelay = 2 * time.Millisecond
	// TransportWriteRetries bounds consecutive zero-byte writes before a write is
	// reported as failed.
	TransportWriteRetries = 5
)
