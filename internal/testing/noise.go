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

import "math/rand/v2"

const delimiter = 0xC0

// Noise returns n pseudo-random bytes that never include the frame delimiter,
// like the boot messages a chip prints before the stub starts.
func Noise(seed uint64, n int) []byte {
	rng := rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	out := make([]byte, n)
	for i := range out {
		b := byte(rng.IntN(256))
		for b == delimiter {
			b = byte(rng.IntN(256))
		}
		out[i] = b
	}
	return out
}

// RandomPayload returns n pseudo-random bytes with delimiter and escape bytes
// deliberately over-represented.
func RandomPayload(seed uint64, n int) []byte {
	rng := rand.New(rand.NewPCG(seed, seed^0xC0FFEE)) //nolint:gosec // Test code, not crypto
	out := make([]byte, n)
	for i := range out {
		switch rng.IntN(4) {
		case 0:
			out[i] = 0xC0
		case 1:
			out[i] = 0xDB
		default:
			out[i] = byte(rng.IntN(256))
		}
	}
	return out
}

// AllBytes returns every byte value once, in order.
func AllBytes() []byte {
	out := make([]byte, 256)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}
