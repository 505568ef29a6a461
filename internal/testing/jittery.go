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

package testing

import (
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig configures the behavior of JitteryConnection.
type JitterConfig struct {
	MaxLatencyMs      int
	FragmentMinBytes  int
	StallAfterBytes   int
	StallDuration     time.Duration
	Seed              uint64
	FragmentReads     bool
	USBBoundaryStress bool
}

// DefaultJitterConfig returns a sensible default configuration for testing.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatencyMs:     2,
		FragmentReads:    true,
		FragmentMinBytes: 1,
	}
}

// JitteryConnection wraps an io.ReadWriter to simulate USB-UART bridges
// (FTDI, CH340, CP210x) that deliver data late and in arbitrary fragments.
// Backend reads are buffered so fragmentation never loses bytes; a frame
// split across any number of reads must decode exactly as if it arrived whole.
type JitteryConnection struct {
	backend             io.ReadWriter
	rng                 *rand.Rand
	readBuf             []byte
	config              JitterConfig
	bytesReadSinceStall int
	stallTriggered      bool
}

// NewJitteryConnection wraps a backend io.ReadWriter with jitter simulation.
func NewJitteryConnection(backend io.ReadWriter, config JitterConfig) *JitteryConnection {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
	}

	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}

	return &JitteryConnection{
		backend: backend,
		config:  config,
		rng:     rng,
		readBuf: make([]byte, 0, 1024),
	}
}

// Write passes writes through to the backend without modification.
// Jitter only affects reads to simulate realistic UART/USB behavior.
func (j *JitteryConnection) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Read reads from the backend with simulated jitter and fragmentation.
//
//nolint:gocognit,gocyclo,cyclop,nestif,revive // Jitter simulation inherently requires multiple conditions
func (j *JitteryConnection) Read(buf []byte) (int, error) {
	if j.config.MaxLatencyMs > 0 {
		delay := time.Duration(j.rng.IntN(j.config.MaxLatencyMs+1)) * time.Millisecond
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(j.readBuf) == 0 {
		tempBuf := make([]byte, 1024)
		bytesRead, err := j.backend.Read(tempBuf)
		if err != nil {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
		if bytesRead == 0 {
			return 0, nil
		}
		j.readBuf = append(j.readBuf, tempBuf[:bytesRead]...)
	}

	toReturn := min(len(j.readBuf), len(buf))

	// Limit data before the stall point, then stall once on the next read
	if j.config.StallAfterBytes > 0 && !j.stallTriggered {
		if j.bytesReadSinceStall >= j.config.StallAfterBytes {
			j.stallTriggered = true
			if j.config.StallDuration > 0 {
				time.Sleep(j.config.StallDuration)
			}
		} else if remaining := j.config.StallAfterBytes - j.bytesReadSinceStall; toReturn > remaining {
			toReturn = remaining
		}
	}

	// USB full-speed bulk packets are 64 bytes
	if j.config.USBBoundaryStress && toReturn > 0 {
		untilBoundary := ((j.bytesReadSinceStall/64)+1)*64 - j.bytesReadSinceStall
		if untilBoundary < toReturn {
			toReturn = untilBoundary
		}
	}

	if j.config.FragmentReads && toReturn > j.config.FragmentMinBytes {
		minReturn := j.config.FragmentMinBytes
		toReturn = minReturn + j.rng.IntN(toReturn-minReturn+1)
	}

	copy(buf, j.readBuf[:toReturn])
	j.readBuf = j.readBuf[toReturn:]
	j.bytesReadSinceStall += toReturn

	return toReturn, nil
}

// ResetStallState resets the stall tracking state.
func (j *JitteryConnection) ResetStallState() {
	j.bytesReadSinceStall = 0
	j.stallTriggered = false
}

// ClearBuffer clears any buffered read data.
func (j *JitteryConnection) ClearBuffer() {
	j.readBuf = j.readBuf[:0]
}
