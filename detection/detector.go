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

// Package detection finds serial ports that are likely to have a SLIP
// speaking device (a ROM loader or flasher stub) on the other end.
//
// Detection never writes to a port. Opening a port toggles DTR/RTS on many
// development boards, which resets the chip, so the most a detector does is
// check that the device node is accessible.
package detection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/go-slip/internal/syncutil"
)

// Mode selects how much a detector may touch the system.
type Mode int

const (
	// Passive reports ports from their USB descriptors alone.
	Passive Mode = iota
	// Safe additionally drops device nodes the current user cannot read and
	// write. The port is still never opened.
	Safe
)

// Confidence rates how likely a port leads to a SLIP speaking chip.
type Confidence int

const (
	// Low is a serial port nothing is known about.
	Low Confidence = iota
	// Medium is a USB-UART bridge commonly wired to a target chip.
	Medium
	// High is the native USB serial interface of a target chip.
	High
)

var confidenceNames = [...]string{Low: "low", Medium: "medium", High: "high"}

func (c Confidence) String() string {
	if c < Low || int(c) >= len(confidenceNames) {
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
	return confidenceNames[c]
}

// ParseConfidence accepts "low", "medium" or "high" in any case.
func ParseConfidence(s string) (Confidence, error) {
	for c, name := range confidenceNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Confidence(c), nil
		}
	}
	return Low, fmt.Errorf("unknown confidence %q", s)
}

// DeviceInfo describes one candidate port.
type DeviceInfo struct {
	Transport  string // detector that found it, e.g. "uart"
	Path       string // what to open, e.g. "/dev/ttyUSB0" or "COM3"
	Name       string // product string when the descriptor has one, else Path
	VIDPID     string // normalized "VVVV:PPPP", empty for non-USB ports
	Serial     string
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s device at %s (confidence: %s)", d.Transport, d.Path, d.Confidence)
}

// Options tunes Detect. The zero value runs every detector in Passive mode
// with no filters, no timeout and no cache.
type Options struct {
	// Transports limits detection to these detectors; empty means all.
	Transports []string
	// Blocklist holds VID:PID pairs that are never reported, in any form
	// NormalizeVIDPID accepts.
	Blocklist []string
	// IgnorePaths holds device paths that are never reported.
	IgnorePaths []string
	// Timeout bounds the whole call on top of ctx; zero adds no bound.
	Timeout time.Duration
	// CacheTTL reuses a detector's previous result for this long; zero
	// always scans.
	CacheTTL time.Duration
	Mode     Mode
	// MinConfidence drops devices rated below it.
	MinConfidence Confidence
}

// DefaultOptions returns Safe mode with a five second bound.
func DefaultOptions() Options {
	return Options{
		Mode:    Safe,
		Timeout: 5 * time.Second,
	}
}

// Detector scans for ports of one transport kind.
type Detector interface {
	// Detect lists candidate devices. Filtering by Options is left to the
	// caller; a detector only has to honour Mode and ctx.
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	Transport() string
}

var (
	// ErrNoDevicesFound means every detector ran and nothing survived filtering.
	ErrNoDevicesFound = errors.New("no serial devices found")
	// ErrDetectionTimeout means ctx or Options.Timeout ended detection.
	ErrDetectionTimeout = errors.New("detection timeout")
	// ErrNoDetectors means no registered detector handles the requested transports.
	ErrNoDetectors = errors.New("no detectors available for specified transports")
)

var registry struct {
	detectors []Detector
	mu        syncutil.RWMutex
}

// RegisterDetector makes d available to Detect. Detector packages call it
// from init.
func RegisterDetector(d Detector) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.detectors = append(registry.detectors, d)
}

// detectorsFor returns the registered detectors whose transport is listed,
// or all of them for an empty list.
func detectorsFor(transports []string) []Detector {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if len(transports) == 0 {
		return slices.Clone(registry.detectors)
	}
	var out []Detector
	for _, d := range registry.detectors {
		if slices.Contains(transports, d.Transport()) {
			out = append(out, d)
		}
	}
	return out
}

// Detect runs the selected detectors concurrently and returns the devices
// that pass the filters in opts, in registration order. A nil opts means
// DefaultOptions. Devices found by some detectors are returned even when
// others failed; when nothing was found the detector errors are joined.
func Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}

	detectors := detectorsFor(o.Transports)
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	found := make([][]DeviceInfo, len(detectors))
	errs := make([]error, len(detectors))
	var wg sync.WaitGroup
	for i, d := range detectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found[i], errs[i] = scan(ctx, d, &o)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrDetectionTimeout, ctx.Err())
	}

	var devices []DeviceInfo
	for _, batch := range found {
		for _, d := range batch {
			if o.accepts(d) {
				devices = append(devices, d)
			}
		}
	}

	joined := errors.Join(errs...)
	switch {
	case len(devices) > 0:
		return devices, nil
	case ctx.Err() != nil:
		// A detector gave up on ctx just before ctx.Done was observed
		return nil, fmt.Errorf("%w: %w", ErrDetectionTimeout, ctx.Err())
	case joined != nil:
		return nil, joined
	default:
		return nil, ErrNoDevicesFound
	}
}

// scan runs one detector, going through the result cache when enabled.
// The cache holds unfiltered results so any Options can reuse them.
func scan(ctx context.Context, d Detector, o *Options) ([]DeviceInfo, error) {
	if o.CacheTTL > 0 {
		if devices, ok := scans.lookup(d.Transport(), o.Mode); ok {
			return devices, nil
		}
	}

	devices, err := d.Detect(ctx, o)
	if errors.Is(err, ErrNoDevicesFound) {
		devices, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s detection: %w", d.Transport(), err)
	}

	if o.CacheTTL > 0 {
		scans.store(d.Transport(), o.Mode, devices, o.CacheTTL)
	}
	return devices, nil
}
