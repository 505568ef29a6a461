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

// Package uart provides a serial-port Transport for SLIP links, built on
// go.bug.st/serial.
package uart

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	slip "github.com/ZaparooProject/go-slip"
	"github.com/ZaparooProject/go-slip/internal/syncutil"
	"go.bug.st/serial"
)

// Default serial settings. ROM loaders and flasher stubs talk 8N1 at 115200
// until told otherwise.
const (
	DefaultBaudRate = 115200
	readChunkSize   = 256
)

// port is the subset of serial.Port the transport relies on.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

// openPort opens a serial device; replaced in tests.
var openPort = func(name string, mode *serial.Mode) (port, error) {
	return serial.Open(name, mode) //nolint:wrapcheck // wrapped by the caller
}

// Config holds serial line settings.
type Config struct {
	// BaudRate is the line speed in bits per second.
	BaudRate int
	// ReadTimeout bounds how long ReadByte waits for a byte; zero waits forever.
	ReadTimeout time.Duration
	// PollInterval is the driver-level read timeout. ReadByte wakes up at this
	// rate to check its own deadline and whether the port has been closed.
	PollInterval time.Duration
	// WriteRetries bounds consecutive zero-byte writes before Write gives up.
	WriteRetries int
}

// DefaultConfig returns the settings used by New.
func DefaultConfig() Config {
	return Config{
		BaudRate:     DefaultBaudRate,
		ReadTimeout:  0,
		PollInterval: defaultPollInterval(),
		WriteRetries: slip.TransportWriteRetries,
	}
}

// isWindows returns true if running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// defaultPollInterval returns the driver read timeout for this platform.
// 50ms works on Linux/Mac; Windows USB serial drivers need 100ms.
func defaultPollInterval() time.Duration {
	if isWindows() {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// Transport implements slip.Transport over a serial port.
type Transport struct {
	port     port
	portName string
	rbuf     []byte
	chunk    []byte
	config   Config
	timeout  atomic.Int64
	closed   atomic.Bool
	readMu   syncutil.Mutex
	writeMu  syncutil.Mutex
}

// New opens portName with DefaultConfig.
func New(portName string) (*Transport, error) {
	return NewWithConfig(portName, DefaultConfig())
}

// NewWithConfig opens portName as an 8N1 serial line with the given settings.
func NewWithConfig(portName string, config Config) (*Transport, error) {
	config = normalizeConfig(config)

	p, err := openPort(portName, &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	t, err := newTransport(p, portName, config)
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	slip.Debugf("uart: opened %s at %d baud", portName, config.BaudRate)
	return t, nil
}

func newTransport(p port, portName string, config Config) (*Transport, error) {
	config = normalizeConfig(config)
	if err := p.SetReadTimeout(config.PollInterval); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}

	t := &Transport{
		port:     p,
		portName: portName,
		config:   config,
		chunk:    make([]byte, readChunkSize),
	}
	t.timeout.Store(int64(config.ReadTimeout))
	return t, nil
}

func normalizeConfig(config Config) Config {
	defaults := DefaultConfig()
	if config.BaudRate <= 0 {
		config.BaudRate = defaults.BaudRate
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.WriteRetries <= 0 {
		config.WriteRetries = defaults.WriteRetries
	}
	if config.ReadTimeout < 0 {
		config.ReadTimeout = 0
	}
	return config
}

// ReadByte returns the next byte from the line. Reads are buffered; with a
// zero timeout it blocks until a byte arrives or the transport is closed.
func (t *Transport) ReadByte() (byte, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	var deadline time.Time
	if timeout := time.Duration(t.timeout.Load()); timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for len(t.rbuf) == 0 {
		if t.closed.Load() {
			return 0, slip.NewTransportClosedError("ReadByte", t.portName)
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0, slip.NewTimeoutError("ReadByte", t.portName)
		}
		if err := t.fill(); err != nil {
			return 0, err
		}
	}

	b := t.rbuf[0]
	t.rbuf = t.rbuf[1:]
	return b, nil
}

// fill performs one driver read into the read buffer. The caller holds readMu
// and the buffer is empty.
func (t *Transport) fill() error {
	n, err := t.port.Read(t.chunk)
	if err != nil {
		if t.closed.Load() {
			return slip.NewTransportClosedError("ReadByte", t.portName)
		}
		if isInterruptedSystemCall(err) {
			return nil
		}
		errType := slip.ErrorTypeTransient
		if slip.IsFatal(err) || isPortGone(err) {
			errType = slip.ErrorTypePermanent
		}
		return slip.NewTransportError("ReadByte", t.portName, err, errType)
	}
	t.rbuf = t.chunk[:n]
	return nil
}

// Write writes the whole buffer, looping over partial writes, then waits for
// the output to drain.
func (t *Transport) Write(data []byte) (int, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.closed.Load() {
		return 0, slip.NewTransportClosedError("Write", t.portName)
	}

	total := 0
	stalls := 0
	for total < len(data) {
		n, err := t.port.Write(data[total:])
		total += n
		if err != nil {
			if isInterruptedSystemCall(err) {
				continue
			}
			if t.closed.Load() {
				return total, slip.NewTransportClosedError("Write", t.portName)
			}
			return total, fmt.Errorf("UART write failed: %w", err)
		}
		if n == 0 {
			stalls++
			if stalls >= t.config.WriteRetries {
				return total, slip.NewTransportWriteError("Write", t.portName)
			}
			continue
		}
		stalls = 0
	}

	if err := t.drainWithRetry("write"); err != nil {
		return total, err
	}
	return total, nil
}

// SetTimeout sets how long ReadByte waits for a byte (0 blocks forever)
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("UART set timeout %v: %w", timeout, slip.ErrInvalidParameter)
	}
	t.timeout.Store(int64(timeout))
	return nil
}

// ResetInput discards bytes the driver has buffered and anything read but
// not yet consumed, typically stale boot output before a session starts.
func (t *Transport) ResetInput() error {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	t.rbuf = nil
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("UART reset input failed: %w", err)
	}
	return nil
}

// Close closes the port. A ReadByte blocked on the line returns
// ErrTransportClosed at the latest one poll interval later.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	slip.Debugf("uart: closed %s", t.portName)
	return nil
}

// IsConnected returns true until the transport is closed
func (t *Transport) IsConnected() bool {
	return !t.closed.Load()
}

// Type returns the transport type
func (*Transport) Type() slip.TransportType {
	return slip.TransportUART
}

// PortName returns the device path the transport was opened on
func (t *Transport) PortName() string {
	return t.portName
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// isPortGone reports driver errors that mean the device has disappeared.
func isPortGone(err error) bool {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return false
	}
	//nolint:exhaustive // Only the codes meaning the device is gone
	switch portErr.Code() {
	case serial.PortClosed, serial.PortNotFound:
		return true
	default:
		return false
	}
}

// drainRetry retries drains cut short by a signal, doubling the delay from
// TransportDrainBaseDelay.
var drainRetry = slip.RetryConfig{
	MaxAttempts:       slip.TransportDrainRetries,
	InitialBackoff:    slip.TransportDrainBaseDelay,
	MaxBackoff:        8 * slip.TransportDrainBaseDelay,
	BackoffMultiplier: 2,
}

// drainWithRetry waits for the output buffer to empty, retrying interrupted
// system calls.
func (t *Transport) drainWithRetry(operation string) error {
	err := slip.RetryWithPredicate(context.Background(), &drainRetry, isInterruptedSystemCall, t.port.Drain)
	if err != nil {
		return fmt.Errorf("UART %s drain failed: %w", operation, err)
	}
	return nil
}

// Ensure Transport implements slip.Transport
var _ slip.Transport = (*Transport)(nil)
