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
	"fmt"
	"io"
)

// Error categories for better error handling and retry logic
var (
	// Transport errors - never retried by the framer itself
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportClosed  = errors.New("transport is closed")

	// Framing errors - scoped to a single decode call
	ErrInvalidEscape = errors.New("invalid escape sequence")
	ErrFrameTooLarge = errors.New("frame too large")

	// Data errors - not retryable
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// TransportError wraps byte source and byte sink failures with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the caller may retry the whole frame
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FrameError reports a malformed or oversized frame. The stream has already
// been resynchronized to a frame boundary when it is returned.
type FrameError struct {
	Err      error  // ErrInvalidEscape or ErrFrameTooLarge
	Op       string // Operation that failed
	Capacity int    // Caller buffer capacity, for ErrFrameTooLarge
	Byte     byte   // Offending byte after the escape, for ErrInvalidEscape
}

func (e *FrameError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidEscape):
		return fmt.Sprintf("%s: %v: 0x%02X after escape", e.Op, e.Err, e.Byte)
	case errors.Is(e.Err, ErrFrameTooLarge):
		return fmt.Sprintf("%s: %v: exceeds %d bytes", e.Op, e.Err, e.Capacity)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrInvalidEscape),
		errors.Is(err, ErrTransportTimeout):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the stream is gone and no
// further decode call can make progress. Framing errors are never fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var fe *FrameError
	if errors.As(err, &fe) {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) && te.Type == ErrorTypePermanent {
		return true
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// IsInvalidEscape reports whether err is an InvalidEscapeSequence condition
func IsInvalidEscape(err error) bool {
	return errors.Is(err, ErrInvalidEscape)
}

// IsFrameTooLarge reports whether err is a FrameTooLarge condition
func IsFrameTooLarge(err error) bool {
	return errors.Is(err, ErrFrameTooLarge)
}

// Error constructors for consistent error creation

// NewTransportError creates a standard transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for transport operations
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewTransportClosedError creates a closed transport error (permanent)
func NewTransportClosedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportClosed, ErrorTypePermanent)
}

// NewTransportWriteError creates a short write error (transient)
func NewTransportWriteError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportWrite, ErrorTypeTransient)
}

// NewInvalidEscapeError creates an invalid escape sequence error
func NewInvalidEscapeError(op string, b byte) *FrameError {
	return &FrameError{Op: op, Err: ErrInvalidEscape, Byte: b}
}

// NewFrameTooLargeError creates a frame too large error
func NewFrameTooLargeError(op string, capacity int) *FrameError {
	return &FrameError{Op: op, Err: ErrFrameTooLarge, Capacity: capacity}
}

// wrapReadError classifies an error returned by a byte source.
// Errors that are already classified pass through untouched.
func wrapReadError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, ErrTransportClosed) {
		return NewTransportError(op, "", err, ErrorTypePermanent)
	}
	return NewTransportError(op, "", fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
}
