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

//go:build windows

package slip

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

// isDeviceGoneError checks for OS-level errors indicating device disconnection.
// These errors occur when a USB serial adapter is unplugged during I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
	switch errno {
	case windows.ERROR_ACCESS_DENIED, windows.ERROR_GEN_FAILURE, windows.ERROR_DEVICE_NOT_CONNECTED,
		windows.ERROR_OPERATION_ABORTED:
		return true
	default:
		return false
	}
}
