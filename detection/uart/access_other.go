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

//go:build !linux

package uart

import (
	"os"
	"runtime"
)

// hasReadWriteAccess reports whether the device exists. COM ports on Windows
// are not file system paths, so they are always accepted.
func hasReadWriteAccess(path string) bool {
	if runtime.GOOS == "windows" {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}
