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

//go:build linux

package uart

import "golang.org/x/sys/unix"

// hasReadWriteAccess asks the kernel whether the device node may be opened
// read-write, without opening it. Users outside the dialout group fail here.
func hasReadWriteAccess(path string) bool {
	return unix.Access(path, unix.R_OK|unix.W_OK) == nil
}
