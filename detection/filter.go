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

package detection

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizeVIDPID turns a USB vendor/product pair into "VVVV:PPPP" with
// upper case hex. It accepts "10c4:ea60", "0x10C4:0xEA60" and the Windows
// hardware ID form "VID_10C4&PID_EA60". IDs shorter than four digits are
// zero padded.
func NormalizeVIDPID(s string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))

	var vid, pid string
	var ok bool
	if strings.HasPrefix(upper, "VID_") {
		vid, pid, ok = strings.Cut(strings.TrimPrefix(upper, "VID_"), "&PID_")
	} else {
		vid, pid, ok = strings.Cut(upper, ":")
	}
	if !ok {
		return "", fmt.Errorf("invalid VID:PID %q", s)
	}

	vid, vidOK := usbID(vid)
	pid, pidOK := usbID(pid)
	if !vidOK || !pidOK {
		return "", fmt.Errorf("invalid VID:PID %q", s)
	}
	return vid + ":" + pid, nil
}

// usbID validates one 16-bit hex ID and pads it to four digits.
func usbID(s string) (string, bool) {
	s = strings.TrimPrefix(s, "0X")
	if s == "" || len(s) > 4 {
		return "", false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return "", false
		}
	}
	return strings.Repeat("0", 4-len(s)) + s, true
}

// blocked reports whether vidpid matches an entry of the blocklist.
// Entries that do not parse never match.
func blocked(vidpid string, blocklist []string) bool {
	if vidpid == "" {
		return false
	}
	for _, entry := range blocklist {
		if norm, err := NormalizeVIDPID(entry); err == nil && norm == vidpid {
			return true
		}
	}
	return false
}

// samePort compares device paths after cleaning them. Windows port names
// are case insensitive.
func samePort(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// accepts applies IgnorePaths, Blocklist and MinConfidence to one device.
func (o *Options) accepts(d DeviceInfo) bool {
	if d.Confidence < o.MinConfidence || blocked(d.VIDPID, o.Blocklist) {
		return false
	}
	for _, p := range o.IgnorePaths {
		if p != "" && samePort(d.Path, p) {
			return false
		}
	}
	return true
}
