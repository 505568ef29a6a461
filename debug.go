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
	"fmt"
	"os"
	"time"

	"github.com/ZaparooProject/go-slip/internal/frame"
)

// debugEnabled controls whether debug logging is active
var debugEnabled = false

func init() {
	if os.Getenv("SLIP_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled = true
	}
}

// Debugf prints debug information.
// Always writes to session log file (if initialized) with timestamp.
// Only prints to console when debug mode is enabled.
func Debugf(format string, args ...any) {
	message := fmt.Sprintf(format, args...)

	if sessionLogWriter != nil {
		timestamp := time.Now().Format("15:04:05.000")
		_, _ = fmt.Fprintf(sessionLogWriter, "%s DEBUG: %s\n", timestamp, message)
	}

	if debugEnabled {
		_, _ = fmt.Fprintf(os.Stderr, "DEBUG: %s\n", message)
	}
}

// SetDebugEnabled allows programmatic control of debug logging
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// traceEnabled reports whether per-frame trace lines would go anywhere.
// Callers use it to skip building hex previews on the hot path.
func traceEnabled() bool {
	return debugEnabled || sessionLogWriter != nil
}

// traceFrame logs one frame crossing the wire. dir is "=>" for outbound and
// "<=" for inbound, matching the stub tooling's trace format.
func traceFrame(dir string, payload []byte) {
	if !traceEnabled() {
		return
	}
	Debugf("%s (%d) %s", dir, len(payload), frame.Preview(payload, frame.PreviewLimit))
}
