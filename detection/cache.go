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
	"slices"
	"time"

	"github.com/ZaparooProject/go-slip/internal/syncutil"
)

// resultCache keeps the last unfiltered scan of each transport until it
// expires. A scan taken in one Mode is never served to another. Callers that poll Detect, such as a host waiting for a board to
// show up, opt in with Options.CacheTTL.
type resultCache struct {
	entries map[string]cachedScan
	now     func() time.Time
	mu      syncutil.Mutex
}

type cachedScan struct {
	expires time.Time
	devices []DeviceInfo
	mode    Mode
}

var scans = newResultCache(time.Now)

func newResultCache(now func() time.Time) *resultCache {
	return &resultCache{entries: make(map[string]cachedScan), now: now}
}

// lookup returns a copy of the cached scan for transport if it is still fresh
// and was taken in mode.
func (c *resultCache) lookup(transport string, mode Mode) ([]DeviceInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[transport]
	if !ok || entry.mode != mode {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, transport)
		return nil, false
	}
	return slices.Clone(entry.devices), true
}

// store records a scan. An empty scan is not cached, so a board that was
// just plugged in shows up on the next call.
func (c *resultCache) store(transport string, mode Mode, devices []DeviceInfo, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(devices) == 0 {
		delete(c.entries, transport)
		return
	}
	c.entries[transport] = cachedScan{
		devices: slices.Clone(devices),
		expires: c.now().Add(ttl),
		mode:    mode,
	}
}

// forget drops the cached scans of the given transports, or all of them.
func (c *resultCache) forget(transports ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(transports) == 0 {
		clear(c.entries)
		return
	}
	for _, t := range transports {
		delete(c.entries, t)
	}
}

// ClearDetectionCache drops cached scans for the given transports, or for
// every transport when called without arguments.
func ClearDetectionCache(transports ...string) {
	scans.forget(transports...)
}
