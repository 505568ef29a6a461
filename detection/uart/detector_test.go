//nolint:paralleltest // Tests replace package-level listPorts and checkAccess
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

package uart

import (
	"context"
	"errors"
	"testing"

	"github.com/ZaparooProject/go-slip/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func withPorts(t *testing.T, ports []*enumerator.PortDetails, access func(string) bool) {
	t.Helper()
	origList, origAccess := listPorts, checkAccess
	t.Cleanup(func() {
		listPorts, checkAccess = origList, origAccess
	})
	listPorts = func() ([]*enumerator.PortDetails, error) { return ports, nil }
	checkAccess = access
}

func allowAll(string) bool { return true }

func testPorts() []*enumerator.PortDetails {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4", PID: "ea60", Product: "CP2102 USB to UART", SerialNumber: "0001"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "303a", PID: "1001", Product: "USB JTAG/serial debug unit"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "2e8a", PID: "000a"},
		{Name: "/dev/ttyS0"},
		{Name: "/dev/cu.usbserial-1410"},
		nil,
		{Name: ""},
	}
}

func TestDetect_RatesPorts(t *testing.T) {
	withPorts(t, testPorts(), allowAll)

	devices, err := New().Detect(context.Background(), &detection.Options{Mode: detection.Passive})
	require.NoError(t, err)

	byPath := make(map[string]detection.DeviceInfo)
	for _, d := range devices {
		byPath[d.Path] = d
	}
	require.Len(t, byPath, 4)
	assert.NotContains(t, byPath, "/dev/ttyS0")

	cp210x := byPath["/dev/ttyUSB0"]
	assert.Equal(t, detection.Medium, cp210x.Confidence)
	assert.Equal(t, "uart", cp210x.Transport)
	assert.Equal(t, "CP2102 USB to UART", cp210x.Name)
	assert.Equal(t, "10C4:EA60", cp210x.VIDPID)
	assert.Equal(t, "0001", cp210x.Serial)

	assert.Equal(t, detection.High, byPath["/dev/ttyACM0"].Confidence)
	assert.Equal(t, detection.Low, byPath["/dev/ttyACM1"].Confidence)
	assert.Equal(t, detection.Low, byPath["/dev/cu.usbserial-1410"].Confidence)
	assert.Empty(t, byPath["/dev/cu.usbserial-1410"].VIDPID)
}

func TestDetect_SafeModeChecksAccess(t *testing.T) {
	withPorts(t, testPorts(), func(path string) bool {
		return path != "/dev/ttyUSB0"
	})

	devices, err := New().Detect(context.Background(), &detection.Options{Mode: detection.Safe})
	require.NoError(t, err)
	for _, d := range devices {
		assert.NotEqual(t, "/dev/ttyUSB0", d.Path)
	}

	devices, err = New().Detect(context.Background(), &detection.Options{Mode: detection.Passive})
	require.NoError(t, err)
	assert.Len(t, devices, 4)
}

func TestDetect_FilteredByRegistry(t *testing.T) {
	withPorts(t, testPorts(), allowAll)

	opts := &detection.Options{
		Transports:  []string{"uart"},
		Mode:        detection.Passive,
		Blocklist:   []string{"VID_303A&PID_1001"},
		IgnorePaths: []string{"/dev/ttyUSB0"},
	}
	devices, err := detection.Detect(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/ttyACM1", devices[0].Path)
	assert.Equal(t, "/dev/cu.usbserial-1410", devices[1].Path)

	opts = &detection.Options{
		Transports:    []string{"uart"},
		Mode:          detection.Passive,
		MinConfidence: detection.Medium,
	}
	devices, err = detection.Detect(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	for _, d := range devices {
		assert.GreaterOrEqual(t, d.Confidence, detection.Medium)
	}
}

func TestDetect_NothingFound(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{{Name: "/dev/ttyS0"}}, allowAll)

	_, err := New().Detect(context.Background(), &detection.Options{})
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetect_EnumerationError(t *testing.T) {
	withPorts(t, nil, allowAll)
	listPorts = func() ([]*enumerator.PortDetails, error) {
		return nil, errors.New("udev unavailable")
	}

	_, err := New().Detect(context.Background(), &detection.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enumerate serial ports")
}

func TestDetect_CancelledContext(t *testing.T) {
	withPorts(t, testPorts(), allowAll)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Detect(ctx, &detection.Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMatchesGoodPatterns(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"/dev/cu.usbserial-A50285BI", true},
		{"/dev/tty.SLAB_USBtoUART", true},
		{"/dev/cu.wchusbserial14130", true},
		{"/dev/cu.usbmodem1101", true},
		{"/dev/ttyS4", false},
		{"COM3", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchesGoodPatterns(tc.name))
		})
	}
}

func TestRegisteredOnImport(t *testing.T) {
	assert.Equal(t, "uart", New().Transport())
}
