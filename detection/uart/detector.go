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

// Package uart registers a detector for USB serial ports. Import it for its
// side effect:
//
//	import _ "github.com/ZaparooProject/go-slip/detection/uart"
package uart

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-slip/detection"
	"go.bug.st/serial/enumerator"
)

// knownBridges maps VID:PID to the confidence that a SLIP loader sits behind it.
var knownBridges = map[string]detection.Confidence{
	"10C4:EA60": detection.Medium, // Silicon Labs CP210x
	"1A86:7523": detection.Medium, // QinHeng CH340
	"1A86:55D4": detection.Medium, // QinHeng CH9102
	"0403:6001": detection.Medium, // FTDI FT232R
	"0403:6010": detection.Medium, // FTDI FT2232 (JTAG + UART adapters)
	"067B:2303": detection.Medium, // Prolific PL2303
	"303A:1001": detection.High,   // Espressif USB-Serial/JTAG
	"303A:0002": detection.High,   // Espressif ROM USB CDC
}

// goodPatterns are port name fragments of USB-UART drivers on macOS and BSD.
var goodPatterns = []string{
	"usbserial",      // FTDI and similar USB-serial adapters
	"slab_usbtouart", // Silicon Labs CP210x
	"wchusbserial",   // QinHeng CH34x
	"usbmodem",       // CDC ACM devices
}

// listPorts enumerates serial ports; replaced in tests.
var listPorts = func() ([]*enumerator.PortDetails, error) {
	return enumerator.GetDetailedPortsList() //nolint:wrapcheck // wrapped by the caller
}

// checkAccess reports whether the current user may open path; replaced in tests.
var checkAccess = hasReadWriteAccess

// detector implements the Detector interface for serial ports.
type detector struct{}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports that look like USB-UART bridges or native USB
// serial interfaces of a target chip. Blocklist and path filters are applied
// by detection.Detect.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return devices, fmt.Errorf("serial port detection: %w", err)
		}

		device, ok := d.processPort(port, opts)
		if ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// processPort turns one enumerated port into a device, or rejects it
func (*detector) processPort(port *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	if port == nil || port.Name == "" {
		return detection.DeviceInfo{}, false
	}

	confidence, ok := portConfidence(port)
	if !ok {
		return detection.DeviceInfo{}, false
	}

	if opts.Mode == detection.Safe && !checkAccess(port.Name) {
		return detection.DeviceInfo{}, false
	}

	return createDeviceInfo(port, confidence), true
}

// portConfidence rates a port. Built-in UARTs without a USB descriptor are
// skipped unless their name matches a known USB-serial driver.
func portConfidence(port *enumerator.PortDetails) (detection.Confidence, bool) {
	if port.IsUSB {
		if confidence, known := knownBridges[usbVIDPID(port)]; known {
			return confidence, true
		}
		return detection.Low, true
	}

	if matchesGoodPatterns(port.Name) {
		return detection.Low, true
	}
	return 0, false
}

// matchesGoodPatterns checks if the port name matches a known USB-serial driver
func matchesGoodPatterns(name string) bool {
	lowerName := strings.ToLower(name)
	for _, pattern := range goodPatterns {
		if strings.Contains(lowerName, pattern) {
			return true
		}
	}
	return false
}

// createDeviceInfo builds a DeviceInfo struct from port data
func createDeviceInfo(port *enumerator.PortDetails, confidence detection.Confidence) detection.DeviceInfo {
	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Name,
		Name:       port.Name,
		Serial:     port.SerialNumber,
		Confidence: confidence,
	}

	if port.IsUSB {
		device.VIDPID = usbVIDPID(port)
	}
	if port.Product != "" {
		device.Name = port.Product
	}
	return device
}

// usbVIDPID normalizes the descriptor IDs, or returns "" when the
// enumerator reported something unparsable.
func usbVIDPID(port *enumerator.PortDetails) string {
	vidpid, err := detection.NormalizeVIDPID(port.VID + ":" + port.PID)
	if err != nil {
		return ""
	}
	return vidpid
}
