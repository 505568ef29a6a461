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

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slip "github.com/ZaparooProject/go-slip"
	"github.com/ZaparooProject/go-slip/detection"
)

func TestApplyFileConfig(t *testing.T) {
	t.Parallel()
	trueVal := true

	tests := []struct {
		name       string
		fileConfig fileConfig
		changed    map[string]bool
		initial    config
		expected   config
		wantErr    bool
	}{
		{
			name: "applies all values",
			fileConfig: fileConfig{
				Port:          "/dev/ttyUSB1",
				Baud:          460800,
				Timeout:       "250ms",
				MaxPacket:     1024,
				Debug:         &trueVal,
				SessionLog:    "/tmp/logs",
				IgnorePaths:   []string{"/dev/ttyS0"},
				Blocklist:     []string{"1234:5678"},
				MinConfidence: "Medium",
			},
			changed: map[string]bool{},
			initial: defaultConfig(),
			expected: config{
				Port:          "/dev/ttyUSB1",
				Baud:          460800,
				Timeout:       250 * time.Millisecond,
				MaxPacket:     1024,
				Debug:         true,
				SessionLog:    "/tmp/logs",
				IgnorePaths:   []string{"/dev/ttyS0"},
				Blocklist:     []string{"1234:5678"},
				MinConfidence: detection.Medium,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: fileConfig{
				Port: "/dev/from-file",
				Baud: 9600,
			},
			changed: map[string]bool{"baud": true},
			initial: config{Baud: 115200, MaxPacket: 10},
			expected: config{
				Port:      "/dev/from-file",
				Baud:      115200,
				MaxPacket: 10,
			},
		},
		{
			name:       "zero values leave defaults",
			fileConfig: fileConfig{},
			changed:    map[string]bool{},
			initial:    defaultConfig(),
			expected:   defaultConfig(),
		},
		{
			name:       "invalid duration",
			fileConfig: fileConfig{Timeout: "soon"},
			changed:    map[string]bool{},
			initial:    defaultConfig(),
			wantErr:    true,
		},
		{
			name:       "invalid confidence",
			fileConfig: fileConfig{MinConfidence: "sure"},
			changed:    map[string]bool{},
			initial:    defaultConfig(),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.initial
			err := applyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
port = "COM4"
baud = 921600
timeout = "2s"
max_packet = 4096
ignore_paths = ["COM1"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	fc, err := loadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "COM4", fc.Port)
	assert.Equal(t, 921600, fc.Baud)
	assert.Equal(t, "2s", fc.Timeout)
	assert.Equal(t, 4096, fc.MaxPacket)
	assert.Equal(t, []string{"COM1"}, fc.IgnorePaths)
	assert.Nil(t, fc.Debug)
}

func TestLoadFileConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = \n"), 0o600))
	_, err = loadFileConfig(path)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, slip.DefaultMaxPacketSize, cfg.MaxPacket)

	cfg.Baud = 0
	require.Error(t, cfg.validate())

	cfg = defaultConfig()
	cfg.MaxPacket = -1
	require.Error(t, cfg.validate())

	cfg = defaultConfig()
	cfg.Timeout = -time.Second
	require.Error(t, cfg.validate())

	cfg = defaultConfig()
	cfg.Blocklist = []string{"VID_10C4&PID_EA60", "1a86:7523"}
	require.NoError(t, cfg.validate())
	cfg.Blocklist = append(cfg.Blocklist, "cp2102")
	require.Error(t, cfg.validate())
}

func TestConfigRequirePort(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	require.Error(t, cfg.requirePort())
	cfg.Port = "/dev/ttyACM0"
	require.NoError(t, cfg.requirePort())
}
