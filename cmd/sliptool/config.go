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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	slip "github.com/ZaparooProject/go-slip"
	"github.com/ZaparooProject/go-slip/detection"
	"github.com/ZaparooProject/go-slip/transport/uart"
)

// config holds the resolved settings for one sliptool invocation.
type config struct {
	Port        string
	SessionLog  string
	IgnorePaths []string
	Blocklist   []string
	Baud        int
	MaxPacket   int
	Timeout     time.Duration
	// MinConfidence hides ports rated below it from the ports command.
	MinConfidence detection.Confidence
	Debug         bool
}

func defaultConfig() config {
	return config{
		Baud:      uart.DefaultBaudRate,
		MaxPacket: slip.DefaultMaxPacketSize,
	}
}

// validate checks the configuration once flags and file values are merged.
func (c *config) validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.MaxPacket < 0 {
		return fmt.Errorf("max-packet must not be negative, got %d", c.MaxPacket)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	for _, entry := range c.Blocklist {
		if _, err := detection.NormalizeVIDPID(entry); err != nil {
			return fmt.Errorf("blocklist: %w", err)
		}
	}
	return nil
}

// requirePort fails when a command that talks to hardware has no port.
func (c *config) requirePort() error {
	if c.Port == "" {
		return errors.New("no serial port given: pass --port or set port in the config file")
	}
	return nil
}

// fileConfig mirrors config with TOML friendly types.
type fileConfig struct {
	Debug       *bool    `toml:"debug"`
	Port        string   `toml:"port"`
	Timeout     string   `toml:"timeout"`
	SessionLog  string   `toml:"session_log"`
	IgnorePaths []string `toml:"ignore_paths"`
	Blocklist   []string `toml:"blocklist"`
	Baud        int      `toml:"baud"`
	MaxPacket   int      `toml:"max_packet"`
	// MinConfidence is "low", "medium" or "high".
	MinConfidence string `toml:"min_confidence"`
}

// loadFileConfig reads and parses a TOML config file.
func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	b, err := os.ReadFile(path) //nolint:gosec // path comes from the user
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// defaultConfigPath returns ~/.slip/config.toml, or "" without a home directory.
func defaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".slip", "config.toml")
	}
	return ""
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// applyFileConfig copies file values into cfg, skipping any flag the user set.
func applyFileConfig(cfg *config, fc fileConfig, changed map[string]bool) error {
	s := configSetter{changed: changed}

	s.setString("port", fc.Port, &cfg.Port)
	s.setString("session-log", fc.SessionLog, &cfg.SessionLog)
	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("max-packet", fc.MaxPacket, &cfg.MaxPacket)
	s.setBool("debug", fc.Debug, &cfg.Debug)
	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}

	if len(fc.IgnorePaths) > 0 {
		cfg.IgnorePaths = fc.IgnorePaths
	}
	if len(fc.Blocklist) > 0 {
		cfg.Blocklist = fc.Blocklist
	}
	if fc.MinConfidence != "" {
		c, err := detection.ParseConfidence(fc.MinConfidence)
		if err != nil {
			return fmt.Errorf("min_confidence: %w", err)
		}
		cfg.MinConfidence = c
	}
	return nil
}

// configSetter applies values only where the matching flag was not set.
type configSetter struct {
	changed map[string]bool
}

func (s configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}
