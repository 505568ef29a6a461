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

// Command sliptool encodes, decodes and exchanges SLIP frames over a serial port.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	slip "github.com/ZaparooProject/go-slip"
	_ "github.com/ZaparooProject/go-slip/detection/uart"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func newLogger(w io.Writer, debugEnabled bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debugEnabled {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

// app carries state shared by all subcommands.
type app struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	log     zerolog.Logger
	cfgPath string
	cfg     config
}

func newRootCmd(a *app) *cobra.Command {
	a.cfg = defaultConfig()
	a.log = newLogger(a.stderr, false)

	root := &cobra.Command{
		Use:           "sliptool",
		Short:         "Encode, decode and exchange SLIP frames",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.slip/config.toml)")
	flags.StringVarP(&a.cfg.Port, "port", "p", a.cfg.Port, "serial port, e.g. /dev/ttyUSB0 or COM3")
	flags.IntVarP(&a.cfg.Baud, "baud", "b", a.cfg.Baud, "serial line speed")
	flags.DurationVar(&a.cfg.Timeout, "timeout", a.cfg.Timeout, "serial read timeout (0 blocks)")
	flags.IntVar(&a.cfg.MaxPacket, "max-packet", a.cfg.MaxPacket, "largest payload accepted when decoding")
	flags.BoolVar(&a.cfg.Debug, "debug", a.cfg.Debug, "enable debug output and frame traces")
	flags.StringVar(&a.cfg.SessionLog, "session-log", a.cfg.SessionLog, "directory to write a session debug log into")

	root.AddCommand(
		newPortsCmd(a),
		newEncodeCmd(a),
		newDecodeCmd(a),
		newSendCmd(a),
		newListenCmd(a),
	)
	return root
}

// loadConfig merges the config file under the flags the user set explicitly.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = defaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && fileExists(cfgFile) {
		fc, err := loadFileConfig(cfgFile)
		if err != nil {
			return err
		}
		if err := applyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	} else if a.cfgPath != "" {
		return fmt.Errorf("config file %s not found", a.cfgPath)
	}

	if err := a.cfg.validate(); err != nil {
		return err
	}

	a.log = newLogger(a.stderr, a.cfg.Debug)
	slip.SetDebugEnabled(a.cfg.Debug)

	if a.cfg.SessionLog != "" {
		path, err := slip.InitSessionLog(a.cfg.SessionLog)
		if err != nil {
			return err
		}
		a.log.Info().Str("path", path).Msg("session log")
	}

	a.log.Debug().Interface("config", a.cfg).Str("file", cfgFile).Msg("configuration")
	return nil
}

func newPortsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports that look like USB-UART bridges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPorts(cmd.Context(), a.stdout, &a.cfg)
		},
	}
}

func newEncodeCmd(a *app) *cobra.Command {
	var hexPayload string
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Wrap stdin (or --hex) in one SLIP frame on stdout",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runEncode(a.stdin, a.stdout, hexPayload)
		},
	}
	cmd.Flags().StringVar(&hexPayload, "hex", "", "payload as hex instead of stdin")
	return cmd
}

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode",
		Short: "Print each SLIP frame on stdin as a hex line",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			stats, err := runDecode(a.stdin, a.stdout, a.cfg.MaxPacket, a.log)
			logStats(a.log, stats)
			return err
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <hex>",
		Short: "Send one frame to --port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.requirePort(); err != nil {
				return err
			}
			payload, err := parseHex(args[0])
			if err != nil {
				return err
			}
			return runSend(cmd.Context(), &a.cfg, payload, a.log)
		},
	}
}

func newListenCmd(a *app) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print frames arriving on --port until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.requirePort(); err != nil {
				return err
			}
			stats, err := runListen(cmd.Context(), a.stdout, &a.cfg, count, a.log)
			logStats(a.log, stats.Received)
			return err
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many frames (0 = until interrupted)")
	return cmd
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	root := newRootCmd(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if path := slip.GetSessionLogPath(); path != "" {
		if closeErr := slip.CloseSessionLog(); closeErr != nil {
			a.log.Warn().Err(closeErr).Str("path", path).Msg("session log")
		} else {
			a.log.Info().Str("path", path).Msg("session log saved")
		}
	}
	if err != nil {
		a.log.Error().Err(err).Msg("sliptool")
		os.Exit(1)
	}
}
