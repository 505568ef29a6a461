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
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	slip "github.com/ZaparooProject/go-slip"
	"github.com/ZaparooProject/go-slip/detection"
	"github.com/ZaparooProject/go-slip/transport/uart"
)

// openTransport opens the serial line for send and listen; replaced in tests.
var openTransport = func(cfg *config) (slip.Transport, error) {
	uartCfg := uart.DefaultConfig()
	uartCfg.BaudRate = cfg.Baud
	uartCfg.ReadTimeout = cfg.Timeout

	t, err := uart.NewWithConfig(cfg.Port, uartCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	if err := t.ResetInput(); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("flush %s: %w", cfg.Port, err)
	}
	return t, nil
}

// parseHex accepts hex with optional whitespace, colons or a 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return b, nil
}

// runPorts prints every detected serial port, one per line.
func runPorts(ctx context.Context, out io.Writer, cfg *config) error {
	opts := detection.DefaultOptions()
	opts.IgnorePaths = cfg.IgnorePaths
	opts.Blocklist = cfg.Blocklist
	opts.MinConfidence = cfg.MinConfidence

	devices, err := detection.Detect(ctx, &opts)
	if errors.Is(err, detection.ErrNoDevicesFound) {
		_, _ = fmt.Fprintln(out, "no serial ports found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("detect ports: %w", err)
	}

	for _, d := range devices {
		line := d.String()
		if d.VIDPID != "" {
			line += " [" + d.VIDPID + "]"
		}
		if d.Name != d.Path {
			line += " " + d.Name
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}

// runEncode writes one frame to out. The payload is hexPayload when given,
// otherwise everything read from in.
func runEncode(in io.Reader, out io.Writer, hexPayload string) error {
	var payload []byte
	var err error
	if hexPayload != "" {
		payload, err = parseHex(hexPayload)
	} else {
		payload, err = io.ReadAll(in)
	}
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	if err := slip.NewEncoder(w).Encode(payload); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// runDecode prints one hex line per frame found in in. Malformed and
// oversized frames are logged and skipped; the end of input stops decoding.
func runDecode(in io.Reader, out io.Writer, maxPacket int, log zerolog.Logger) (slip.DecoderStats, error) {
	dec := slip.NewDecoder(bufio.NewReader(in))
	for {
		payload, err := dec.Decode(maxPacket)
		switch {
		case err == nil:
			_, _ = fmt.Fprintln(out, hex.EncodeToString(payload))
		case slip.IsInvalidEscape(err), slip.IsFrameTooLarge(err):
			log.Warn().Err(err).Msg("skipping frame")
		case errors.Is(err, io.EOF):
			return dec.Stats(), nil
		default:
			return dec.Stats(), fmt.Errorf("decode: %w", err)
		}
	}
}

// runSend writes one frame carrying payload to the configured port.
func runSend(ctx context.Context, cfg *config, payload []byte, log zerolog.Logger) error {
	t, err := openTransport(cfg)
	if err != nil {
		return err
	}
	link := slip.NewLink(t, slip.WithMaxPacketSize(cfg.MaxPacket))
	defer func() {
		if err := link.Close(); err != nil {
			log.Debug().Err(err).Msg("close link")
		}
	}()

	if err := link.WritePacket(ctx, payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	log.Info().Int("bytes", len(payload)).Str("port", cfg.Port).Msg("frame sent")
	return nil
}

// runListen prints frames from the configured port until ctx ends, the
// line fails, or count frames arrived when count is positive.
func runListen(ctx context.Context, out io.Writer, cfg *config, count int, log zerolog.Logger) (slip.Stats, error) {
	t, err := openTransport(cfg)
	if err != nil {
		return slip.Stats{}, err
	}
	link := slip.NewLink(t, slip.WithMaxPacketSize(cfg.MaxPacket))
	defer func() {
		if err := link.Close(); err != nil {
			log.Debug().Err(err).Msg("close link")
		}
	}()

	log.Info().Str("port", cfg.Port).Int("baud", cfg.Baud).Msg("listening")

	received := 0
	for count <= 0 || received < count {
		payload, err := link.ReadPacket(ctx)
		switch {
		case err == nil:
			received++
			_, _ = fmt.Fprintln(out, hex.EncodeToString(payload))
		case ctx.Err() != nil:
			return link.Stats(), nil
		case slip.IsInvalidEscape(err), slip.IsFrameTooLarge(err):
			log.Warn().Err(err).Msg("skipping frame")
		case errors.Is(err, slip.ErrTransportTimeout):
			log.Debug().Msg("no frame before timeout")
		default:
			return link.Stats(), fmt.Errorf("listen: %w", err)
		}
	}
	return link.Stats(), nil
}

func logStats(log zerolog.Logger, stats slip.DecoderStats) {
	log.Info().
		Uint64("frames", stats.Frames).
		Uint64("bytes", stats.Bytes).
		Uint64("noise", stats.NoiseBytes).
		Uint64("discarded", stats.DiscardedBytes).
		Uint64("bad_escapes", stats.InvalidEscapes).
		Uint64("oversized", stats.Oversized).
		Msg("decoder stats")
}
