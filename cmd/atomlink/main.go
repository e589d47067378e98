// go-atomlink
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-atomlink.
//
// go-atomlink is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-atomlink is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-atomlink; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command atomlink opens a framed link on a serial port or I2C bus, sends a
// message and prints what the peer sends back
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/ZaparooProject/go-atomlink/capture"
	"github.com/ZaparooProject/go-atomlink/detection"
	"github.com/ZaparooProject/go-atomlink/polling"
	"github.com/ZaparooProject/go-atomlink/transport/i2c"
	"github.com/ZaparooProject/go-atomlink/transport/uart"
	"github.com/rs/zerolog"
)

type config struct {
	configPath *string
	port       *string
	baud       *int
	i2cBus     *string
	i2cAddr    *uint
	secret     *string
	command    *uint
	send       *string
	sync       *bool
	listen     *time.Duration
	timeout    *time.Duration
	capture    *string
	list       *bool
	verbose    *bool
}

func parseFlags() *config {
	cfg := &config{
		configPath: flag.String("config", "", "TOML link configuration file"),
		port: flag.String("port", "",
			"Serial device path (e.g., /dev/ttyUSB0 or COM3). Leave empty to use the first USB adapter."),
		baud:    flag.Int("baud", uart.DefaultBaudRate, "Serial baud rate"),
		i2cBus:  flag.String("i2c", "", "I2C bus name (e.g., /dev/i2c-1); overrides -port"),
		i2cAddr: flag.Uint("addr", i2c.DefaultAddress, "I2C target address"),
		secret:  flag.String("secret", "", "Authentication secret (default from config)"),
		command: flag.Uint("command", 0x0001, "Command field for -send"),
		send:    flag.String("send", "", "Hex payload to send after authenticating"),
		sync:    flag.Bool("sync", false, "Ask the peer for a reply to -send and wait for it"),
		listen:  flag.Duration("listen", 0, "Print received messages for this long"),
		timeout: flag.Duration("timeout", 5*time.Second, "Timeout for authentication and replies"),
		capture: flag.String("capture", "", "Write a CBOR capture of all frames to this file"),
		list:    flag.Bool("list", false, "List serial ports and I2C buses, then exit"),
		verbose: flag.Bool("verbose", false, "Print debug logging"),
	}
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()
	logger, flight := newLogger(*cfg.verbose)
	defer flight.close()

	if *cfg.list {
		if err := listDevices(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flight.dump(os.Stderr)
		os.Exit(1)
	}
}

func listDevices() error {
	opts := detection.DefaultOptions()
	serialPorts, err := detection.ListSerial(opts)
	if err != nil {
		return err
	}
	devices := serialPorts
	if buses, err := detection.ListI2C(opts); err == nil {
		devices = append(devices, buses...)
	}
	printDevices(os.Stdout, devices)
	return nil
}

func loadLinkConfig(cfg *config) (*atomlink.Config, error) {
	linkCfg := atomlink.DefaultConfig()
	if *cfg.configPath != "" {
		loaded, err := atomlink.LoadConfig(*cfg.configPath)
		if err != nil {
			return nil, err
		}
		linkCfg = loaded
	}
	if *cfg.secret != "" {
		linkCfg.Secret = *cfg.secret
	}
	if *cfg.verbose {
		linkCfg.Debug = true
	}
	return linkCfg, nil
}

// openTransport opens the I2C bus when one is named, otherwise a serial port
func openTransport(cfg *config, linkCfg *atomlink.Config) (atomlink.Transport, error) {
	if *cfg.i2cBus != "" {
		t, err := i2c.New(*cfg.i2cBus, uint16(*cfg.i2cAddr))
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		t.SetFraming(linkCfg.Header, linkCfg.MaxFrameSize)
		return t, nil
	}

	port := *cfg.port
	if port == "" {
		opts := detection.DefaultOptions()
		opts.USBOnly = true
		devices, err := detection.ListSerial(opts)
		if err != nil {
			return nil, err
		}
		if len(devices) == 0 {
			return nil, errors.New("no USB serial adapter found, use -port")
		}
		port = devices[0].Path
	}

	t, err := uart.NewWithFraming(port, *cfg.baud, linkCfg.Header, linkCfg.MaxFrameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport: %w", err)
	}
	return t, nil
}

func run(ctx context.Context, cfg *config, logger zerolog.Logger) error {
	payload, err := decodePayload(*cfg.send)
	if err != nil {
		return err
	}
	linkCfg, err := loadLinkConfig(cfg)
	if err != nil {
		return err
	}

	transport, err := openTransport(cfg, linkCfg)
	if err != nil {
		return err
	}

	var recorder *capture.Recorder
	if *cfg.capture != "" {
		f, err := os.Create(*cfg.capture)
		if err != nil {
			_ = transport.Close()
			return fmt.Errorf("create capture file: %w", err)
		}
		defer func() { _ = f.Close() }()
		recorder = capture.NewRecorder(transport, f)
		transport = recorder
	}

	link, err := atomlink.New(transport, atomlink.WithConfig(linkCfg), atomlink.WithLogger(logger))
	if err != nil {
		_ = transport.Close()
		return err
	}
	defer func() {
		printMetrics(os.Stderr, link.Metrics())
		_ = link.Close()
		if recorder != nil && recorder.Err() != nil {
			logger.Warn().Err(recorder.Err()).Msg("capture incomplete")
		}
	}()

	if err := link.Start(ctx); err != nil {
		return err
	}

	if linkCfg.Role == atomlink.RoleSPP {
		if err := authenticate(ctx, link, *cfg.timeout); err != nil {
			return err
		}
	}

	if *cfg.send != "" {
		if err := sendPayload(ctx, link, uint16(*cfg.command), payload, *cfg.sync, *cfg.timeout); err != nil {
			return err
		}
	}

	if *cfg.listen > 0 {
		return listen(ctx, link, *cfg.listen)
	}
	return nil
}

func decodePayload(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "").Replace(s)
	payload, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid -send payload: %w", err)
	}
	return payload, nil
}

func authenticate(ctx context.Context, link *atomlink.Link, timeout time.Duration) error {
	link.Authenticate()
	if !waitFor(ctx, timeout, link.SelfAuthenticated) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.New("peer did not accept the handshake")
	}
	_, _ = fmt.Println("Authenticated")
	return nil
}

func sendPayload(ctx context.Context, link *atomlink.Link, command uint16, payload []byte,
	sync bool, timeout time.Duration,
) error {
	feedback := atomlink.FeedbackNone
	if sync {
		feedback = atomlink.FeedbackSync
	}
	id, err := link.Send(command, payload, feedback)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	_, _ = fmt.Printf("Sent id=%d bytes=%d\n", id, len(payload))

	if !sync {
		return nil
	}
	if !waitFor(ctx, timeout, func() bool { return !link.IsPending(id) }) {
		return fmt.Errorf("no reply for id %d within %s", id, timeout)
	}
	_, _ = fmt.Printf("Reply received for id=%d\n", id)
	return nil
}

func listen(ctx context.Context, link *atomlink.Link, d time.Duration) error {
	actor, err := polling.NewActor(link, nil, polling.Callbacks{
		OnMessage: func(msg atomlink.Message) error {
			printMessage(os.Stdout, msg)
			return nil
		},
	})
	if err != nil {
		return err
	}

	listenCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	if err := actor.Start(listenCtx); err != nil {
		return err
	}
	<-listenCtx.Done()
	actor.Stop()

	_, _ = fmt.Printf("Received %d messages\n", actor.GetMetrics().Messages)
	if errors.Is(listenCtx.Err(), context.DeadlineExceeded) {
		return nil
	}
	return listenCtx.Err()
}

// waitFor polls cond until it holds, the timeout passes or ctx is done
func waitFor(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-ctx.Done():
			return false
		case <-deadline:
			return false
		case <-ticker.C:
		}
	}
	return true
}
