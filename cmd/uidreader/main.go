// go-uidreader
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uidreader.
//
// go-uidreader is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uidreader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uidreader; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
	"github.com/ZaparooProject/go-uidreader/detection"
	"github.com/ZaparooProject/go-uidreader/hostlink"
	"github.com/ZaparooProject/go-uidreader/led"
	"github.com/ZaparooProject/go-uidreader/pn532"
	"github.com/ZaparooProject/go-uidreader/pn532/i2c"
	"github.com/ZaparooProject/go-uidreader/polling"
	"github.com/ZaparooProject/go-uidreader/rc522"
	"github.com/ZaparooProject/go-uidreader/rc522/spi"
	"github.com/lmittmann/tint"
)

const (
	readerPN532 = "pn532"
	readerRC522 = "rc522"
)

type config struct {
	reader       *string
	i2cBus       *string
	spiPort      *string
	resetPin     *string
	ledPin       *string
	serialPort   *string
	baud         *int
	ledActiveLow *bool
	debug        *bool
	listBuses    *bool
}

func parseFlags() *config {
	cfg := &config{
		reader:  flag.String("reader", readerPN532, "Reader chip: pn532 (I2C) or rc522 (SPI)"),
		i2cBus:  flag.String("i2c-bus", "/dev/i2c-1", "I2C bus of the PN532, or \"auto\""),
		spiPort: flag.String("spi-port", spi.DefaultPort, "SPI port of the RC522, or \"auto\""),
		resetPin: flag.String("reset-pin", spi.DefaultResetPin,
			"RC522 reset GPIO (empty for soft reset)"),
		ledPin:       flag.String("led-pin", led.DefaultPin, "Status LED GPIO (empty for none)"),
		ledActiveLow: flag.Bool("led-active-low", false, "Status LED is wired active low"),
		serialPort: flag.String("serial", "",
			"Serial port for tag events (e.g., /dev/ttyS0). Leave empty for stdout."),
		baud:      flag.Int("baud", hostlink.DefaultBaudRate, "Serial baud rate"),
		debug:     flag.Bool("debug", false, "Enable debug output"),
		listBuses: flag.Bool("list-buses", false, "List I2C buses and SPI ports and exit"),
	}
	flag.Parse()

	if *cfg.debug {
		uidreader.SetDebugEnabled(true)
	}

	return cfg
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	startTime := time.Now()
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				elapsed := time.Since(startTime)
				mins := int(elapsed.Minutes())
				secs := elapsed.Seconds() - float64(mins*60)
				a.Value = slog.StringValue(fmt.Sprintf("%02d:%05.2f", mins, secs))
			}
			return a
		},
	}))
}

// openReader opens the configured reader. A bus that cannot be opened
// yields a reader that fails identification, so the poller signals the
// fault on the LED like it does for a silent chip.
func openReader(cfg *config, logger *slog.Logger) (uidreader.Reader, io.Closer, error) {
	switch *cfg.reader {
	case readerPN532:
		hint := pn532.DefaultWiringHint
		bus, err := detection.SelectI2CBus(*cfg.i2cBus, nil)
		if err != nil {
			logger.Error("no I2C bus", "error", err)
			return uidreader.Unavailable("PN532", hint, err), nil, nil
		}
		hint = fmt.Sprintf("Check I2C connections (bus=%s, addr=0x%02X)", bus, i2c.DefaultAddress)

		transport, err := i2c.New(bus)
		if err != nil {
			logger.Error("failed to open I2C bus", "bus", bus, "error", err)
			return uidreader.Unavailable("PN532", hint, err), nil, nil
		}
		device, err := pn532.New(transport)
		if err != nil {
			_ = transport.Close()
			return nil, nil, fmt.Errorf("failed to create PN532 device: %w", err)
		}
		return pn532.NewReader(device, pn532.WithWiringHint(hint)), device, nil

	case readerRC522:
		hint := rc522.DefaultWiringHint
		portName, err := detection.SelectSPIPort(*cfg.spiPort, nil)
		if err != nil {
			logger.Error("no SPI port", "error", err)
			return uidreader.Unavailable("RC522", hint, err), nil, nil
		}
		hint = fmt.Sprintf("Check SPI connections (port=%s, reset=%s)", portName, *cfg.resetPin)

		port, err := spi.Open(portName, *cfg.resetPin)
		if err != nil {
			logger.Error("failed to open SPI port", "port", portName, "error", err)
			return uidreader.Unavailable("RC522", hint, err), nil, nil
		}
		return rc522.NewReader(port.Device(), rc522.WithWiringHint(hint)), port, nil

	default:
		return nil, nil, fmt.Errorf("unknown reader %q, want %s or %s", *cfg.reader, readerPN532, readerRC522)
	}
}

func openIndicator(cfg *config, logger *slog.Logger) uidreader.Indicator {
	if *cfg.ledPin == "" {
		return led.Nop{}
	}

	var opts []led.Option
	if *cfg.ledActiveLow {
		opts = append(opts, led.ActiveLow())
	}
	indicator, err := led.Open(*cfg.ledPin, opts...)
	if err != nil {
		logger.Warn("status LED unavailable", "pin", *cfg.ledPin, "error", err)
		return led.Nop{}
	}
	return indicator
}

func openSink(cfg *config) (io.Writer, io.Closer, error) {
	if *cfg.serialPort == "" {
		return os.Stdout, nil, nil
	}
	sink, err := hostlink.OpenSink(*cfg.serialPort, *cfg.baud)
	if err != nil {
		return nil, nil, err
	}
	return sink, sink, nil
}

func listBuses() {
	for _, find := range []func(*detection.Options) ([]detection.BusInfo, error){
		detection.FindI2CBuses,
		detection.FindSPIPorts,
	} {
		buses, err := find(nil)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
			continue
		}
		for _, bus := range buses {
			_, _ = fmt.Println(bus)
		}
	}
}

func closeAll(logger *slog.Logger, closers ...io.Closer) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func run() int {
	cfg := parseFlags()
	logger := newLogger(*cfg.debug)
	slog.SetDefault(logger)

	if *cfg.listBuses {
		listBuses()
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, sinkCloser, err := openSink(cfg)
	if err != nil {
		logger.Error("failed to open serial sink", "error", err)
		return 1
	}

	reader, readerCloser, err := openReader(cfg, logger)
	if err != nil {
		logger.Error("failed to open reader", "error", err)
		closeAll(logger, sinkCloser)
		return 1
	}
	defer closeAll(logger, readerCloser, sinkCloser)

	poller, err := polling.New(reader, openIndicator(cfg, logger), sink, polling.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create poller", "error", err)
		return 1
	}

	err = poller.Run(ctx)
	switch {
	case errors.Is(err, uidreader.ErrFault):
		logger.Error("stopped in fault state", "error", err)
		return 1
	case errors.Is(err, context.Canceled):
		logger.Info("shutting down")
		return 0
	default:
		logger.Error("poller stopped", "error", err)
		return 1
	}
}

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}
