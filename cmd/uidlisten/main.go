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
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	uidreader "github.com/ZaparooProject/go-uidreader"
	"github.com/ZaparooProject/go-uidreader/hostlink"
	"github.com/lmittmann/tint"
)

type config struct {
	port  *string
	baud  *int
	list  *bool
	debug *bool
}

func parseFlags() *config {
	cfg := &config{
		port: flag.String("port", hostlink.DefaultPort,
			"Serial port the reader is attached to (e.g., /dev/ttyUSB0 or /dev/ttyACM0), or \"auto\""),
		baud:  flag.Int("baud", hostlink.DefaultBaudRate, "Serial baud rate"),
		list:  flag.Bool("list", false, "List serial ports and exit"),
		debug: flag.Bool("debug", false, "Show free text lines from the reader"),
	}
	flag.Parse()

	if *cfg.debug {
		uidreader.SetDebugEnabled(true)
	}

	return cfg
}

func selectPort(name string) (string, error) {
	if name != "auto" {
		return name, nil
	}
	ports, err := hostlink.ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}
	return ports[0], nil
}

func run() int {
	cfg := parseFlags()

	level := slog.LevelInfo
	if *cfg.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
	slog.SetDefault(logger)

	if *cfg.list {
		ports, err := hostlink.ListPorts()
		if err != nil {
			logger.Error("failed to list ports", "error", err)
			return 1
		}
		for _, p := range ports {
			_, _ = fmt.Println(p)
		}
		return 0
	}

	name, err := selectPort(*cfg.port)
	if err != nil {
		logger.Error("no serial port", "error", err)
		return 1
	}

	port, err := hostlink.OpenPort(name, *cfg.baud)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, "Check the port: ls -l /dev/ttyUSB* /dev/ttyACM*")
		return 1
	}
	defer func() { _ = port.Close() }()

	listener, err := hostlink.NewListener(port, func(_ context.Context, uid uidreader.UID) error {
		_, err := fmt.Println(uid.Hex())
		return err
	}, hostlink.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create listener", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("listening", "port", name, "baud", *cfg.baud)
	if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("listener stopped", "error", err)
		return 1
	}
	return 0
}

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}
