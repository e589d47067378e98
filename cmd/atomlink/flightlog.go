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

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/KarpelesLab/ringbuf"
	"github.com/rs/zerolog"
)

const flightLogSize = 256 * 1024

// flightLog keeps every debug line in memory and prints only the chosen
// level to the console. The buffer is dumped when the run fails.
type flightLog struct {
	buf *ringbuf.Writer
}

func newLogger(verbose bool) (zerolog.Logger, *flightLog) {
	consoleLevel := zerolog.WarnLevel
	if verbose {
		consoleLevel = zerolog.DebugLevel
	}
	console := &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}},
		Level:  consoleLevel,
	}

	buf, err := ringbuf.New(flightLogSize)
	if err != nil {
		logger := zerolog.New(console).With().Timestamp().Logger()
		logger.Warn().Err(err).Msg("flight log disabled")
		return logger, &flightLog{}
	}

	out := zerolog.MultiLevelWriter(console, buf)
	return zerolog.New(out).Level(zerolog.DebugLevel).With().Timestamp().Logger(), &flightLog{buf: buf}
}

// dump copies the buffered log to w
func (f *flightLog) dump(w io.Writer) {
	if f.buf == nil {
		return
	}
	_, _ = fmt.Fprintln(w, "--- recent link log ---")
	r := f.buf.Reader()
	defer func() { _ = r.Close() }()
	_, _ = io.Copy(w, r)
	_, _ = fmt.Fprintln(w, "--- end of log ---")
}

func (f *flightLog) close() {
	if f.buf != nil {
		_ = f.buf.Close()
	}
}
