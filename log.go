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

package atomlink

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// newLogger builds the per-link logger. Without a caller-supplied base it
// writes human readable output to stderr at warn level, or debug level
// when debug is set.
func newLogger(cfg *Config, id uuid.UUID) zerolog.Logger {
	var base zerolog.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	} else {
		level := zerolog.WarnLevel
		if cfg.Debug {
			level = zerolog.DebugLevel
		}
		base = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).Level(level).With().Timestamp().Logger()
	}
	return base.With().
		Str("link", id.String()).
		Str("role", cfg.Role.String()).
		Logger()
}

// logFrame writes a per-frame debug line
func logFrame(logger *zerolog.Logger, msg string, seq, userSeq byte, id uint16, index uint32, command uint16, size int) {
	logger.Debug().
		Hex("seq", []byte{seq}).
		Hex("user_seq", []byte{userSeq}).
		Uint16("id", id).
		Uint32("index", index).
		Uint16("command", command).
		Int("size", size).
		Msg(msg)
}
