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

// Package polling drains received messages from a link and hands them to
// a callback, slowing down while the peer is quiet
package polling

import (
	"errors"
	"time"
)

// Config tunes the polling actor
type Config struct {
	// PollInterval is the pause between drains while messages are flowing
	PollInterval time.Duration
	// SlowdownAfter is how long without messages before polling slows to
	// five times PollInterval
	SlowdownAfter time.Duration
	// MaxInterval caps the slowed-down interval
	MaxInterval time.Duration
	// IdleTimeout fires OnIdle once no message arrived for this long; zero disables it
	IdleTimeout time.Duration
}

// DefaultConfig returns the default polling configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  10 * time.Millisecond,
		SlowdownAfter: 5 * time.Second,
		MaxInterval:   500 * time.Millisecond,
		IdleTimeout:   0,
	}
}

// ErrInvalidInterval is returned for a non-positive poll interval
var ErrInvalidInterval = errors.New("poll interval must be positive")

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidInterval
	}
	return nil
}

// slowInterval is the interval used once the peer has gone quiet
func (c *Config) slowInterval() time.Duration {
	slow := c.PollInterval * 5
	if c.MaxInterval > 0 && slow > c.MaxInterval {
		slow = c.MaxInterval
	}
	if slow < c.PollInterval {
		slow = c.PollInterval
	}
	return slow
}
