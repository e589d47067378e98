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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-atomlink/internal/frame"
	"github.com/rs/zerolog"
)

// Option is a functional option for configuring a Link
type Option func(*Config) error

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(cfg *Config) Option {
	return func(c *Config) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidConfig)
		}
		*c = *cfg
		return nil
	}
}

// WithHeader sets the 4-byte frame magic
func WithHeader(header [frame.HeaderLength]byte) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithMaxFrameSize sets the largest encoded frame, header included
func WithMaxFrameSize(size int) Option {
	return func(c *Config) error {
		if size <= frame.Overhead {
			return fmt.Errorf("%w: max frame size %d too small", ErrInvalidConfig, size)
		}
		c.MaxFrameSize = size
		return nil
	}
}

// WithSecret sets the pre-shared authentication secret
func WithSecret(secret string) Option {
	return func(c *Config) error {
		c.Secret = secret
		return nil
	}
}

// WithRole selects the link role
func WithRole(role Role) Option {
	return func(c *Config) error {
		c.Role = role
		return nil
	}
}

// WithQueueCapacity bounds the outbound frame queue
func WithQueueCapacity(capacity int) Option {
	return func(c *Config) error {
		c.QueueCapacity = capacity
		return nil
	}
}

// WithReassemblyCapacity bounds the number of partially received messages
func WithReassemblyCapacity(capacity int) Option {
	return func(c *Config) error {
		c.ReassemblyCapacity = capacity
		return nil
	}
}

// WithPendingCapacity bounds the number of outstanding sync-feedback requests
func WithPendingCapacity(capacity int) Option {
	return func(c *Config) error {
		c.PendingCapacity = capacity
		return nil
	}
}

// WithPendingTimeout expires pending requests that were never answered
func WithPendingTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.PendingTimeout = timeout
		return nil
	}
}

// WithIdleInterval sets how long the receive worker sleeps after an empty read
func WithIdleInterval(interval time.Duration) Option {
	return func(c *Config) error {
		c.IdleInterval = interval
		return nil
	}
}

// WithSendRetries sets how often a retryable transport send is retried and the pause between tries
func WithSendRetries(retries int, delay time.Duration) Option {
	return func(c *Config) error {
		c.SendRetries = retries
		c.RetryDelay = delay
		return nil
	}
}

// WithMaxCorrelationID sets where the correlation id counter wraps back to 1
func WithMaxCorrelationID(maxID uint16) Option {
	return func(c *Config) error {
		c.MaxCorrelationID = maxID
		return nil
	}
}

// WithAnnounceTotals makes the link send a total-info frame ahead of multi-fragment messages
func WithAnnounceTotals(enabled bool) Option {
	return func(c *Config) error {
		c.AnnounceTotals = enabled
		return nil
	}
}

// WithRetransmit controls whether gaps and checksum failures trigger a
// lost-package or wrong-data request to the peer
func WithRetransmit(enabled bool) Option {
	return func(c *Config) error {
		c.RequestRetransmit = enabled
		return nil
	}
}

// WithHistorySize sets how many sent messages are kept for retransmission
func WithHistorySize(size int) Option {
	return func(c *Config) error {
		c.HistorySize = size
		return nil
	}
}

// WithOnEvict registers a hook called whenever a bounded table drops an entry
func WithOnEvict(fn func(EvictionEvent)) Option {
	return func(c *Config) error {
		c.OnEvict = fn
		return nil
	}
}

// WithLogger sets the base logger. The link adds its own id and role fields.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = &logger
		return nil
	}
}

// WithDebug enables per-frame debug logging
func WithDebug(enabled bool) Option {
	return func(c *Config) error {
		c.Debug = enabled
		return nil
	}
}
