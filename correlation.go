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

import "sync"

// correlationCounter hands out correlation ids for newly originated
// messages. It starts at 1 and wraps back to 1 after max, never yielding 0.
// Ids are not checked against live table rows; a wrapped id can collide
// with a request that is still pending under sustained load.
type correlationCounter struct {
	mu   sync.Mutex
	last uint16
	max  uint16
}

func newCorrelationCounter(maxID uint16) *correlationCounter {
	return &correlationCounter{max: maxID}
}

func (c *correlationCounter) next() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last >= c.max {
		c.last = 0
	}
	c.last++
	return c.last
}
