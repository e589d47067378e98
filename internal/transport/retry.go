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

// Package transport provides retry helpers shared by the link and its transport backends
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Retry errors
var (
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrTimeout          = errors.New("operation timed out")
)

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry       func() error
	OnRetryFailed func() error
	Description   string
	MaxRetries    int
	RetryDelay    time.Duration
}

// WithRetry executes an operation with retry logic. Delays between attempts
// are cut short when ctx is done.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		// If we should retry but we're at max attempts, break
		if attempt >= config.MaxRetries {
			break
		}

		if err := executeRetryCallback(config); err != nil {
			return zero, err
		}

		if config.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(config.RetryDelay):
			}
		}
	}

	return handleRetriesExhausted[T](config)
}

// executeRetryCallback executes the retry callback if provided
func executeRetryCallback(config RetryConfig) error {
	if config.OnRetry != nil {
		return config.OnRetry()
	}
	return nil
}

// handleRetriesExhausted handles the case when all retries are exhausted
func handleRetriesExhausted[T any](config RetryConfig) (T, error) {
	var zero T

	if config.OnRetryFailed != nil {
		if failErr := config.OnRetryFailed(); failErr != nil {
			return zero, failErr
		}
	}

	if config.Description != "" {
		return zero, fmt.Errorf("%s: %w", config.Description, ErrRetriesExhausted)
	}
	return zero, ErrRetriesExhausted
}

// TimeoutRetry keeps calling operation until it stops asking for a retry,
// the timeout elapses or ctx is done. Used for polling a peer's ready state.
func TimeoutRetry[T any](ctx context.Context, timeout, interval time.Duration, operation RetryOperation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)
	if interval <= 0 {
		interval = time.Millisecond
	}

	for time.Now().Before(deadline) {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(interval):
		}
	}

	return zero, ErrTimeout
}
