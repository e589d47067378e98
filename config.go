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
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ZaparooProject/go-atomlink/internal/frame"
	"github.com/rs/zerolog"
)

// Role selects which transport function a link performs. Exactly one role
// is active per link.
type Role byte

const (
	// RoleSPP is the framed point-to-point mode driven by the send and receive workers
	RoleSPP Role = 0x10
	// RoleStream bypasses framing and hands payloads straight to the transport
	RoleStream Role = 0x20
	// RoleRadio is reserved
	RoleRadio Role = 0x30
	// RoleVideo is reserved
	RoleVideo Role = 0x40
)

func (r Role) String() string {
	switch r {
	case RoleSPP:
		return "spp"
	case RoleStream:
		return "stream"
	case RoleRadio:
		return "radio"
	case RoleVideo:
		return "video"
	default:
		return fmt.Sprintf("role(%#02x)", byte(r))
	}
}

// ParseRole parses a role name as used in config files
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spp", "":
		return RoleSPP, nil
	case "stream":
		return RoleStream, nil
	case "radio":
		return RoleRadio, nil
	case "video":
		return RoleVideo, nil
	default:
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, s)
	}
}

// Default limits
const (
	DefaultSecret             = "atom_default"
	DefaultMaxFrameSize       = 1024
	DefaultQueueCapacity      = 0xFF
	DefaultReassemblyCapacity = 0xFFFF
	DefaultPendingCapacity    = 0xFFFF
	DefaultHistorySize        = 32
	DefaultMaxCorrelationID   = 0xFFFF
)

// Config contains configuration options for a Link
type Config struct {
	// OnEvict is called, outside any table lock, whenever a bounded table drops an entry
	OnEvict func(EvictionEvent)
	// Logger overrides the default stderr logger
	Logger *zerolog.Logger
	// Secret is the pre-shared authentication secret; both peers must agree
	Secret string
	// PendingTimeout expires unanswered sync-feedback requests; zero disables expiry
	PendingTimeout time.Duration
	// IdleInterval is how long the receive worker waits after an empty read
	IdleInterval time.Duration
	// RetryDelay is the pause between transport send retries
	RetryDelay time.Duration
	// MaxFrameSize bounds a whole encoded frame, header included
	MaxFrameSize int
	// QueueCapacity bounds the outbound frame queue
	QueueCapacity int
	// ReassemblyCapacity bounds the number of partially received messages
	ReassemblyCapacity int
	// PendingCapacity bounds the number of outstanding sync-feedback requests
	PendingCapacity int
	// HistorySize is how many sent messages are kept for retransmission
	HistorySize int
	// SendRetries is how many times a retryable transport send is retried
	SendRetries int
	// MaxCorrelationID is where the correlation id counter wraps back to 1
	MaxCorrelationID uint16
	// Header is the 4-byte frame magic
	Header [frame.HeaderLength]byte
	// Role selects the link function
	Role Role
	// AnnounceTotals sends a total-info frame ahead of multi-fragment messages
	AnnounceTotals bool
	// RequestRetransmit asks the peer to resend after a gap or checksum failure
	RequestRetransmit bool
	// Debug enables per-frame debug logging on the default logger
	Debug bool
}

// DefaultConfig returns default link configuration
func DefaultConfig() *Config {
	return &Config{
		Secret:             DefaultSecret,
		IdleInterval:       5 * time.Millisecond,
		RetryDelay:         10 * time.Millisecond,
		MaxFrameSize:       DefaultMaxFrameSize,
		QueueCapacity:      DefaultQueueCapacity,
		ReassemblyCapacity: DefaultReassemblyCapacity,
		PendingCapacity:    DefaultPendingCapacity,
		HistorySize:        DefaultHistorySize,
		SendRetries:        2,
		MaxCorrelationID:   DefaultMaxCorrelationID,
		Header:             frame.DefaultHeader,
		Role:               RoleSPP,
		RequestRetransmit:  true,
	}
}

// Validate checks the configuration for values the link cannot run with
func (c *Config) Validate() error {
	switch {
	case c.MaxFrameSize <= frame.Overhead:
		return fmt.Errorf("%w: max frame size %d must exceed the %d byte frame overhead",
			ErrInvalidConfig, c.MaxFrameSize, frame.Overhead)
	case c.QueueCapacity <= 0:
		return fmt.Errorf("%w: queue capacity must be positive", ErrInvalidConfig)
	case c.ReassemblyCapacity <= 0:
		return fmt.Errorf("%w: reassembly capacity must be positive", ErrInvalidConfig)
	case c.PendingCapacity <= 0:
		return fmt.Errorf("%w: pending capacity must be positive", ErrInvalidConfig)
	case c.HistorySize < 0:
		return fmt.Errorf("%w: history size must not be negative", ErrInvalidConfig)
	case c.SendRetries < 0:
		return fmt.Errorf("%w: send retries must not be negative", ErrInvalidConfig)
	case c.MaxCorrelationID == 0:
		return fmt.Errorf("%w: max correlation id must be at least 1", ErrInvalidConfig)
	case c.IdleInterval <= 0:
		return fmt.Errorf("%w: idle interval must be positive", ErrInvalidConfig)
	case c.PendingTimeout < 0:
		return fmt.Errorf("%w: pending timeout must not be negative", ErrInvalidConfig)
	case c.Secret == "":
		return fmt.Errorf("%w: authentication secret is empty", ErrInvalidConfig)
	}

	switch c.Role {
	case RoleSPP, RoleStream:
		return nil
	case RoleRadio, RoleVideo:
		return fmt.Errorf("%s role: %w", c.Role, ErrNotImplemented)
	default:
		return fmt.Errorf("%w: unknown role %s", ErrInvalidConfig, c.Role)
	}
}

// fileConfig is the TOML key mapping onto Config
type fileConfig struct {
	Header             string `toml:"header"`
	Secret             string `toml:"secret"`
	Role               string `toml:"role"`
	PendingTimeout     string `toml:"pending_timeout"`
	IdleInterval       string `toml:"idle_interval"`
	RetryDelay         string `toml:"retry_delay"`
	MaxFrameSize       int    `toml:"max_frame_size"`
	QueueCapacity      int    `toml:"queue_capacity"`
	ReassemblyCapacity int    `toml:"reassembly_capacity"`
	PendingCapacity    int    `toml:"pending_capacity"`
	HistorySize        int    `toml:"history_size"`
	SendRetries        int    `toml:"send_retries"`
	MaxCorrelationID   int    `toml:"max_correlation_id"`
	AnnounceTotals     bool   `toml:"announce_totals"`
	RequestRetransmit  bool   `toml:"request_retransmit"`
	Debug              bool   `toml:"debug"`
}

// LoadConfig reads a TOML config file. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load link config: %w", err)
	}
	return applyFileConfig(DefaultConfig(), &raw, meta)
}

// DecodeConfig parses TOML config text, see LoadConfig
func DecodeConfig(data string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode link config: %w", err)
	}
	return applyFileConfig(DefaultConfig(), &raw, meta)
}

func applyFileConfig(cfg *Config, raw *fileConfig, meta toml.MetaData) (*Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	if meta.IsDefined("header") {
		header, err := ParseHeader(raw.Header)
		if err != nil {
			return nil, err
		}
		cfg.Header = header
	}
	if meta.IsDefined("secret") {
		cfg.Secret = raw.Secret
	}
	if meta.IsDefined("role") {
		role, err := ParseRole(raw.Role)
		if err != nil {
			return nil, err
		}
		cfg.Role = role
	}

	durations := []struct {
		dst *time.Duration
		key string
		val string
	}{
		{key: "pending_timeout", val: raw.PendingTimeout, dst: &cfg.PendingTimeout},
		{key: "idle_interval", val: raw.IdleInterval, dst: &cfg.IdleInterval},
		{key: "retry_delay", val: raw.RetryDelay, dst: &cfg.RetryDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.val))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, d.key, err)
		}
		*d.dst = parsed
	}

	if meta.IsDefined("max_frame_size") {
		cfg.MaxFrameSize = raw.MaxFrameSize
	}
	if meta.IsDefined("queue_capacity") {
		cfg.QueueCapacity = raw.QueueCapacity
	}
	if meta.IsDefined("reassembly_capacity") {
		cfg.ReassemblyCapacity = raw.ReassemblyCapacity
	}
	if meta.IsDefined("pending_capacity") {
		cfg.PendingCapacity = raw.PendingCapacity
	}
	if meta.IsDefined("history_size") {
		cfg.HistorySize = raw.HistorySize
	}
	if meta.IsDefined("send_retries") {
		cfg.SendRetries = raw.SendRetries
	}
	if meta.IsDefined("max_correlation_id") {
		if raw.MaxCorrelationID < 1 || raw.MaxCorrelationID > 0xFFFF {
			return nil, fmt.Errorf("%w: max_correlation_id %d out of range", ErrInvalidConfig, raw.MaxCorrelationID)
		}
		cfg.MaxCorrelationID = uint16(raw.MaxCorrelationID)
	}
	if meta.IsDefined("announce_totals") {
		cfg.AnnounceTotals = raw.AnnounceTotals
	}
	if meta.IsDefined("request_retransmit") {
		cfg.RequestRetransmit = raw.RequestRetransmit
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseHeader parses a 4-byte magic written as hex, e.g. "E55EF22F" or "e5 5e f2 2f"
func ParseHeader(s string) ([frame.HeaderLength]byte, error) {
	var header [frame.HeaderLength]byte
	cleaned := strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "").Replace(strings.TrimSpace(s))
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return header, fmt.Errorf("%w: header %q: %w", ErrInvalidConfig, s, err)
	}
	if len(decoded) != frame.HeaderLength {
		return header, fmt.Errorf("%w: header %q must be %d bytes", ErrInvalidConfig, s, frame.HeaderLength)
	}
	copy(header[:], decoded)
	return header, nil
}
