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
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/go-atomlink/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "atom_default", cfg.Secret)
	assert.Equal(t, frame.DefaultHeader, cfg.Header)
	assert.Equal(t, 255, cfg.QueueCapacity)
	assert.Equal(t, 65535, cfg.ReassemblyCapacity)
	assert.Equal(t, RoleSPP, cfg.Role)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate  func(*Config)
		wantErr error
		name    string
	}{
		{name: "frame too small", mutate: func(c *Config) { c.MaxFrameSize = frame.Overhead }, wantErr: ErrInvalidConfig},
		{name: "no queue", mutate: func(c *Config) { c.QueueCapacity = 0 }, wantErr: ErrInvalidConfig},
		{name: "no reassembly", mutate: func(c *Config) { c.ReassemblyCapacity = -1 }, wantErr: ErrInvalidConfig},
		{name: "no pending", mutate: func(c *Config) { c.PendingCapacity = 0 }, wantErr: ErrInvalidConfig},
		{name: "zero max id", mutate: func(c *Config) { c.MaxCorrelationID = 0 }, wantErr: ErrInvalidConfig},
		{name: "zero idle", mutate: func(c *Config) { c.IdleInterval = 0 }, wantErr: ErrInvalidConfig},
		{name: "empty secret", mutate: func(c *Config) { c.Secret = "" }, wantErr: ErrInvalidConfig},
		{name: "radio role", mutate: func(c *Config) { c.Role = RoleRadio }, wantErr: ErrNotImplemented},
		{name: "video role", mutate: func(c *Config) { c.Role = RoleVideo }, wantErr: ErrNotImplemented},
		{name: "unknown role", mutate: func(c *Config) { c.Role = Role(0x77) }, wantErr: ErrInvalidConfig},
		{name: "stream role", mutate: func(c *Config) { c.Role = RoleStream }},
		{name: "history disabled", mutate: func(c *Config) { c.HistorySize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeConfigOverlaysDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := DecodeConfig(`
header = "AA BB CC DD"
max_frame_size = 256
secret = "shop floor"
role = "stream"
pending_timeout = "2s"
request_retransmit = false
`)
	require.NoError(t, err)

	assert.Equal(t, [4]byte{0xAA, 0xBB, 0xCC, 0xDD}, cfg.Header)
	assert.Equal(t, 256, cfg.MaxFrameSize)
	assert.Equal(t, "shop floor", cfg.Secret)
	assert.Equal(t, RoleStream, cfg.Role)
	assert.Equal(t, 2*time.Second, cfg.PendingTimeout)
	assert.False(t, cfg.RequestRetransmit)

	// untouched keys keep their defaults
	def := DefaultConfig()
	assert.Equal(t, def.QueueCapacity, cfg.QueueCapacity)
	assert.Equal(t, def.IdleInterval, cfg.IdleInterval)
	assert.Equal(t, def.HistorySize, cfg.HistorySize)
}

func TestDecodeConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "unknown key", data: `colour = "blue"`},
		{name: "bad header", data: `header = "E55E"`},
		{name: "bad duration", data: `idle_interval = "soon"`},
		{name: "bad role", data: `role = "carrier pigeon"`},
		{name: "id out of range", data: `max_correlation_id = 70000`},
		{name: "invalid value", data: `queue_capacity = 0`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeConfig(tt.data)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "link.toml")
	require.NoError(t, os.WriteFile(path, []byte("history_size = 4\nannounce_totals = true\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.HistorySize)
	assert.True(t, cfg.AnnounceTotals)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestParseHeader(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"E55EF22F", "e5 5e f2 2f", "0xE5:0x5E:0xF2:0x2F"} {
		got, err := ParseHeader(in)
		require.NoError(t, err, in)
		assert.Equal(t, frame.DefaultHeader, got, in)
	}

	_, err := ParseHeader("zz")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Role{"spp": RoleSPP, "": RoleSPP, "Stream": RoleStream, "radio": RoleRadio, "video": RoleVideo} {
		got, err := ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if name != "" {
			assert.Equal(t, want, mustParseRole(t, got.String()))
		}
	}
}

func mustParseRole(t *testing.T, s string) Role {
	t.Helper()
	r, err := ParseRole(s)
	require.NoError(t, err)
	return r
}

func TestWithConfigOption(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.HistorySize = 2
	l := newTestLink(t, NewMockTransport(), WithConfig(cfg), WithSendRetries(5, time.Millisecond))
	got := l.Config()
	assert.Equal(t, 2, got.HistorySize)
	assert.Equal(t, 5, got.SendRetries)

	_, err := New(NewMockTransport(), WithConfig(nil))
	require.ErrorIs(t, err, ErrInvalidConfig)
}
