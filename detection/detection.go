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

// Package detection lists the serial ports and I2C buses an atom link can
// be opened on
package detection

import (
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DeviceInfo describes one candidate link endpoint
type DeviceInfo struct {
	Transport    string
	Path         string
	Name         string
	VIDPID       string
	Product      string
	SerialNumber string
	USB          bool
}

// Options filters the listing
type Options struct {
	// Blocklist holds VID:PID pairs that are skipped
	Blocklist []string
	// IgnorePaths holds device paths that are skipped
	IgnorePaths []string
	// USBOnly drops serial ports that are not USB adapters
	USBOnly bool
}

// DefaultOptions returns options using the default blocklist
func DefaultOptions() Options {
	return Options{Blocklist: DefaultBlocklist()}
}

// ListSerial returns the serial ports present on the system
func ListSerial(opts Options) ([]DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return filterPorts(ports, opts), nil
}

func filterPorts(ports []*enumerator.PortDetails, opts Options) []DeviceInfo {
	devices := make([]DeviceInfo, 0, len(ports))
	for _, p := range ports {
		if p == nil || p.Name == "" {
			continue
		}
		if opts.USBOnly && !p.IsUSB {
			continue
		}
		if IsPathIgnored(p.Name, opts.IgnorePaths) {
			continue
		}
		info := DeviceInfo{
			Transport: "uart",
			Path:      p.Name,
			Name:      p.Name,
			USB:       p.IsUSB,
		}
		if p.IsUSB {
			info.VIDPID = FormatVIDPID(p.VID, p.PID)
			info.Product = p.Product
			info.SerialNumber = p.SerialNumber
			if IsBlocked(info.VIDPID, opts.Blocklist) {
				continue
			}
		}
		devices = append(devices, info)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices
}

// ListI2C returns the I2C buses registered with periph
func ListI2C(opts Options) ([]DeviceInfo, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	return filterBuses(i2creg.All(), opts), nil
}

func filterBuses(refs []*i2creg.Ref, opts Options) []DeviceInfo {
	devices := make([]DeviceInfo, 0, len(refs))
	for _, ref := range refs {
		if ref == nil || IsPathIgnored(ref.Name, opts.IgnorePaths) {
			continue
		}
		name := ref.Name
		if len(ref.Aliases) > 0 {
			name = ref.Aliases[0]
		}
		devices = append(devices, DeviceInfo{
			Transport: "i2c",
			Path:      ref.Name,
			Name:      name,
		})
	}
	return devices
}
