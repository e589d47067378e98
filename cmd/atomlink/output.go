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
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/ZaparooProject/go-atomlink/detection"
)

func printDevices(w io.Writer, devices []detection.DeviceInfo) {
	if len(devices) == 0 {
		_, _ = fmt.Fprintln(w, "No devices found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TRANSPORT\tPATH\tVID:PID\tPRODUCT")
	for _, d := range devices {
		vidpid := d.VIDPID
		if vidpid == "" {
			vidpid = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Transport, d.Path, vidpid, d.Product)
	}
	_ = tw.Flush()
}

func printMessage(w io.Writer, msg atomlink.Message) {
	status := "complete"
	if !msg.Complete() {
		status = fmt.Sprintf("partial %d/%d", msg.Fragments, msg.TotalFragments)
	}
	_, _ = fmt.Fprintf(w, "id=%d command=%#04x bytes=%d %s\n",
		msg.CorrelationID, msg.Command, len(msg.Payload), status)
	_, _ = fmt.Fprint(w, hex.Dump(msg.Payload))
}

func printMetrics(w io.Writer, m atomlink.LinkMetrics) {
	_, _ = fmt.Fprintf(w, "frames sent=%d received=%d send errors=%d decode errors=%d retransmissions=%d\n",
		m.FramesSent, m.FramesReceived, m.SendErrors, m.DecodeErrors, m.Retransmissions)
}
