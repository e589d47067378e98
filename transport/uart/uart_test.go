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

package uart

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/ZaparooProject/go-atomlink/internal/frame"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort hands out queued reads one chunk at a time and records writes
type fakePort struct {
	readErr  error
	writeErr error
	reads    [][]byte
	written  bytes.Buffer
	mu       sync.Mutex
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.reads) == 0 {
		return 0, nil
	}
	n := copy(b, p.reads[0])
	if n < len(p.reads[0]) {
		p.reads[0] = p.reads[0][n:]
	} else {
		p.reads = p.reads[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	// accept at most 8 bytes per call to exercise partial writes
	n := min(len(b), 8)
	p.written.Write(b[:n])
	return n, nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (*fakePort) SetReadTimeout(time.Duration) error { return nil }

func testFrame(id uint16, payload string) []byte {
	return frame.Encode(frame.DefaultHeader, &frame.Frame{
		Sequence:      frame.Sequence(frame.FeedbackNone, frame.SysNone),
		CorrelationID: id,
		Index:         1,
		Command:       0x0C0C,
		Payload:       []byte(payload),
	})
}

func TestTransportCreation(t *testing.T) {
	t.Parallel()

	tr := newTransport(&fakePort{}, "/dev/ttyUSB0", frame.DefaultHeader, atomlink.DefaultMaxFrameSize)
	assert.Equal(t, "/dev/ttyUSB0", tr.PortName())
	assert.Equal(t, atomlink.TransportUART, tr.Type())
	assert.True(t, tr.IsConnected())

	empty := &Transport{}
	assert.False(t, empty.IsConnected())
	assert.NoError(t, empty.Close())
}

func TestSendWritesWholeFrame(t *testing.T) {
	t.Parallel()

	p := &fakePort{}
	tr := newTransport(p, "test", frame.DefaultHeader, atomlink.DefaultMaxFrameSize)
	f := testFrame(1, "a payload longer than one write")

	require.NoError(t, tr.Send(f))
	assert.Equal(t, f, p.written.Bytes())
}

func TestSendErrorIsRetryable(t *testing.T) {
	t.Parallel()

	p := &fakePort{writeErr: errors.New("device busy")}
	tr := newTransport(p, "test", frame.DefaultHeader, atomlink.DefaultMaxFrameSize)

	err := tr.Send([]byte{1, 2, 3})
	require.ErrorIs(t, err, atomlink.ErrTransportWrite)
	assert.True(t, atomlink.IsRetryable(err))
}

func TestReceiveReassemblesSplitReads(t *testing.T) {
	t.Parallel()

	first := testFrame(1, "hello")
	second := testFrame(2, "world")
	stream := append(append([]byte{0xFF, 0x00}, first...), second...)

	p := &fakePort{reads: [][]byte{stream[:7], stream[7:20], stream[20:]}}
	tr := newTransport(p, "test", frame.DefaultHeader, atomlink.DefaultMaxFrameSize)

	var got [][]byte
	for i := 0; i < 10 && len(got) < 2; i++ {
		f, err := tr.Receive(context.Background())
		require.NoError(t, err)
		if f != nil {
			got = append(got, f)
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
	assert.Equal(t, 2, tr.Dropped())
}

func TestReceiveNothingAvailable(t *testing.T) {
	t.Parallel()

	tr := newTransport(&fakePort{}, "test", frame.DefaultHeader, atomlink.DefaultMaxFrameSize)
	f, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestReceiveContextCancelled(t *testing.T) {
	t.Parallel()

	tr := newTransport(&fakePort{reads: [][]byte{testFrame(1, "x")}}, "test", frame.DefaultHeader, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReceiveReadError(t *testing.T) {
	t.Parallel()

	tr := newTransport(&fakePort{readErr: errors.New("unplugged")}, "test", frame.DefaultHeader, 1024)
	_, err := tr.Receive(context.Background())
	require.ErrorIs(t, err, atomlink.ErrTransportRead)
	assert.Equal(t, atomlink.ErrorTypeTransient, atomlink.GetErrorType(err))
}

func TestLinkOverSerialPort(t *testing.T) {
	t.Parallel()

	p := &fakePort{}
	tr := newTransport(p, "test", frame.DefaultHeader, atomlink.DefaultMaxFrameSize)
	link, err := atomlink.New(tr, atomlink.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	p.mu.Lock()
	p.reads = append(p.reads, testFrame(9, "from peer"))
	p.mu.Unlock()

	require.NoError(t, link.Start(context.Background()))
	defer link.Stop()

	require.Eventually(t, func() bool {
		msg, ok := link.Pull(9)
		return ok && string(msg.Payload) == "from peer"
	}, 2*time.Second, 5*time.Millisecond)
}
