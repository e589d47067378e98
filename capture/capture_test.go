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

package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	atomlink "github.com/ZaparooProject/go-atomlink"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func newLink(t *testing.T, tr atomlink.Transport) *atomlink.Link {
	t.Helper()
	l, err := atomlink.New(tr, atomlink.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(l.Stop)
	return l
}

func TestRecorderRoundTrip(t *testing.T) {
	t.Parallel()

	mock := atomlink.NewMockTransport()
	var buf bytes.Buffer
	rec := NewRecorder(mock, &buf)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	require.NoError(t, rec.Send([]byte{1, 2, 3}))
	mock.Inject([]byte{4, 5})
	data, err := rec.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, data)

	// an empty receive is not recorded
	data, err = rec.Receive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, rec.Err())
	assert.Equal(t, 2, rec.Count())
	assert.Equal(t, atomlink.TransportMock, rec.Type())

	records, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Outbound, records[0].Direction)
	assert.Equal(t, []byte{1, 2, 3}, records[0].Data)
	assert.Equal(t, Inbound, records[1].Direction)
	assert.Equal(t, []byte{4, 5}, records[1].Data)
	assert.True(t, fixed.Equal(records[1].Time))
}

func TestRecorderWriteError(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(atomlink.NewMockTransport(), failingWriter{})
	require.NoError(t, rec.Send([]byte{1}))
	require.Error(t, rec.Err())
	assert.Zero(t, rec.Count())

	// later frames still pass through
	require.NoError(t, rec.Send([]byte{2}))
}

func TestRecorderSkipsFailedSend(t *testing.T) {
	t.Parallel()

	mock := atomlink.NewMockTransport()
	require.NoError(t, mock.Close())
	var buf bytes.Buffer
	rec := NewRecorder(mock, &buf)

	require.Error(t, rec.Send([]byte{1}))
	assert.Zero(t, rec.Count())
	assert.Zero(t, buf.Len())
}

func TestReadAllTruncated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rec := NewRecorder(atomlink.NewMockTransport(), &buf)
	require.NoError(t, rec.Send([]byte{1, 2, 3, 4}))
	require.NoError(t, rec.Send([]byte{5, 6, 7, 8}))

	raw := buf.Bytes()
	records, err := ReadAll(bytes.NewReader(raw[:len(raw)-2]))
	require.Error(t, err)
	assert.Len(t, records, 1)
}

func TestReplayTransport(t *testing.T) {
	t.Parallel()

	r := NewReplay([]Record{
		{Direction: Inbound, Data: []byte{1}},
		{Direction: Outbound, Data: []byte{2}},
		{Direction: Inbound, Data: []byte{3}},
	})
	assert.Equal(t, 2, r.Remaining())
	assert.Equal(t, TransportReplay, r.Type())

	for _, want := range [][]byte{{1}, {3}, nil} {
		got, err := r.Receive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NoError(t, r.Send([]byte{9}))
	assert.Equal(t, [][]byte{{9}}, r.Sent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, r.Close())
	require.ErrorIs(t, r.Send([]byte{1}), atomlink.ErrTransportClosed)
	_, err = r.Receive(context.Background())
	require.ErrorIs(t, err, atomlink.ErrTransportClosed)
}

func TestCaptureAndReplayLink(t *testing.T) {
	t.Parallel()

	ta, tb := atomlink.NewPipe()
	var buf bytes.Buffer
	rec := NewRecorder(tb, &buf)

	sender := newLink(t, ta)
	receiver := newLink(t, rec)

	sender.Authenticate()
	require.Eventually(t, sender.SelfAuthenticated, 2*time.Second, 5*time.Millisecond)
	id, err := sender.Send(0x0C0C, []byte("hello"), atomlink.FeedbackNone)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msg, ok := receiver.Pull(id)
		return ok && string(msg.Payload) == "hello"
	}, 2*time.Second, 5*time.Millisecond)
	receiver.Stop()
	require.NoError(t, rec.Err())

	records, err := ReadAll(&buf)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	replay := NewReplay(records)
	replayed := newLink(t, replay)
	require.Eventually(t, func() bool {
		msg, ok := replayed.Pull(id)
		return ok && string(msg.Payload) == "hello"
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, replayed.PeerVerified())
	assert.NotEmpty(t, replay.Sent())
}
