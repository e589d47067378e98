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
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-atomlink/internal/frame"
	"github.com/ZaparooProject/go-atomlink/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Feedback selects whether a request expects a reply frame
type Feedback byte

// Feedback modes
const (
	FeedbackNone Feedback = frame.FeedbackNone
	FeedbackSync Feedback = frame.FeedbackSync
)

// Link is one end of a framed point-to-point connection. It owns a send
// worker that drains the outbound queue into the transport and a receive
// worker that decodes inbound frames. All methods are safe for concurrent use.
type Link struct {
	transport  Transport
	queue      *sendQueue
	pending    *pendingTable
	reassembly *reassemblyTable
	history    *sentHistory
	ids        *correlationCounter
	authHash   []byte
	logger     zerolog.Logger
	cfg        Config
	metrics    linkMetrics
	sender     worker
	receiver   worker

	fragmentSize      int
	id                uuid.UUID
	handshakeID       atomic.Uint32
	handshakeAt       atomic.Int64
	selfAuthenticated atomic.Bool
	peerVerified      atomic.Bool
}

// New creates a link over transport. No worker runs until Start.
func New(t Transport, opts ...Option) (*Link, error) {
	if t == nil {
		return nil, ErrNilTransport
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	l := &Link{
		transport:    t,
		cfg:          *cfg,
		id:           id,
		logger:       newLogger(cfg, id),
		queue:        newSendQueue(cfg.QueueCapacity),
		pending:      newPendingTable(cfg.PendingCapacity),
		reassembly:   newReassemblyTable(cfg.ReassemblyCapacity),
		history:      newSentHistory(cfg.HistorySize),
		ids:          newCorrelationCounter(cfg.MaxCorrelationID),
		authHash:     secretHash(cfg.Secret),
		fragmentSize: frame.FragmentSize(cfg.MaxFrameSize),
	}
	l.logger.Debug().
		Str("transport", string(t.Type())).
		Int("fragment_size", l.fragmentSize).
		Msg("link created")
	return l, nil
}

// NewFromFuncs creates a link over a pair of send and receive callbacks
func NewFromFuncs(send SendFunc, receive ReceiveFunc, opts ...Option) (*Link, error) {
	t, err := NewFuncTransport(send, receive)
	if err != nil {
		return nil, err
	}
	return New(t, opts...)
}

// ID returns the link instance id used in log output
func (l *Link) ID() uuid.UUID {
	return l.id
}

// Role returns the configured link role
func (l *Link) Role() Role {
	return l.cfg.Role
}

// Config returns a copy of the link configuration
func (l *Link) Config() Config {
	return l.cfg
}

// Metrics returns a snapshot of the link counters
func (l *Link) Metrics() LinkMetrics {
	return l.metrics.snapshot()
}

// Start runs both workers. The stream role has no workers and Start does nothing.
func (l *Link) Start(ctx context.Context) error {
	if l.cfg.Role == RoleStream {
		return nil
	}
	l.StartReceiver(ctx)
	l.StartSender(ctx)
	return nil
}

// Stop stops both workers and waits for them to exit
func (l *Link) Stop() {
	l.StopSender()
	l.StopReceiver()
}

// Close stops the workers and closes the transport
func (l *Link) Close() error {
	l.Stop()
	if err := l.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// StartSender starts the send worker. It reports false if it was already running.
func (l *Link) StartSender(ctx context.Context) bool {
	if l.cfg.Role == RoleStream {
		return false
	}
	started := l.sender.start(ctx, l.sendLoop)
	if started {
		l.logger.Info().Msg("send worker started")
	}
	return started
}

// StopSender stops the send worker and waits for it to exit
func (l *Link) StopSender() {
	l.sender.stop()
}

// StartReceiver starts the receive worker. It reports false if it was already running.
func (l *Link) StartReceiver(ctx context.Context) bool {
	if l.cfg.Role == RoleStream {
		return false
	}
	started := l.receiver.start(ctx, l.receiveLoop)
	if started {
		l.logger.Info().Msg("receive worker started")
	}
	return started
}

// StopReceiver stops the receive worker and waits for it to exit
func (l *Link) StopReceiver() {
	l.receiver.stop()
}

// SenderState returns the send worker lifecycle state
func (l *Link) SenderState() WorkerState {
	return l.sender.State()
}

// ReceiverState returns the receive worker lifecycle state
func (l *Link) ReceiverState() WorkerState {
	return l.receiver.State()
}

// Send queues payload under command and returns the correlation id it was
// given. It never blocks. Before the peer has confirmed our handshake the
// payload is dropped, a handshake is queued instead (unless one is still
// waiting for its answer) and ErrNotAuthenticated is returned.
func (l *Link) Send(command uint16, payload []byte, feedback Feedback) (uint16, error) {
	return l.SendTagged(command, payload, feedback, 0)
}

// SendTagged is Send with a caller-defined user sequence byte
func (l *Link) SendTagged(command uint16, payload []byte, feedback Feedback, userSeq byte) (uint16, error) {
	if l.cfg.Role == RoleStream {
		if err := l.transport.Send(payload); err != nil {
			l.metrics.sendErrors.Add(1)
			return 0, fmt.Errorf("stream send: %w", err)
		}
		l.metrics.framesSent.Add(1)
		return 0, nil
	}

	if feedback != FeedbackNone && feedback != FeedbackSync {
		return 0, fmt.Errorf("%w: %#02x", ErrInvalidFeedback, byte(feedback))
	}
	if uint64(frame.FragmentCount(len(payload), l.fragmentSize)) > math.MaxUint32 {
		return 0, ErrPayloadTooLarge
	}
	if !l.selfAuthenticated.Load() {
		l.ensureHandshake()
		return 0, ErrNotAuthenticated
	}

	id := l.ids.next()
	l.sendMessage(frame.Sequence(byte(feedback), frame.SysNone), userSeq, id, command, payload)
	return id, nil
}

// SendReply sends the message received under id back to its sender as a
// reply, reusing the id. The message stays available to Pull.
func (l *Link) SendReply(id uint16) error {
	msg, ok := l.reassembly.peek(id)
	if !ok {
		return fmt.Errorf("reply to %d: %w", id, ErrUnknownCorrelation)
	}
	return l.ReplyTo(&msg)
}

// ReplyTo sends an already pulled message back to its sender as a reply
func (l *Link) ReplyTo(msg *Message) error {
	if msg == nil || msg.CorrelationID == 0 {
		return fmt.Errorf("reply: %w", ErrUnknownCorrelation)
	}
	l.sendMessage(frame.ReplySequence(msg.Sequence), msg.UserSeq, msg.CorrelationID, msg.Command, msg.Payload)
	return nil
}

// PullReceived removes and returns the received message with the smallest
// correlation id. It does not wait. In the stream role it reads once from
// the transport and returns the raw bytes under correlation id 0.
func (l *Link) PullReceived() (Message, bool) {
	if l.cfg.Role == RoleStream {
		raw, err := l.transport.Receive(context.Background())
		if err != nil {
			l.logger.Warn().Err(err).Msg("stream receive failed")
			return Message{}, false
		}
		if len(raw) == 0 {
			return Message{}, false
		}
		l.metrics.framesReceived.Add(1)
		return Message{Payload: raw, Fragments: 1, UserSeq: byte(RoleStream)}, true
	}
	return l.reassembly.pullSmallest()
}

// PullCompleted is PullReceived that skips messages still short of their
// announced totals. Messages without an announcement are returned as soon
// as they hold a fragment.
func (l *Link) PullCompleted() (Message, bool) {
	if l.cfg.Role == RoleStream {
		return l.PullReceived()
	}
	return l.reassembly.pullSmallestComplete()
}

// Pull removes and returns the message received under id
func (l *Link) Pull(id uint16) (Message, bool) {
	return l.reassembly.pull(id)
}

// PendingCount returns the number of requests still waiting for a reply
func (l *Link) PendingCount() int {
	return l.pending.len()
}

// IsPending reports whether a reply for id is still outstanding
func (l *Link) IsPending(id uint16) bool {
	return l.pending.has(id)
}

// QueueLen returns the number of frames waiting for the send worker
func (l *Link) QueueLen() int {
	return l.queue.len()
}

// sendMessage fragments and queues one message. The pending row of a
// sync-feedback request exists before its first frame is queued.
func (l *Link) sendMessage(seq, userSeq byte, id, command uint16, payload []byte) {
	if frame.NeedsFeedback(seq) && !frame.IsReply(seq) {
		l.addPending(id, pendingRequest{
			sequence: seq,
			userSeq:  userSeq,
			command:  command,
			payload:  append([]byte(nil), payload...),
		})
	}

	fragments := frame.Split(payload, l.fragmentSize)
	data := make([]outboundFrame, 0, len(fragments))
	for i, frag := range fragments {
		f := &frame.Frame{
			Sequence:      seq,
			UserSeq:       userSeq,
			CorrelationID: id,
			Index:         uint32(i + 1),
			Command:       command,
			Payload:       frag,
		}
		logFrame(&l.logger, "queued frame", seq, userSeq, id, f.Index, command, len(frag))
		data = append(data, outboundFrame{data: frame.Encode(l.cfg.Header, f), id: id, index: f.Index})
	}

	if dropped := l.history.record(id, data); len(dropped) > 0 {
		events := make([]EvictionEvent, 0, len(dropped))
		for _, old := range dropped {
			events = append(events, EvictionEvent{Table: EvictHistory, CorrelationID: old})
		}
		l.recordEvictions(events...)
	}

	batch := data
	if l.cfg.AnnounceTotals && len(fragments) > 1 {
		totals := l.controlFrame(frame.Sequence(frame.FeedbackNone, frame.SysTotalInfo), id,
			frame.EncodeTotalInfo(uint32(len(fragments)), uint64(len(payload))))
		batch = append([]outboundFrame{totals}, data...)
	}
	l.enqueue(false, batch...)
}

// controlFrame encodes a single-fragment control frame. Control frames
// carry the link role as their user sequence byte.
func (l *Link) controlFrame(seq byte, id uint16, payload []byte) outboundFrame {
	f := &frame.Frame{
		Sequence:      seq,
		UserSeq:       byte(l.cfg.Role),
		CorrelationID: id,
		Index:         1,
		Command:       frame.ControlCommand,
		Payload:       payload,
	}
	logFrame(&l.logger, "queued control frame", seq, f.UserSeq, id, 1, f.Command, len(payload))
	return outboundFrame{data: frame.Encode(l.cfg.Header, f), id: id, index: 1}
}

func (l *Link) enqueueControl(seq byte, id uint16, payload []byte, priority bool) {
	l.enqueue(priority, l.controlFrame(seq, id, payload))
}

func (l *Link) enqueue(priority bool, frames ...outboundFrame) {
	evicted := l.queue.push(priority, frames...)
	if len(evicted) == 0 {
		return
	}
	events := make([]EvictionEvent, 0, len(evicted))
	for _, f := range evicted {
		events = append(events, EvictionEvent{Table: EvictSendQueue, CorrelationID: f.id, Index: f.index})
	}
	l.recordEvictions(events...)
}

func (l *Link) addPending(id uint16, req pendingRequest) {
	req.createdAt = time.Now()
	if evicted, ok := l.pending.insert(id, req); ok {
		l.recordEvictions(EvictionEvent{Table: EvictPending, CorrelationID: evicted})
	}
}

// sendLoop drains the queue into the transport, sleeping on the queue's
// notify channel while it is empty
func (l *Link) sendLoop(ctx context.Context) {
	defer func() { l.logger.Info().Msg("send worker stopped") }()
	for {
		if ctx.Err() != nil {
			return
		}
		f, ok := l.queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-l.queue.notify:
			}
			continue
		}
		l.transmit(ctx, f)
	}
}

// transmit hands one frame to the transport, retrying retryable failures
func (l *Link) transmit(ctx context.Context, f outboundFrame) {
	var lastErr error
	_, err := transport.WithRetry(ctx, transport.RetryConfig{
		MaxRetries:  l.cfg.SendRetries,
		RetryDelay:  l.cfg.RetryDelay,
		Description: "send frame",
	}, func() (struct{}, bool, error) {
		sendErr := l.transport.Send(f.data)
		switch {
		case sendErr == nil:
			return struct{}{}, false, nil
		case IsRetryable(sendErr):
			lastErr = sendErr
			return struct{}{}, true, nil
		default:
			return struct{}{}, false, sendErr
		}
	})
	if err == nil {
		l.metrics.framesSent.Add(1)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	l.metrics.sendErrors.Add(1)
	if lastErr != nil && errors.Is(err, transport.ErrRetriesExhausted) {
		err = fmt.Errorf("%w: %w", err, lastErr)
	}
	l.logger.Warn().
		Err(err).
		Uint16("id", f.id).
		Uint32("index", f.index).
		Msg("dropping frame after send failure")
}

// receiveLoop reads, decodes and dispatches inbound frames. Malformed
// frames are logged and discarded; nothing here ends the loop except ctx.
func (l *Link) receiveLoop(ctx context.Context) {
	defer func() { l.logger.Info().Msg("receive worker stopped") }()

	idle := time.NewTimer(l.cfg.IdleInterval)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		l.expirePending(time.Now())

		raw, err := l.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Debug().Err(err).Msg("receive failed")
		}

		if len(raw) == 0 {
			idle.Reset(l.cfg.IdleInterval)
			select {
			case <-ctx.Done():
				return
			case <-idle.C:
			}
			continue
		}

		result := l.processFrame(raw)
		l.metrics.countDecode(result)
		if result != NoError {
			l.logger.Warn().
				Stringer("result", result).
				Int("size", len(raw)).
				Msg("discarded inbound frame")
		}
	}
}
