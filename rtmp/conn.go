// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package rtmp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/winlinvip/rtmpx/amf"
	"github.com/winlinvip/rtmpx/core"
	"github.com/winlinvip/rtmpx/protocol"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The state of connection, Handshaking => Connected => Draining => Closed.
type State int32

const (
	StateHandshaking State = iota
	StateConnected
	StateDraining
	StateClosed
)

func (v State) String() string {
	switch v {
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// The id of connections.
var connID uint64

// The rtmp connection, the read loop reads and dispatches messages,
// while the write path is shared by the read loop and the callers.
type Conn struct {
	id     uint64
	ctx    context.Context
	cancel context.CancelFunc

	opts      *Options
	transport net.Conn
	client    bool
	handler   Handler
	observer  Observer

	state int32

	reader *protocol.ChunkReader
	// one message at a time.
	writeLock sync.Mutex
	writer    *protocol.ChunkWriter
	// the last window acknowledgement size sent, under writeLock.
	windowSent uint32

	invocations *Invocations
	// the object encoding for the calls by us.
	encoding uint32

	// the acknowledgement bookkeeping, only used by read loop.
	ackWindow     uint32
	unacked       uint64
	peerBandwidth uint32
	peerLimit     protocol.LimitType

	// the payload bytes received, and the sequence number acked by peer.
	received  uint64
	peerAcked uint32
	msgsIn    uint64
	msgsOut   uint64

	// the connect object of peer.
	paramsLock sync.Mutex
	params     *amf.AsObject

	// the disconnect cause, set once.
	causeLock sync.Mutex
	cause     *DisconnectError
	closed    chan struct{}

	stats statistics
	start time.Time
}

// Create the connection over transport, the ctx is the lifetime of connection.
func newConn(ctx context.Context, transport net.Conn, opts *Options, handler Handler, observer Observer, client bool) *Conn {
	o := *opts
	o.SetDefaults()

	if handler == nil {
		handler = NopHandler{}
	}

	v := &Conn{
		id:          atomic.AddUint64(&connID, 1),
		opts:        &o,
		transport:   transport,
		client:      client,
		handler:     handler,
		observer:    observer,
		reader:      protocol.NewChunkReader(transport),
		writer:      protocol.NewChunkWriter(transport),
		invocations: NewInvocations(),
		encoding:    uint32(o.ObjectEncoding),
		ackWindow:   o.WindowAcknowledgementSize,
		closed:      make(chan struct{}),
		start:       time.Now(),
	}
	v.reader.SetMaxMessageSize(o.MaxMessageSize)

	v.ctx, v.cancel = context.WithCancel(ol.WithContext(ctx))

	// The cancel of ctx closes the connection.
	go func() {
		<-v.ctx.Done()
		v.close("cancelled", v.ctx.Err())
	}()

	return v
}

// Create the server side connection, which is served by Serve.
func NewServerConn(ctx context.Context, transport net.Conn, opts *Options, handler Handler, observer Observer) *Conn {
	return newConn(ctx, transport, opts, handler, observer, false)
}

// Create the client side connection over transport, which is handshaked,
// and the read loop is started.
func NewClientConn(ctx context.Context, transport net.Conn, opts *Options, handler Handler, observer Observer) (*Conn, error) {
	v := newConn(ctx, transport, opts, handler, observer, true)

	if err := v.handshake(); err != nil {
		v.close("handshake", err)
		return nil, oe.WithMessage(err, "client")
	}

	go core.Recover(v.ctx, "rtmp client", func() error {
		return v.serve()
	})

	return v, nil
}

// Serve the server side connection, do handshake and read messages util closed.
// Return nil when closed normally.
func (v *Conn) Serve() (err error) {
	if err = v.handshake(); err != nil {
		v.close("handshake", err)
		return oe.WithMessage(err, "server")
	}

	if err = v.serve(); core.IsNormalQuit(err) {
		return nil
	}
	return
}

func (v *Conn) handshake() (err error) {
	ctx := v.ctx

	// use short handshake timeout.
	if err = v.transport.SetDeadline(time.Now().Add(v.opts.HandshakeTimeout)); err != nil {
		return oe.Wrap(err, "set deadline")
	}

	hs := protocol.NewHandshake()
	if v.client {
		err = hs.Client(v.reader, v.writer)
	} else {
		err = hs.Server(v.reader, v.writer)
	}
	if err != nil {
		return oe.WithMessage(err, "handshake")
	}

	if err = v.transport.SetDeadline(time.Time{}); err != nil {
		return oe.Wrap(err, "clear deadline")
	}

	if !atomic.CompareAndSwapInt32(&v.state, int32(StateHandshaking), int32(StateConnected)) {
		return v.failFast()
	}

	v.stats.start(ctx, v.reader.Bytes, v.writer.Bytes)
	ol.Tf(ctx, "rtmp handshake ok, client=%v, peer=%v", v.client, v.transport.RemoteAddr())
	return
}

// The read loop, close the connection when it's done.
func (v *Conn) serve() (err error) {
	defer func() {
		v.close("read", err)
	}()

	return v.readLoop()
}

func (v *Conn) ID() uint64 {
	return v.id
}

// The context of connection, which is done when closed.
func (v *Conn) Context() context.Context {
	return v.ctx
}

func (v *Conn) IsClient() bool {
	return v.client
}

func (v *Conn) RemoteAddr() net.Addr {
	return v.transport.RemoteAddr()
}

func (v *Conn) Options() *Options {
	return v.opts
}

func (v *Conn) State() State {
	return State(atomic.LoadInt32(&v.state))
}

// The object encoding of the calls sent by us.
func (v *Conn) Encoding() amf.ObjectEncoding {
	return amf.ObjectEncoding(atomic.LoadUint32(&v.encoding))
}

// The connect object of peer, nil for client or not connected.
func (v *Conn) Params() *amf.AsObject {
	v.paramsLock.Lock()
	defer v.paramsLock.Unlock()
	return v.params
}

// Closed when the connection is closed.
func (v *Conn) Closed() <-chan struct{} {
	return v.closed
}

// The disconnect cause, nil if not closed.
func (v *Conn) Cause() *DisconnectError {
	v.causeLock.Lock()
	defer v.causeLock.Unlock()
	return v.cause
}

// Close the connection, without drain the messages.
func (v *Conn) Close() error {
	v.close("closed by local", nil)
	return nil
}

// The error for operations on closed connection.
func (v *Conn) failFast() error {
	if cause := v.Cause(); cause != nil {
		return cause
	}
	return ErrClosed
}

// Close the connection with cause, the first one wins.
func (v *Conn) close(reason string, err error) {
	ctx := v.ctx

	for {
		state := atomic.LoadInt32(&v.state)
		if State(state) >= StateDraining {
			return
		}
		if atomic.CompareAndSwapInt32(&v.state, state, int32(StateDraining)) {
			break
		}
	}

	cause := &DisconnectError{Reason: reason, Err: err}
	v.causeLock.Lock()
	v.cause = cause
	v.causeLock.Unlock()

	v.cancel()
	v.invocations.FailAll(cause)

	if err := v.transport.Close(); err != nil && !core.IsNormalQuit(err) {
		ol.W(ctx, "ignore close transport err", err)
	}
	v.stats.close()

	atomic.StoreInt32(&v.state, int32(StateClosed))
	close(v.closed)

	if core.IsNormalQuit(err) {
		ol.T(ctx, "rtmp closed,", cause)
	} else {
		ol.W(ctx, "rtmp closed,", cause)
	}

	v.notifyDisconnect(cause)
}

// Write the packet over the chunk stream cid, use the prefer cid when zero.
func (v *Conn) writePacket(p protocol.Packet, cid, streamID, timestamp uint32) (err error) {
	if v.State() >= StateDraining {
		return v.failFast()
	}

	var m *protocol.Message
	if m, err = protocol.EncodePacket(p, streamID, timestamp, v.opts.Context); err != nil {
		return oe.WithMessage(err, "encode")
	}
	if cid != 0 {
		m.ChunkStreamID = cid
	}

	if err = v.writeMessage(m, p); err != nil {
		v.close("write", err)
		return err
	}
	return
}

func (v *Conn) writeMessage(m *protocol.Message, p protocol.Packet) (err error) {
	v.writeLock.Lock()
	defer v.writeLock.Unlock()

	if err = v.writer.WriteMessage(m); err != nil {
		return oe.WithMessage(err, fmt.Sprintf("write %v", m))
	}
	atomic.AddUint64(&v.msgsOut, 1)

	// The chunk size takes effect after the message is sent.
	switch p := p.(type) {
	case *protocol.SetChunkSize:
		if err = v.writer.SetChunkSize(uint32(p.ChunkSize)); err != nil {
			return
		}
	case *protocol.WindowAcknowledgementSize:
		v.windowSent = uint32(p.Ack)
	}
	return
}

// Call the method of peer, and wait for the result.
func (v *Conn) Call(ctx context.Context, method string, header interface{}, args ...interface{}) (interface{}, error) {
	return v.CallOn(ctx, protocol.CidOverConnection, 0, method, header, args...)
}

// Call the method over the chunk stream cid and message stream, and wait for the result,
// which is the first argument of the _result, or the header when no argument.
// The InvokeError is returned for _error.
func (v *Conn) CallOn(ctx context.Context, cid, streamID uint32, method string, header interface{}, args ...interface{}) (value interface{}, err error) {
	var pending *Pending
	if pending, err = v.invocations.Create(); err != nil {
		return nil, err
	}

	p := protocol.NewInvoke(v.Encoding(), method, float64(pending.ID()), header, args...)
	if err = v.writePacket(p, cid, streamID, 0); err != nil {
		v.invocations.Complete(pending.ID(), nil, err)
		return nil, oe.WithMessage(err, method)
	}

	if value, err = pending.Wait(ctx); err != nil && ctx.Err() != nil {
		v.invocations.Cancel(pending.ID(), err)
	}
	if err, ok := err.(*InvokeError); ok && err.Method == "" {
		err.Method = method
	}
	return
}

// Invoke the method without response, the invoke id is 0.
func (v *Conn) Invoke(method string, header interface{}, args ...interface{}) error {
	p := protocol.NewInvoke(v.Encoding(), method, 0, header, args...)
	return v.writePacket(p, 0, 0, 0)
}

// Send the data message over stream.
func (v *Conn) Notify(streamID uint32, method string, args ...interface{}) error {
	p := protocol.NewNotify(v.Encoding(), method, args...)
	return v.writePacket(p, 0, streamID, 0)
}

func (v *Conn) WriteAudio(streamID, timestamp uint32, data []byte) error {
	return v.writePacket(protocol.NewAudioData(data), 0, streamID, timestamp)
}

func (v *Conn) WriteVideo(streamID, timestamp uint32, data []byte) error {
	return v.writePacket(protocol.NewVideoData(data), 0, streamID, timestamp)
}

// Write the packet, for example, the user control message.
func (v *Conn) WritePacket(p protocol.Packet, streamID, timestamp uint32) error {
	return v.writePacket(p, 0, streamID, timestamp)
}

// Send the ping request, the peer responses with the same timestamp.
func (v *Conn) Ping() error {
	ts := uint32(time.Since(v.start) / time.Millisecond)
	return v.writePacket(protocol.NewUserControl(protocol.EventPingRequest, ts), 0, 0, 0)
}

// Send the connect command, return the information object of peer.
func (v *Conn) Connect(ctx context.Context) (interface{}, error) {
	opts := v.opts

	// Use large chunk to send messages.
	if err := v.writePacket(protocol.NewSetChunkSize(int64(opts.ChunkLength)), 0, 0, 0); err != nil {
		return nil, oe.WithMessage(err, "set chunk size")
	}

	header := amf.NewAsObject().
		Set("app", opts.AppName).
		Set("flashVer", opts.FlashVersion).
		Set("swfUrl", opts.SwfUrl).
		Set("tcUrl", opts.Url).
		Set("fpad", false).
		Set("capabilities", float64(239)).
		Set("audioCodecs", float64(3575)).
		Set("videoCodecs", float64(252)).
		Set("videoFunction", float64(1)).
		Set("pageUrl", opts.PageUrl).
		Set("objectEncoding", float64(opts.ObjectEncoding))

	// The connect is always AMF0.
	pending, err := v.invocations.Create()
	if err != nil {
		return nil, err
	}

	p := protocol.NewInvoke(amf.Amf0, protocol.CommandConnect, float64(pending.ID()), header)
	if err = v.writePacket(p, 0, 0, 0); err != nil {
		v.invocations.Complete(pending.ID(), nil, err)
		return nil, oe.WithMessage(err, "connect")
	}

	value, err := pending.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		v.invocations.Cancel(pending.ID(), err)
	}
	if err, ok := err.(*InvokeError); ok {
		err.Method = protocol.CommandConnect
	}
	return value, err
}

// The statistic of connection.
func (v *Conn) Stats() *Stats {
	in, out := v.stats.kbps()
	return &Stats{
		BytesIn:     v.reader.Bytes(),
		BytesOut:    v.writer.Bytes(),
		PayloadIn:   atomic.LoadUint64(&v.received),
		MessagesIn:  atomic.LoadUint64(&v.msgsIn),
		MessagesOut: atomic.LoadUint64(&v.msgsOut),
		PeerAcked:   atomic.LoadUint32(&v.peerAcked),
		Pending:     v.invocations.Len(),
		KbpsIn:      in,
		KbpsOut:     out,
		Uptime:      time.Since(v.start),
	}
}

func (v *Conn) String() string {
	return fmt.Sprintf("conn %v %v, client=%v, peer=%v", v.id, v.State(), v.client, v.transport.RemoteAddr())
}
