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
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/winlinvip/rtmpx/amf"
	"github.com/winlinvip/rtmpx/protocol"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The application handler for messages from peer.
// The error or panic of handler is reported to observer, which never closes the connection.
type Handler interface {
	// The invoke request from peer, the result is sent back by _result, or
	// _error when err is not nil, if the invoke id is not zero.
	// @remark Use InvokeError to specify the code of _error.
	OnInvoke(c *Conn, m *protocol.Message, p *protocol.Invoke) (result interface{}, err error)
	// The data message from peer.
	OnNotify(c *Conn, m *protocol.Message, p *protocol.Notify) error
	// The audio or video message.
	OnMedia(c *Conn, m *protocol.Message) error
	// The user control message, the ping request is already responsed.
	OnUserControl(c *Conn, p *protocol.UserControl) error
}

// The optional handler to check the connect of client, the connection is
// rejected when error.
type ConnectHandler interface {
	OnConnect(c *Conn, params *amf.AsObject) error
}

// The handler which rejects the invokes and drops other messages.
type NopHandler struct{}

func (v NopHandler) OnInvoke(c *Conn, m *protocol.Message, p *protocol.Invoke) (interface{}, error) {
	return nil, &InvokeError{
		Method:      p.Method,
		Code:        protocol.StatusCodeCallFailed,
		Description: fmt.Sprintf("method %v not found", p.Method),
	}
}

func (v NopHandler) OnNotify(c *Conn, m *protocol.Message, p *protocol.Notify) error {
	return nil
}

func (v NopHandler) OnMedia(c *Conn, m *protocol.Message) error {
	return nil
}

func (v NopHandler) OnUserControl(c *Conn, p *protocol.UserControl) error {
	return nil
}

// Read messages util error, the control messages are processed before the next message.
func (v *Conn) readLoop() (err error) {
	for {
		var m *protocol.Message
		if m, err = v.reader.ReadMessage(); err != nil {
			return oe.WithMessage(err, "read message")
		}
		atomic.AddUint64(&v.msgsIn, 1)

		if err = v.acknowledge(m); err != nil {
			return oe.WithMessage(err, "acknowledge")
		}

		if err = v.dispatch(m); err != nil {
			return oe.WithMessage(err, fmt.Sprintf("dispatch %v", m))
		}
	}
}

// Send the acknowledgement when the payload bytes since last one reach the window.
func (v *Conn) acknowledge(m *protocol.Message) (err error) {
	n := uint64(len(m.Payload))
	total := atomic.AddUint64(&v.received, n)

	v.unacked += n
	if v.ackWindow == 0 || v.unacked < uint64(v.ackWindow) {
		return
	}
	v.unacked = 0

	return v.writePacket(&protocol.Acknowledgement{SequenceNumber: protocol.Uint32(total)}, 0, 0, 0)
}

func (v *Conn) dispatch(m *protocol.Message) (err error) {
	ctx := v.ctx

	var p protocol.Packet
	if p, err = protocol.DecodePacket(m, v.opts.Context); err != nil {
		if oe.Cause(err) == protocol.ErrUnknownMessage {
			ol.W(ctx, "ignore message", m)
			return nil
		}
		return
	}

	switch p := p.(type) {
	case *protocol.SetChunkSize:
		ol.Tf(ctx, "peer set chunk size %v to %v", v.reader.ChunkSize(), p.ChunkSize)
		return v.reader.SetChunkSize(uint32(p.ChunkSize))
	case *protocol.WindowAcknowledgementSize:
		v.ackWindow = uint32(p.Ack)
	case *protocol.SetPeerBandwidth:
		return v.onPeerBandwidth(p)
	case *protocol.Abort:
		v.reader.Abort(uint32(p.ChunkStreamID))
	case *protocol.Acknowledgement:
		atomic.StoreUint32(&v.peerAcked, uint32(p.SequenceNumber))
	case *protocol.UserControl:
		if p.Event() == protocol.EventPingRequest {
			pong := protocol.NewUserControl(protocol.EventPingResponse, p.Values...)
			if err = v.writePacket(pong, 0, 0, 0); err != nil {
				return
			}
		}
		_ = v.callback("user control", func() error {
			return v.handler.OnUserControl(v, p)
		})
	case *protocol.MediaData:
		_ = v.callback("media", func() error {
			return v.handler.OnMedia(v, m)
		})
	case *protocol.Notify:
		_ = v.callback("notify", func() error {
			return v.handler.OnNotify(v, m, p)
		})
	case *protocol.Invoke:
		return v.onInvoke(m, p)
	}

	return
}

// 5.6. Set Peer Bandwidth (6)
// The peer SHOULD respond with a Window Acknowledgement Size message
// if the window size is different from the last one sent to the sender.
func (v *Conn) onPeerBandwidth(p *protocol.SetPeerBandwidth) (err error) {
	limit := protocol.LimitType(p.LimitType)

	// The dynamic is treated as hard if the previous one is hard, or ignored.
	if limit == protocol.Dynamic {
		if v.peerBandwidth == 0 || v.peerLimit != protocol.Hard {
			return
		}
		limit = protocol.Hard
	}

	bandwidth := uint32(p.Bandwidth)
	if limit == protocol.Soft && v.peerBandwidth != 0 && v.peerBandwidth < bandwidth {
		bandwidth = v.peerBandwidth
	}
	v.peerBandwidth, v.peerLimit = bandwidth, limit

	v.writeLock.Lock()
	changed := v.windowSent != bandwidth
	v.writeLock.Unlock()

	if !changed {
		return
	}
	return v.writePacket(&protocol.WindowAcknowledgementSize{Ack: protocol.Uint32(bandwidth)}, 0, 0, 0)
}

func (v *Conn) onInvoke(m *protocol.Message, p *protocol.Invoke) (err error) {
	if p.IsResponse() {
		value := responseValue(p)

		var invokeErr error
		if p.Method == protocol.CommandError {
			invokeErr = newInvokeError(value)
		}

		if !v.invocations.Complete(uint32(p.InvokeID), value, invokeErr) {
			ol.W(v.ctx, "ignore response", p.Method, "of invoke", p.InvokeID)
		}
		return
	}

	if p.Method == protocol.CommandConnect && !v.client {
		return v.onConnect(p)
	}

	var result interface{}
	err = v.callback("invoke "+p.Method, func() (err error) {
		result, err = v.handler.OnInvoke(v, m, p)
		return
	})

	// No response required.
	if p.InvokeID == 0 {
		return nil
	}

	if err != nil {
		return v.respondError(m, p, protocol.StatusCodeCallFailed, err)
	}

	res := protocol.NewInvoke(p.Encoding, protocol.CommandResult, p.InvokeID, nil, result)
	return v.writePacket(res, m.ChunkStreamID, m.StreamID, 0)
}

// Response the connect of client, set the window, bandwidth and chunk size.
func (v *Conn) onConnect(p *protocol.Invoke) (err error) {
	ctx := v.ctx

	params, ok := p.Header.(*amf.AsObject)
	if !ok {
		params = amf.NewAsObject()
	}

	v.paramsLock.Lock()
	v.params = params
	v.paramsLock.Unlock()

	encoding := amf.Amf0
	if n, ok := params.GetNumber("objectEncoding"); ok && n == float64(amf.Amf3) {
		encoding = amf.Amf3
	}
	atomic.StoreUint32(&v.encoding, uint32(encoding))

	ol.Tf(ctx, "rtmp connect app=%v, tcUrl=%v, flashVer=%v, encoding=%v",
		params.GetString("app"), params.GetString("tcUrl"), params.GetString("flashVer"), encoding)

	if h, ok := v.handler.(ConnectHandler); ok {
		if err = v.callback("connect", func() error {
			return h.OnConnect(v, params)
		}); err != nil {
			m := &protocol.Message{ChunkStreamID: protocol.CidOverConnection}
			if r := v.respondError(m, p, protocol.StatusCodeConnectRejected, err); r != nil {
				return r
			}
			return oe.WithMessage(err, "connect rejected")
		}
	}

	opts := v.opts
	for _, pkt := range []protocol.Packet{
		&protocol.WindowAcknowledgementSize{Ack: protocol.Uint32(opts.WindowAcknowledgementSize)},
		protocol.NewSetPeerBandwidth(opts.PeerBandwidth, opts.LimitType()),
		protocol.NewSetChunkSize(int64(opts.ChunkLength)),
	} {
		if err = v.writePacket(pkt, 0, 0, 0); err != nil {
			return oe.WithMessage(err, fmt.Sprintf("connect %v", pkt.MessageType()))
		}
	}

	properties := amf.NewAsObject().
		Set("fmsVer", protocol.SigFmsVer).
		Set("capabilities", float64(protocol.SigCapabilities)).
		Set("mode", float64(protocol.SigMode))
	information := amf.NewAsObject().
		Set(protocol.StatusLevel, protocol.StatusLevelStatus).
		Set(protocol.StatusCode, protocol.StatusCodeConnectSuccess).
		Set(protocol.StatusDescription, "Connection succeeded.").
		Set(protocol.StatusObjectEncoding, float64(encoding))

	res := protocol.NewInvoke(p.Encoding, protocol.CommandResult, p.InvokeID, properties, information)
	return v.writePacket(res, protocol.CidOverConnection, 0, 0)
}

// Response the _error with the information object.
func (v *Conn) respondError(m *protocol.Message, p *protocol.Invoke, code string, err error) error {
	description := err.Error()

	var ie *InvokeError
	if errors.As(err, &ie) {
		code, description = ie.Code, ie.Description
	}

	information := amf.NewAsObject().
		Set(protocol.StatusLevel, protocol.StatusLevelError).
		Set(protocol.StatusCode, code).
		Set(protocol.StatusDescription, description)

	res := protocol.NewInvoke(p.Encoding, protocol.CommandError, p.InvokeID, nil, information)
	return v.writePacket(res, m.ChunkStreamID, m.StreamID, 0)
}

// The value of response, the first argument or the header.
func responseValue(p *protocol.Invoke) interface{} {
	if len(p.Args) > 0 {
		return p.Args[0]
	}
	return p.Header
}

func newInvokeError(value interface{}) *InvokeError {
	v := &InvokeError{Value: value}
	if o, ok := value.(*amf.AsObject); ok {
		v.Code = o.GetString(protocol.StatusCode)
		v.Description = o.GetString(protocol.StatusDescription)
	}
	return v
}

// Call the handler, recover from panic and report the error to observer.
// The InvokeError is not reported, which is the _error response.
func (v *Conn) callback(name string, f func() error) (err error) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = oe.Errorf("%v panic %v", name, r)
			}
		}()
		err = f()
	}()

	if err == nil {
		return
	}

	if oe.Cause(err) != ErrInvoke {
		v.notifyCallbackError(oe.WithMessage(err, name))
	}
	return
}
