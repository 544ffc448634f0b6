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
	"runtime/debug"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The observer of connection, which is injected when create the connection.
type Observer interface {
	// Notify once when the connection is closed.
	OnDisconnect(c *Conn, cause *DisconnectError)
	// The error or panic of handler.
	OnCallbackError(c *Conn, err error)
}

// The observer by functions, nil function is ignored.
type ObserverFuncs struct {
	Disconnect    func(c *Conn, cause *DisconnectError)
	CallbackError func(c *Conn, err error)
}

func (v *ObserverFuncs) OnDisconnect(c *Conn, cause *DisconnectError) {
	if v.Disconnect != nil {
		v.Disconnect(c, cause)
	}
}

func (v *ObserverFuncs) OnCallbackError(c *Conn, err error) {
	if v.CallbackError != nil {
		v.CallbackError(c, err)
	}
}

func (v *Conn) notifyDisconnect(cause *DisconnectError) {
	if v.observer == nil {
		return
	}

	defer v.recoverObserver("disconnect")
	v.observer.OnDisconnect(v, cause)
}

func (v *Conn) notifyCallbackError(err error) {
	ctx := v.ctx

	if v.observer == nil {
		ol.W(ctx, "rtmp callback err", err)
		return
	}

	defer v.recoverObserver("callback error")
	v.observer.OnCallbackError(v, err)
}

// The observer should never panic, log it.
func (v *Conn) recoverObserver(name string) {
	ctx := v.ctx

	if r := recover(); r != nil {
		ol.E(ctx, oe.Errorf("observer %v panic %v", name, r), string(debug.Stack()))
	}
}
