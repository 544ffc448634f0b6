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

package agent

import (
	"context"
	"crypto/tls"
	"net"
	"sync"

	"github.com/winlinvip/rtmpx/core"
	"github.com/winlinvip/rtmpx/kernel"
	"github.com/winlinvip/rtmpx/rtmp"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The source of accepted connections, for example, the kernel.RtmpListeners.
type Listener interface {
	Accept() (*kernel.Accepted, error)
}

// the rtmp server agent, accept the connection from listener,
// select the transport, register it in manager, then serve it.
type Rtmp struct {
	opts      *rtmp.Options
	tlsConfig *tls.Config
	manager   *Manager
	handler   rtmp.Handler
	wait      sync.WaitGroup
}

// The opts is used by each server connection, whose url is ignored,
// and the tls config of it is required for rtmps.
func NewRtmp(opts *rtmp.Options, manager *Manager, handler rtmp.Handler) *Rtmp {
	o := *opts
	o.SetDefaults()

	return &Rtmp{
		opts:      &o,
		tlsConfig: o.TLSConfig,
		manager:   manager,
		handler:   handler,
	}
}

func (v *Rtmp) Manager() *Manager {
	return v.manager
}

// Accept and serve the connections util the listener is disposed,
// or the ctx is done.
func (v *Rtmp) Serve(ctx context.Context, l Listener) error {
	for {
		c, err := l.Accept()
		if err != nil {
			if oe.Cause(err) == kernel.ListenerDisposed || ctx.Err() != nil {
				return nil
			}
			return oe.WithMessage(err, "accept")
		}

		v.wait.Add(1)
		go func() {
			defer v.wait.Done()

			cctx := ol.WithContext(ctx)
			core.Recover(cctx, "rtmp serve", func() error {
				return v.ServeConn(cctx, c)
			})
		}()
	}
}

// Serve the accepted connection, which is closed when done.
func (v *Rtmp) ServeConn(ctx context.Context, c *kernel.Accepted) (err error) {
	ol.Tf(ctx, "rtmp accept %v from %v", c.Conn.RemoteAddr(), c.URL)

	// Reject before the tls handshake.
	if v.manager.Full() {
		c.Conn.Close()
		err = oe.Wrapf(ErrRegistryFull, "reject %v, max %v", c.Conn.RemoteAddr(), v.manager.Max())
		ol.W(ctx, "rtmp", err)
		return nil
	}

	var transport net.Conn
	if err = func() error {
		hctx, cancel := context.WithTimeout(ctx, v.opts.HandshakeTimeout)
		defer cancel()

		transport, err = SelectTransport(hctx, c.URL, c.Conn, v.tlsConfig)
		return err
	}(); err != nil {
		c.Conn.Close()
		return oe.WithMessage(err, "select transport")
	}

	conn := rtmp.NewServerConn(ctx, transport, v.opts, v.handler, v.manager)
	if err = v.manager.Attach(conn); err != nil {
		ol.W(ctx, "rtmp reject", conn, err)
		conn.Close()
		return nil
	}

	return conn.Serve()
}

// Wait for all connections to quit, user should close the manager to
// close all connections.
func (v *Rtmp) Wait() {
	v.wait.Wait()
}
