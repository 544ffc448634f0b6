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
	"crypto/tls"
	"net"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// Dial the url of opts, do handshake and start the read loop, the ctx is the lifetime
// of connection. The rtmps url runs the tls handshake over the tcp connection.
// User should call Connect to connect the app.
func Dial(ctx context.Context, opts *Options, handler Handler, observer Observer) (c *Conn, err error) {
	o := *opts
	o.SetDefaults()
	if err = o.Validate(); err != nil {
		return nil, oe.WithMessage(err, "validate")
	}

	u, err := ParseURL(o.Url)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	var transport net.Conn
	if transport, err = d.DialContext(ctx, "tcp", HostPort(u)); err != nil {
		return nil, oe.Wrapf(err, "dial %v", HostPort(u))
	}
	ol.Tf(ctx, "rtmp dial %v ok, local=%v", u.Host, transport.LocalAddr())

	if u.Scheme == "rtmps" {
		var config *tls.Config
		if o.TLSConfig != nil {
			config = o.TLSConfig.Clone()
		} else {
			config = &tls.Config{}
		}
		if config.ServerName == "" {
			config.ServerName = u.Hostname()
		}

		tc := tls.Client(transport, config)
		if err = tc.HandshakeContext(ctx); err != nil {
			transport.Close()
			return nil, oe.Wrapf(err, "tls handshake %v", u.Host)
		}
		transport = tc
	}

	if c, err = NewClientConn(ctx, transport, &o, handler, observer); err != nil {
		return nil, oe.WithMessage(err, o.Url)
	}
	return
}
