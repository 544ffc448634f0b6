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
	"net/url"

	"github.com/winlinvip/rtmpx/rtmp"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// Select the transport by the scheme of the listen url.
// The rtmp uses the conn as is, while the rtmps does the tls handshake
// as server, which requires the certificate and the validation callback.
func SelectTransport(ctx context.Context, u *url.URL, conn net.Conn, config *tls.Config) (net.Conn, error) {
	switch u.Scheme {
	case "rtmp":
		return conn, nil
	case "rtmps":
		if err := checkTLSConfig(config); err != nil {
			return nil, err
		}

		tc := tls.Server(conn, config)
		if err := tc.HandshakeContext(ctx); err != nil {
			return nil, oe.Wrapf(err, "tls handshake %v", conn.RemoteAddr())
		}
		return tc, nil
	}

	return nil, oe.Wrapf(rtmp.ErrScheme, "scheme %v", u.Scheme)
}

func checkTLSConfig(config *tls.Config) error {
	if config == nil {
		return oe.Wrap(rtmp.ErrCertificate, "no tls config")
	}
	if len(config.Certificates) == 0 && config.GetCertificate == nil && config.GetConfigForClient == nil {
		return oe.Wrap(rtmp.ErrCertificate, "no certificate")
	}
	if config.VerifyPeerCertificate == nil && config.VerifyConnection == nil {
		return oe.Wrap(rtmp.ErrCertificate, "no validation callback")
	}
	return nil
}
