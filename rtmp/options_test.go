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
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/winlinvip/rtmpx/amf"
	"github.com/winlinvip/rtmpx/protocol"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

func TestOptions_SetDefaults(t *testing.T) {
	v := &Options{Url: "rtmp://127.0.0.1/live/livestream"}
	v.SetDefaults()

	require.Equal(t, uint32(4192), v.ChunkLength)
	require.Equal(t, uint32(2500000), v.WindowAcknowledgementSize)
	require.Equal(t, uint32(2500000), v.PeerBandwidth)
	require.Equal(t, protocol.Dynamic, v.LimitType())
	require.Equal(t, "live", v.AppName)
	require.Equal(t, DefaultFlashVersion, v.FlashVersion)
	require.Equal(t, uint32(protocol.DefaultMaxMessageSize), v.MaxMessageSize)
	require.Equal(t, protocol.HandshakeTimeout, v.HandshakeTimeout)
	require.NoError(t, v.Validate())

	// Never overwrite the user options.
	v = &Options{Url: "rtmps://ossrs.net/live", AppName: "demo-app", ChunkLength: 60000, PeerBandwidthLimit: "hard"}
	v.SetDefaults()
	require.Equal(t, "demo-app", v.AppName)
	require.Equal(t, uint32(60000), v.ChunkLength)
	require.Equal(t, protocol.Hard, v.LimitType())
	require.NoError(t, v.Validate())
}

func TestOptions_Validate(t *testing.T) {
	for _, url := range []string{"http://127.0.0.1/live", "rtmpt://127.0.0.1", "127.0.0.1:1935"} {
		v := &Options{Url: url}
		v.SetDefaults()
		if err := v.Validate(); oe.Cause(err) != ErrScheme {
			t.Errorf("%v should fail, err is %v", url, err)
		}
	}

	for _, v := range []*Options{
		{Url: "rtmp://"},
		{Url: "rtmp://127.0.0.1", ChunkLength: 100},
		{Url: "rtmp://127.0.0.1", PeerBandwidthLimit: "none"},
		{Url: "rtmp://127.0.0.1", ObjectEncoding: amf.ObjectEncoding(1)},
	} {
		v.SetDefaults()
		if err := v.Validate(); err == nil {
			t.Errorf("%+v should fail", v)
		}
	}
}

func TestParseURL(t *testing.T) {
	u, err := ParseURL("rtmp://127.0.0.1/live")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:1935", HostPort(u))

	u, err = ParseURL("rtmps://ossrs.net:443/live")
	require.NoError(t, err)
	require.Equal(t, "ossrs.net:443", HostPort(u))

	for _, s := range []string{"soft", "Soft", "hard", "dynamic", ""} {
		if _, err := ParseLimitType(s); err != nil {
			t.Errorf("%v should ok, err is %v", s, err)
		}
	}
}

func TestErrors(t *testing.T) {
	cause := &DisconnectError{Reason: "read", Err: io.EOF}
	require.True(t, errors.Is(cause, io.EOF))
	require.Contains(t, cause.Error(), "read")

	closed := &DisconnectError{Reason: "closed by local"}
	require.True(t, errors.Is(closed, ErrClosed))

	ie := &InvokeError{Method: "echo", Code: protocol.StatusCodeCallFailed}
	require.Equal(t, ErrInvoke, oe.Cause(ie))
	require.Equal(t, ErrInvoke, oe.Cause(oe.WithMessage(ie, "call")))
	require.True(t, errors.Is(ie, ErrInvoke))
}
