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
	"crypto/tls"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/winlinvip/rtmpx/amf"
	"github.com/winlinvip/rtmpx/protocol"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

const (
	// The default rtmp port.
	DefaultPort = 1935
	// The outbound chunk size offered to peer.
	DefaultChunkLength = 4192
	// The bytes between acknowledgements.
	DefaultWindowAcknowledgementSize = 2500000
	DefaultPeerBandwidth             = 2500000
	DefaultPeerBandwidthLimit        = "dynamic"
	DefaultFlashVersion              = "WIN 21,0,0,174"
)

// The options for connection, both client and server.
type Options struct {
	// The url, for example, rtmp://127.0.0.1/live or rtmps://ossrs.net:443/live.
	Url string
	// The chunk size to send messages.
	ChunkLength uint32
	// Send acknowledgement for every window bytes received.
	WindowAcknowledgementSize uint32
	// The bandwidth and limit type, hard, soft or dynamic, to set for peer.
	PeerBandwidth      uint32
	PeerBandwidthLimit string

	// The opaque strings for connect, no validation.
	AppName      string
	PageUrl      string
	SwfUrl       string
	FlashVersion string

	// The encoding for commands sent by us.
	ObjectEncoding amf.ObjectEncoding
	// Optional, to encode and decode the typed objects.
	Context *amf.SerializationContext
	// The tls config for rtmps, which carries the certificate and validation callback.
	TLSConfig *tls.Config

	// The message larger than it is a framing error.
	MaxMessageSize   uint32
	HandshakeTimeout time.Duration
}

// Fill the default values when not set.
func (v *Options) SetDefaults() {
	if v.ChunkLength == 0 {
		v.ChunkLength = DefaultChunkLength
	}
	if v.WindowAcknowledgementSize == 0 {
		v.WindowAcknowledgementSize = DefaultWindowAcknowledgementSize
	}
	if v.PeerBandwidth == 0 {
		v.PeerBandwidth = DefaultPeerBandwidth
	}
	if v.PeerBandwidthLimit == "" {
		v.PeerBandwidthLimit = DefaultPeerBandwidthLimit
	}
	if v.FlashVersion == "" {
		v.FlashVersion = DefaultFlashVersion
	}
	if v.MaxMessageSize == 0 {
		v.MaxMessageSize = protocol.DefaultMaxMessageSize
	}
	if v.HandshakeTimeout == 0 {
		v.HandshakeTimeout = protocol.HandshakeTimeout
	}
	if v.AppName == "" && v.Url != "" {
		if u, err := url.Parse(v.Url); err == nil {
			v.AppName = strings.Split(strings.TrimPrefix(u.Path, "/"), "/")[0]
		}
	}
}

// Validate the options, the scheme must be rtmp or rtmps.
func (v *Options) Validate() (err error) {
	if _, err = ParseURL(v.Url); err != nil {
		return
	}

	if v.ChunkLength < protocol.DefaultChunkSize || v.ChunkLength > protocol.MaxChunkSize {
		return oe.Errorf("chunk length %v should in [%v, %v]", v.ChunkLength, protocol.DefaultChunkSize, protocol.MaxChunkSize)
	}
	if v.WindowAcknowledgementSize == 0 {
		return oe.New("window acknowledgement size should not be zero")
	}
	if _, err = ParseLimitType(v.PeerBandwidthLimit); err != nil {
		return
	}
	if v.ObjectEncoding != amf.Amf0 && v.ObjectEncoding != amf.Amf3 {
		return oe.Errorf("object encoding %v", v.ObjectEncoding)
	}

	return
}

// The limit type of peer bandwidth.
func (v *Options) LimitType() protocol.LimitType {
	t, _ := ParseLimitType(v.PeerBandwidthLimit)
	return t
}

// Parse the limit type, hard, soft or dynamic.
func ParseLimitType(s string) (protocol.LimitType, error) {
	switch strings.ToLower(s) {
	case "hard":
		return protocol.Hard, nil
	case "soft":
		return protocol.Soft, nil
	case "dynamic", "":
		return protocol.Dynamic, nil
	}
	return protocol.Dynamic, oe.Errorf("invalid limit type %v", s)
}

// Parse the rtmp or rtmps url, the port defaults to 1935.
func ParseURL(s string) (u *url.URL, err error) {
	if u, err = url.Parse(s); err != nil {
		return nil, oe.Wrapf(err, "parse %v", s)
	}

	if u.Scheme != "rtmp" && u.Scheme != "rtmps" {
		return nil, oe.Wrapf(ErrScheme, "scheme \"%v\" must be one of rtmp:// or rtmps://", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, oe.Errorf("no host of %v", s)
	}
	return
}

// The host:port of url, use the default port when not specified.
func HostPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = strconv.Itoa(DefaultPort)
	}
	return net.JoinHostPort(u.Hostname(), port)
}
