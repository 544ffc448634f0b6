/*
The MIT License (MIT)

Copyright (c) 2016 winlin

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"github.com/winlinvip/rtmpx/amf"
	"github.com/winlinvip/rtmpx/protocol"
	"github.com/winlinvip/rtmpx/rtmp"

	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The default handler of rtmpd, echo the invoke back to client.
type echoHandler struct {
	rtmp.NopHandler
}

func (v *echoHandler) OnConnect(c *rtmp.Conn, params *amf.AsObject) error {
	ol.Tf(c.Context(), "client connect %v, app=%v, pageUrl=%v", c.RemoteAddr(), params.GetString("app"), params.GetString("pageUrl"))
	return nil
}

func (v *echoHandler) OnInvoke(c *rtmp.Conn, m *protocol.Message, p *protocol.Invoke) (interface{}, error) {
	switch p.Method {
	case "echo":
		if len(p.Args) == 1 {
			return p.Args[0], nil
		}
		return p.Args, nil
	case "ping":
		return "pong", nil
	}
	return v.NopHandler.OnInvoke(c, m, p)
}

func (v *echoHandler) OnNotify(c *rtmp.Conn, m *protocol.Message, p *protocol.Notify) error {
	ol.T(c.Context(), "client notify", p.Method, "args", len(p.Args))
	return nil
}
