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

/*
This the main entrance of rtmpc, the rtmp client to connect and call.
*/
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/winlinvip/rtmpx/amf"
	"github.com/winlinvip/rtmpx/core"
	"github.com/winlinvip/rtmpx/rtmp"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

var signature = fmt.Sprintf("RTMPC/%v", core.Version())

func main() {
	var url, page, swf, flash, method string
	var amf3, insecure, verbose bool
	var timeout time.Duration
	flag.StringVar(&url, "url", "rtmp://127.0.0.1/live", "the rtmp or rtmps url to connect.")
	flag.StringVar(&page, "page", "", "the pageUrl of connect.")
	flag.StringVar(&swf, "swf", "", "the swfUrl of connect.")
	flag.StringVar(&flash, "flash", rtmp.DefaultFlashVersion, "the flashVer of connect.")
	flag.StringVar(&method, "call", "", "the method to call after connected, with the string args.")
	flag.BoolVar(&amf3, "amf3", false, "whether use AMF3 for calls.")
	flag.BoolVar(&insecure, "k", false, "whether skip the verify of server certificate.")
	flag.BoolVar(&verbose, "verbose", false, "whether log the verbose messages.")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "the timeout to wait for response.")
	flag.Usage = func() {
		fmt.Println(signature)
		fmt.Println(fmt.Sprintf("Usage: %v [-url url] [-call method [args...]] [options]", os.Args[0]))
		flag.PrintDefaults()
		fmt.Println(fmt.Sprintf("For example:"))
		fmt.Println(fmt.Sprintf("	    %v -url rtmp://127.0.0.1/live -call echo hello", os.Args[0]))
	}
	flag.Parse()

	core.RewriteLogger(verbose)

	opts := &rtmp.Options{Url: url, PageUrl: page, SwfUrl: swf, FlashVersion: flash}
	if amf3 {
		opts.ObjectEncoding = amf.Amf3
	}
	if insecure {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	ctx := ol.WithContext(context.Background())
	if err := run(ctx, opts, timeout, method, flag.Args()); err != nil {
		ol.E(ctx, "rtmpc failed, err is", err)
		os.Exit(-1)
	}
}

func run(ctx context.Context, opts *rtmp.Options, timeout time.Duration, method string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	observer := &rtmp.ObserverFuncs{
		Disconnect: func(c *rtmp.Conn, cause *rtmp.DisconnectError) {
			ol.T(c.Context(), "disconnect", c, cause)
		},
	}

	c, err := rtmp.Dial(ctx, opts, nil, observer)
	if err != nil {
		return oe.WithMessage(err, "dial")
	}
	defer c.Close()

	var value interface{}
	if value, err = c.Connect(ctx); err != nil {
		return oe.WithMessage(err, "connect")
	}
	ol.T(ctx, "connect ok,", value)

	if method == "" {
		return nil
	}

	values := make([]interface{}, 0, len(args))
	for _, arg := range args {
		values = append(values, arg)
	}

	if value, err = c.Call(ctx, method, nil, values...); err != nil {
		return oe.WithMessage(err, method)
	}
	ol.T(ctx, fmt.Sprintf("call %v ok, result is %v", method, value))

	stats := c.Stats()
	ol.Tf(ctx, "stats in=%vB/%vmsgs, out=%vB/%vmsgs, uptime=%v",
		stats.BytesIn, stats.MessagesIn, stats.BytesOut, stats.MessagesOut, stats.Uptime)
	return nil
}
