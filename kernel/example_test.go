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
The example for kernel.
*/
package kernel_test

import (
	"context"
	"syscall"

	oa "github.com/ossrs/go-oryx-lib/asprocess"
	ol "github.com/ossrs/go-oryx-lib/logger"
	"github.com/winlinvip/rtmpx/kernel"
)

func ExampleWorkerGroup() {
	ctx := ol.WithContext(context.Background())

	// other goroutine to notify worker group to quit.
	closing := make(chan bool, 1)
	// for example, user can use asprocess to watch without exit to write closing.
	oa.WatchNoExit(ctx, oa.Interval, closing)

	// use group to sync workers.
	wg := kernel.NewWorkerGroup()
	defer wg.Close()

	// quit for external events.
	wg.QuitForChan(closing)
	// quit for signals.
	wg.QuitForSignals(ctx, syscall.SIGINT, syscall.SIGTERM)

	// start goroutine to worker, quit when worker quit.
	ls, err := kernel.NewRtmpListeners([]string{"rtmp://:1935"})
	if err != nil {
		return
	}
	if err = ls.Listen(); err != nil {
		return
	}

	wg.ForkGoroutine(func() {
		for {
			c, err := ls.Accept()
			if err != nil {
				return
			}

			// serve conn
			c.Conn.Close()
		}
	}, func() {
		ls.Close()
	})

	// wait for quit.
	wg.Wait()
}

func ExampleRtmpListeners() {
	// create listener by urls, the port defaults to 1935.
	ls, err := kernel.NewRtmpListeners([]string{"rtmp://127.0.0.1", "rtmps://:443"})
	if err != nil {
		return
	}
	defer ls.Close()

	// listen all addresses
	if err = ls.Listen(); err != nil {
		return
	}

	// accept conn from any listeners
	for {
		c, err := ls.Accept()
		if err != nil {
			return
		}

		// select transport by c.URL.Scheme, then serve and close conn
		c.Conn.Close()
	}
}
