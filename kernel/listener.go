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
This is the rtmp listeners for rtmpx.
*/
package kernel

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The listener is disposed by user.
var ListenerDisposed = oe.New("listener disposed")

// The default port when url not specified.
const DefaultRtmpPort = 1935

// The connection accepted by the listener of URL.
type Accepted struct {
	Conn *net.TCPConn
	// The listen url, for example, rtmps://:443, to select the transport.
	URL *url.URL
}

// The tcp listeners for rtmp and rtmps urls.
// @remark listener will return error ListenerDisposed when reuse a disposed listener.
type RtmpListeners struct {
	// The config and listener objects.
	urls      []*url.URL
	listeners []*net.TCPListener
	// Used to get the connection or error for accept.
	conns  chan *Accepted
	errors chan error
	// Used to ensure all gorutine quit.
	wait *sync.WaitGroup
	// Used to notify all goroutines to quit.
	closing chan bool
	// Used to prevent reuse this object.
	disposed  bool
	reuseLock *sync.Mutex
}

// Parse the listen url, which must be rtmp://host:port or rtmps://host:port,
// where the host is optional and the port defaults to 1935.
func ParseListenURL(s string) (u *url.URL, err error) {
	if u, err = url.Parse(s); err != nil {
		return nil, oe.Wrapf(err, "parse %v", s)
	}

	if u.Scheme != "rtmp" && u.Scheme != "rtmps" {
		return nil, oe.Errorf("%v should prefix with rtmp:// or rtmps://", s)
	}
	if n := strings.Count(s, "://"); n != 1 {
		return nil, oe.Errorf("%v contains %d network identify", s, n)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(DefaultRtmpPort))
	}
	return
}

func NewRtmpListeners(addrs []string) (v *RtmpListeners, err error) {
	if len(addrs) == 0 {
		return nil, oe.New("no listens")
	}

	var urls []*url.URL
	for _, addr := range addrs {
		var u *url.URL
		if u, err = ParseListenURL(addr); err != nil {
			return
		}
		urls = append(urls, u)
	}

	v = &RtmpListeners{
		urls:      urls,
		conns:     make(chan *Accepted),
		errors:    make(chan error),
		wait:      &sync.WaitGroup{},
		closing:   make(chan bool, 1),
		reuseLock: &sync.Mutex{},
	}

	return
}

// The listen urls, the port is filled by the listener when it's zero.
func (v *RtmpListeners) URLs() []*url.URL {
	return v.urls
}

// @remark error ListenerDisposed when listener is disposed.
func (v *RtmpListeners) Listen() (err error) {
	if err = func() error {
		v.reuseLock.Lock()
		defer v.reuseLock.Unlock()

		// user should never listen on a disposed listener
		if v.disposed {
			return ListenerDisposed
		}
		return nil
	}(); err != nil {
		return
	}

	for _, u := range v.urls {
		var l net.Listener
		if l, err = net.Listen("tcp", u.Host); err != nil {
			return oe.Wrapf(err, "listen %v", u)
		}

		tl, ok := l.(*net.TCPListener)
		if !ok {
			l.Close()
			return oe.Errorf("listener %v must be *net.TCPListener", u)
		}
		v.listeners = append(v.listeners, tl)

		// Resolve the random port.
		if addr, ok := tl.Addr().(*net.TCPAddr); ok && u.Port() == "0" {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(addr.Port))
		}
	}

	if len(v.listeners) > 0 {
		v.wait.Add(len(v.listeners))
	}

	for i, l := range v.listeners {
		go func(l *net.TCPListener, u *url.URL) {
			defer v.wait.Done()

			ctx := ol.WithContext(context.Background())
			ol.Tf(ctx, "listener: serve %v at %v", u, l.Addr())

			for {
				if err := v.acceptFrom(ctx, l, u); err != nil {
					if err != ListenerDisposed {
						ol.W(ctx, "listener:", u, "quit, err is", err)
					}
					return
				}
			}
		}(l, v.urls[i])
	}

	return
}

func (v *RtmpListeners) isDisposed() bool {
	v.reuseLock.Lock()
	defer v.reuseLock.Unlock()
	return v.disposed
}

func (v *RtmpListeners) acceptFrom(ctx ol.Context, l *net.TCPListener, u *url.URL) (err error) {
	defer func() {
		if err != nil && err != ListenerDisposed {
			select {
			case v.errors <- err:
			case c := <-v.closing:
				v.closing <- c
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			if err != nil {
				ol.E(ctx, "listener: recover from", r, "and err is", err)
				return
			}

			if r, ok := r.(error); ok {
				err = r
			} else {
				err = fmt.Errorf("system error %v", r)
			}
			ol.E(ctx, "listener: recover from", err)
		}
	}()

	var conn *net.TCPConn
	if conn, err = l.AcceptTCP(); err != nil {
		// when disposed, ignore any error.
		if v.isDisposed() {
			err = ListenerDisposed
			return
		}

		ol.E(ctx, "listener: accept failed, err is", err)
		return
	}

	select {
	case v.conns <- &Accepted{Conn: conn, URL: u}:
	case c := <-v.closing:
		v.closing <- c
		conn.Close()
		return ListenerDisposed
	}

	return
}

// @remark error ListenerDisposed when listener is disposed.
func (v *RtmpListeners) Accept() (c *Accepted, err error) {
	if v.isDisposed() {
		return nil, ListenerDisposed
	}

	var ok bool
	select {
	case c, ok = <-v.conns:
	case err, ok = <-v.errors:
	}

	// when chan closed, the listener is disposed.
	if !ok {
		return nil, ListenerDisposed
	}
	return
}

// io.Closer
// @remark error ListenerDisposed when listener is disposed.
func (v *RtmpListeners) Close() (err error) {
	if err = func() error {
		v.reuseLock.Lock()
		defer v.reuseLock.Unlock()

		// user should close a disposed listener.
		if v.disposed {
			return ListenerDisposed
		}

		// set to disposed to prevent reuse this object.
		v.disposed = true
		return nil
	}(); err != nil {
		return
	}

	// unblock all goroutines
	v.closing <- true

	// interrupt all listeners.
	for _, l := range v.listeners {
		if r := l.Close(); r != nil {
			err = r
		}
	}

	// wait for all listener to quit.
	v.wait.Wait()

	// clear the closing signal.
	<-v.closing

	// close channels to unblock the user goroutine to Accept()
	close(v.conns)
	close(v.errors)

	return
}
