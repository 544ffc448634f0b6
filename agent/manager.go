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
	"sync"

	"github.com/winlinvip/rtmpx/rtmp"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The default max clients.
const DefaultMaxClients = 5

// The client info for api.
type Client struct {
	ID     uint64      `json:"id"`
	Remote string      `json:"remote"`
	App    string      `json:"app,omitempty"`
	TcUrl  string      `json:"tcUrl,omitempty"`
	State  string      `json:"state"`
	Stats  *rtmp.Stats `json:"stats"`
}

// The registry of rtmp connections, bounded by the max clients.
// It's the observer of connections, to remove the connection when disconnect,
// then notify the application observer.
type Manager struct {
	max      int
	observer rtmp.Observer

	lock   sync.Mutex
	conns  map[uint64]*rtmp.Conn
	closed bool
}

func NewManager(max int) *Manager {
	if max <= 0 {
		max = DefaultMaxClients
	}

	return &Manager{
		max:   max,
		conns: make(map[uint64]*rtmp.Conn),
	}
}

// Chain the application observer, which is notified after the registry.
func (v *Manager) Chain(observer rtmp.Observer) *Manager {
	v.observer = observer
	return v
}

func (v *Manager) Max() int {
	return v.max
}

func (v *Manager) Len() int {
	v.lock.Lock()
	defer v.lock.Unlock()
	return len(v.conns)
}

// Whether no more connections could be attached.
func (v *Manager) Full() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.closed || len(v.conns) >= v.max
}

// Attach the connection, which must use the manager as its observer.
// @remark The connection is not closed when attach failed.
func (v *Manager) Attach(c *rtmp.Conn) error {
	if err := func() error {
		v.lock.Lock()
		defer v.lock.Unlock()

		if v.closed {
			return ErrRegistryClosed
		}
		if len(v.conns) >= v.max {
			return oe.Wrapf(ErrRegistryFull, "max %v", v.max)
		}

		v.conns[c.ID()] = c
		return nil
	}(); err != nil {
		return err
	}

	// The connection may be closed before attached.
	select {
	case <-c.Closed():
		if v.remove(c) {
			v.notifyDisconnect(c, c.Cause())
		}
	default:
	}

	return nil
}

// Remove the connection, return false if not found.
func (v *Manager) remove(c *rtmp.Conn) bool {
	v.lock.Lock()
	defer v.lock.Unlock()

	if _, ok := v.conns[c.ID()]; !ok {
		return false
	}
	delete(v.conns, c.ID())
	return true
}

// Iterate the connections util fn returns false.
func (v *Manager) Range(fn func(c *rtmp.Conn) bool) {
	for _, c := range v.snapshot() {
		if !fn(c) {
			return
		}
	}
}

// Apply fn to each connection, for example, to notify all clients.
// The error of connection is logged and ignored.
func (v *Manager) Broadcast(fn func(c *rtmp.Conn) error) {
	for _, c := range v.snapshot() {
		if err := fn(c); err != nil {
			ol.W(c.Context(), "ignore broadcast err", err)
		}
	}
}

func (v *Manager) Clients() []*Client {
	conns := v.snapshot()

	clients := make([]*Client, 0, len(conns))
	for _, c := range conns {
		client := &Client{
			ID:     c.ID(),
			Remote: c.RemoteAddr().String(),
			State:  c.State().String(),
			Stats:  c.Stats(),
		}
		if params := c.Params(); params != nil {
			client.App = params.GetString("app")
			client.TcUrl = params.GetString("tcUrl")
		}
		clients = append(clients, client)
	}
	return clients
}

func (v *Manager) snapshot() []*rtmp.Conn {
	v.lock.Lock()
	defer v.lock.Unlock()

	conns := make([]*rtmp.Conn, 0, len(v.conns))
	for _, c := range v.conns {
		conns = append(conns, c)
	}
	return conns
}

// interface io.Closer
// Close all connections, and reject the new ones.
func (v *Manager) Close() error {
	v.lock.Lock()
	v.closed = true
	v.lock.Unlock()

	for _, c := range v.snapshot() {
		_ = c.Close()
	}
	return nil
}

// interface rtmp.Observer
func (v *Manager) OnDisconnect(c *rtmp.Conn, cause *rtmp.DisconnectError) {
	if v.remove(c) {
		v.notifyDisconnect(c, cause)
	}
}

// interface rtmp.Observer
func (v *Manager) OnCallbackError(c *rtmp.Conn, err error) {
	if v.observer == nil {
		ol.W(c.Context(), "rtmp callback err", err)
		return
	}
	v.observer.OnCallbackError(c, err)
}

func (v *Manager) notifyDisconnect(c *rtmp.Conn, cause *rtmp.DisconnectError) {
	ol.Tf(c.Context(), "registry remove %v, clients=%v, cause %v", c.ID(), v.Len(), cause)

	if v.observer != nil {
		v.observer.OnDisconnect(c, cause)
	}
}
