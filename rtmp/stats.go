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
	"sync"
	"time"

	"github.com/ossrs/go-oryx-lib/kxps"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The statistic of connection.
type Stats struct {
	// The bytes on wire, include the handshake.
	BytesIn  uint64 `json:"recv_bytes"`
	BytesOut uint64 `json:"send_bytes"`
	// The payload bytes received, for acknowledgement.
	PayloadIn   uint64 `json:"recv_payload"`
	MessagesIn  uint64 `json:"recv_msgs"`
	MessagesOut uint64 `json:"send_msgs"`
	// The sequence number of the last acknowledgement from peer.
	PeerAcked uint32 `json:"peer_acked"`
	// The number of calls waiting for response.
	Pending int `json:"pending"`
	// The kbps in last 30s.
	KbpsIn  float64       `json:"recv_30s"`
	KbpsOut float64       `json:"send_30s"`
	Uptime  time.Duration `json:"uptime"`
}

// The source of kbps by function.
type bytesSource func() uint64

func (v bytesSource) TotalBytes() uint64 {
	return v()
}

// The kbps sampler, started when connected.
type statistics struct {
	lock    sync.Mutex
	started bool
	in      kxps.Kbps
	out     kxps.Kbps
}

func (v *statistics) start(ctx context.Context, in, out bytesSource) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.started {
		return
	}

	v.in = kxps.NewKbps(ctx, in)
	v.out = kxps.NewKbps(ctx, out)
	if err := v.in.Start(); err != nil {
		ol.W(ctx, "ignore kbps in err", err)
	}
	if err := v.out.Start(); err != nil {
		ol.W(ctx, "ignore kbps out err", err)
	}
	v.started = true
}

// The kbps in last 30s, zero when not started.
func (v *statistics) kbps() (in, out float64) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.started {
		return
	}
	return v.in.Kbps30s(), v.out.Kbps30s()
}

func (v *statistics) close() {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.started {
		return
	}

	v.started = false
	_ = v.in.Close()
	_ = v.out.Close()
}
