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
This is the http api for rtmpd.
*/
package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/winlinvip/rtmpx/agent"
	"github.com/winlinvip/rtmpx/core"
	"github.com/winlinvip/rtmpx/rtmp"

	oh "github.com/ossrs/go-oryx-lib/http"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

const (
	Success          oh.SystemError = 0
	ApiClientIdError oh.SystemError = 100 + iota
	ApiClientNotFound
)

// Handle the api of rtmpd.
func NewApi(ctx ol.Context, manager *agent.Manager) http.Handler {
	handler := http.NewServeMux()

	ol.T(ctx, "handle /api/v1/version")
	handler.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		oh.WriteVersion(w, r, core.Version())
	})

	ol.T(ctx, "handle /api/v1/clients?id=100&action=kick")
	handler.HandleFunc("/api/v1/clients", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("id") == "" {
			oh.WriteData(ctx, w, r, manager.Clients())
			return
		}

		id, err := strconv.ParseUint(q.Get("id"), 10, 64)
		if err != nil {
			oh.WriteCplxError(ctx, w, r, ApiClientIdError, fmt.Sprintf("id is not int, err is %v", err))
			return
		}

		var found *rtmp.Conn
		manager.Range(func(c *rtmp.Conn) bool {
			if c.ID() == id {
				found = c
			}
			return found == nil
		})
		if found == nil {
			oh.WriteCplxError(ctx, w, r, ApiClientNotFound, fmt.Sprintf("client %v not found", id))
			return
		}

		if q.Get("action") == "kick" {
			ol.T(ctx, "api kick client", found)
			found.Close()
		}

		oh.WriteData(ctx, w, r, &agent.Client{
			ID:     found.ID(),
			Remote: found.RemoteAddr().String(),
			State:  found.State().String(),
			Stats:  found.Stats(),
		})
	})

	return handler
}
