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
This the main entrance of rtmpd, the rtmp server with api.
*/
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/winlinvip/rtmpx/agent"
	"github.com/winlinvip/rtmpx/core"
	"github.com/winlinvip/rtmpx/kernel"

	oa "github.com/ossrs/go-oryx-lib/asprocess"
	oe "github.com/ossrs/go-oryx-lib/errors"
	oh "github.com/ossrs/go-oryx-lib/http"
	"github.com/ossrs/go-oryx-lib/https"
	ol "github.com/ossrs/go-oryx-lib/logger"
	oo "github.com/ossrs/go-oryx-lib/options"
)

var signature = core.RtmpxSigServer()

// The tls config for rtmps, the certificate is self-signed.
func newTLSConfig(ctx ol.Context, conf *Config) (*tls.Config, error) {
	m, err := https.NewSelfSignManager(conf.Certificate.Cert, conf.Certificate.Key)
	if err != nil {
		return nil, oe.Wrapf(err, "self sign %v", conf.Certificate.Cert)
	}

	return &tls.Config{
		GetCertificate: m.GetCertificate,
		MinVersion:     tls.VersionTLS12,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if cs.Version < tls.VersionTLS12 {
				return oe.Errorf("tls version %#x not supported", cs.Version)
			}
			ol.Tf(ctx, "rtmps tls ok, version=%#x, cipher=%v, sni=%v",
				cs.Version, tls.CipherSuiteName(cs.CipherSuite), cs.ServerName)
			return nil
		},
	}, nil
}

func main() {
	confFile := oo.ParseArgv("../conf/rtmpd.json", core.Version(), signature)
	fmt.Println(fmt.Sprintf("RTMPD is the rtmp server(%v), config is %v", core.RtmpxSigURL, confFile))

	core.RewriteLogger(false)

	conf := NewConfig()
	if err := conf.Loads(confFile); err != nil {
		ol.E(nil, "Loads config failed, err is", err)
		return
	}
	if err := conf.OpenLogger(); err != nil {
		ol.E(nil, "Open logger failed, err is", err)
		return
	}
	defer conf.Close()

	ctx := ol.WithContext(context.Background())
	ol.T(ctx, fmt.Sprintf("Config ok, %v", conf))

	if err := serve(ctx, conf); err != nil {
		ol.E(ctx, "serve failed, err is", err)
		return
	}

	ol.T(ctx, "serve ok")
}

func serve(ctx context.Context, conf *Config) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := conf.Options()
	for _, l := range conf.Listens {
		if strings.HasPrefix(l, "rtmps://") {
			if opts.TLSConfig, err = newTLSConfig(ctx, conf); err != nil {
				return
			}
			break
		}
	}

	var listener *kernel.RtmpListeners
	if listener, err = kernel.NewRtmpListeners(conf.Listens); err != nil {
		return oe.WithMessage(err, "create listener")
	}
	if err = listener.Listen(); err != nil {
		return oe.WithMessage(err, "listen")
	}

	manager := agent.NewManager(conf.MaxClients)
	defer manager.Close()

	server := agent.NewRtmp(opts, manager, &echoHandler{})

	var apiListener net.Listener
	if conf.Api != "" {
		apiAddr := strings.TrimPrefix(conf.Api, "http://")
		if apiListener, err = net.Listen("tcp", apiAddr); err != nil {
			listener.Close()
			return oe.Wrapf(err, "listen api %v", apiAddr)
		}
	}

	// rtmpd is a asprocess of shell.
	asq := make(chan bool, 1)
	oa.WatchNoExit(ctx, oa.Interval, asq)

	wg := kernel.NewWorkerGroup()
	defer wg.Close()

	wg.QuitForChan(asq)
	wg.QuitForSignals(ctx, syscall.SIGINT, syscall.SIGTERM)

	// rtmp connections
	wg.ForkGoroutine(func() {
		ol.T(ctx, "rtmp server ready,", conf.Listens)
		defer ol.T(ctx, "rtmp server ok")

		if err := server.Serve(ctx, listener); err != nil {
			ol.E(ctx, "rtmp serve failed, err is", err)
		}
	}, func() {
		listener.Close()
		manager.Close()
		server.Wait()
	})

	// control messages
	if apiListener != nil {
		wg.ForkGoroutine(func() {
			ol.T(ctx, "api handler ready,", conf.Api)
			defer ol.T(ctx, "api handler ok")

			oh.Server = signature

			api := &http.Server{Handler: NewApi(ctx, manager)}
			if err := api.Serve(apiListener); err != nil && !wg.Closed() {
				ol.E(ctx, "api serve failed, err is", err)
			}
		}, func() {
			apiListener.Close()
		})
	}

	wg.Wait()
	return
}
