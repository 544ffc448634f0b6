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
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/winlinvip/rtmpx/core"
	"github.com/winlinvip/rtmpx/kernel"
	"github.com/winlinvip/rtmpx/protocol"
	"github.com/winlinvip/rtmpx/rtmp"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

func TestMain(m *testing.M) {
	core.DiscardLogger()
	os.Exit(m.Run())
}

type testObserver struct {
	disconnects    int32
	callbackErrors int32
}

func (v *testObserver) OnDisconnect(c *rtmp.Conn, cause *rtmp.DisconnectError) {
	atomic.AddInt32(&v.disconnects, 1)
}

func (v *testObserver) OnCallbackError(c *rtmp.Conn, err error) {
	atomic.AddInt32(&v.callbackErrors, 1)
}

func (v *testObserver) Disconnects() int {
	return int(atomic.LoadInt32(&v.disconnects))
}

type echoHandler struct {
	rtmp.NopHandler
}

func (v *echoHandler) OnInvoke(c *rtmp.Conn, m *protocol.Message, p *protocol.Invoke) (interface{}, error) {
	if p.Method == "echo" && len(p.Args) > 0 {
		return p.Args[0], nil
	}
	return v.NopHandler.OnInvoke(c, m, p)
}

// The self-signed certificate for 127.0.0.1.
func selfSign(t *testing.T) (tls.Certificate, *x509.Certificate) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"rtmpx"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:         true,

		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, cert
}

func serverTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		VerifyConnection: func(cs tls.ConnectionState) error {
			return nil
		},
	}
}

func TestSelectTransport(t *testing.T) {
	ctx := context.Background()

	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()

	u, _ := url.Parse("rtmp://127.0.0.1")
	transport, err := SelectTransport(ctx, u, s, nil)
	require.NoError(t, err)
	require.Equal(t, s, transport)

	u, _ = url.Parse("http://127.0.0.1")
	_, err = SelectTransport(ctx, u, s, nil)
	require.Equal(t, rtmp.ErrScheme, oe.Cause(err))

	cert, _ := selfSign(t)
	u, _ = url.Parse("rtmps://127.0.0.1")
	for _, config := range []*tls.Config{
		nil,
		{},
		{Certificates: []tls.Certificate{cert}},
		{VerifyConnection: func(cs tls.ConnectionState) error { return nil }},
	} {
		if _, err = SelectTransport(ctx, u, s, config); oe.Cause(err) != rtmp.ErrCertificate {
			t.Errorf("should fail for certificate, err is %v", err)
		}
	}
}

func TestSelectTransport_TLS(t *testing.T) {
	cert, x509Cert := selfSign(t)

	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()

	roots := x509.NewCertPool()
	roots.AddCert(x509Cert)

	errs := make(chan error, 1)
	go func() {
		tc := tls.Client(c, &tls.Config{RootCAs: roots, ServerName: "127.0.0.1"})
		errs <- tc.HandshakeContext(context.Background())
	}()

	u, _ := url.Parse("rtmps://127.0.0.1")
	transport, err := SelectTransport(context.Background(), u, s, serverTLSConfig(cert))
	require.NoError(t, err)
	require.NoError(t, <-errs)

	_, ok := transport.(*tls.Conn)
	require.True(t, ok)
}

func TestManager(t *testing.T) {
	observer := &testObserver{}
	m := NewManager(2).Chain(observer)
	require.Equal(t, 2, m.Max())
	require.Equal(t, DefaultMaxClients, NewManager(0).Max())

	newConn := func() *rtmp.Conn {
		c, s := net.Pipe()
		t.Cleanup(func() {
			c.Close()
		})
		return rtmp.NewServerConn(context.Background(), s, &rtmp.Options{}, nil, m)
	}

	c0, c1, c2 := newConn(), newConn(), newConn()
	require.NoError(t, m.Attach(c0))
	require.NoError(t, m.Attach(c1))
	require.True(t, m.Full())

	err := m.Attach(c2)
	require.Equal(t, ErrRegistryFull, oe.Cause(err))
	require.Equal(t, 2, m.Len())

	// The rejected connection never notifies the application.
	c2.Close()
	require.Equal(t, 0, observer.Disconnects())

	// Remove exactly once.
	c0.Close()
	c0.Close()
	require.Equal(t, 1, m.Len())
	require.Equal(t, 1, observer.Disconnects())
	require.False(t, m.Full())

	// The closed connection is removed when attached.
	c3 := newConn()
	c3.Close()
	require.NoError(t, m.Attach(c3))
	require.Equal(t, 1, m.Len())
	require.Equal(t, 2, observer.Disconnects())

	var ids []uint64
	m.Range(func(c *rtmp.Conn) bool {
		ids = append(ids, c.ID())
		return true
	})
	require.Equal(t, []uint64{c1.ID()}, ids)

	var broadcasts int
	m.Broadcast(func(c *rtmp.Conn) error {
		broadcasts++
		return nil
	})
	require.Equal(t, 1, broadcasts)

	clients := m.Clients()
	require.Equal(t, 1, len(clients))
	require.Equal(t, c1.ID(), clients[0].ID)
	require.Equal(t, rtmp.StateHandshaking.String(), clients[0].State)

	require.NoError(t, m.Close())
	require.Equal(t, 0, m.Len())
	require.Equal(t, 3, observer.Disconnects())
	require.Equal(t, rtmp.StateClosed, c1.State())
	require.Equal(t, ErrRegistryClosed, m.Attach(newConn()))
}

func TestRtmp_Serve(t *testing.T) {
	cert, x509Cert := selfSign(t)

	ls, err := kernel.NewRtmpListeners([]string{"rtmp://127.0.0.1:0", "rtmps://127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, ls.Listen())

	observer := &testObserver{}
	manager := NewManager(2).Chain(observer)
	server := NewRtmp(&rtmp.Options{TLSConfig: serverTLSConfig(cert)}, manager, &echoHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(ctx, ls)
	}()

	urls := ls.URLs()
	rtmpURL := "rtmp://" + urls[0].Host + "/live"
	rtmpsURL := "rtmps://" + urls[1].Host + "/live"

	roots := x509.NewCertPool()
	roots.AddCert(x509Cert)

	cctx, ccancel := context.WithTimeout(ctx, 3*time.Second)
	defer ccancel()

	var clients []*rtmp.Conn
	for _, opts := range []*rtmp.Options{
		{Url: rtmpURL},
		{Url: rtmpsURL, TLSConfig: &tls.Config{RootCAs: roots}},
	} {
		client, err := rtmp.Dial(cctx, opts, nil, nil)
		require.NoError(t, err)
		defer client.Close()
		clients = append(clients, client)

		_, err = client.Connect(cctx)
		require.NoError(t, err)

		value, err := client.Call(cctx, "echo", nil, opts.Url)
		require.NoError(t, err)
		require.Equal(t, opts.Url, value)
	}
	require.Equal(t, 2, manager.Len())

	// Reject when full.
	_, err = rtmp.Dial(cctx, &rtmp.Options{Url: rtmpURL}, nil, nil)
	require.Error(t, err)
	require.Equal(t, 2, manager.Len())

	clients[0].Close()
	require.Eventually(t, func() bool {
		return manager.Len() == 1 && observer.Disconnects() == 1
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, manager.Close())
	require.Equal(t, 0, manager.Len())
	require.Equal(t, 2, observer.Disconnects())

	require.NoError(t, ls.Close())
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve not quit")
	}
	server.Wait()
}
