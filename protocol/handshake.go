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

package protocol

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/winlinvip/rtmpx/core"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The size of C1/S1/C2/S2.
const handshakeSize = 1536

// The plaintext rtmp version.
const handshakeVersion = 0x03

// bytes for simple handshake, the complex handshake is not supported,
// for the peer always fallback to the simple one.
type Handshake struct {
	// 1 + 1536 + 1536 = 3073
	c0c1c2 []byte
	// 1 + 1536 + 1536 = 3073
	s0s1s2 []byte
}

func NewHandshake() *Handshake {
	return &Handshake{
		c0c1c2: make([]byte, 1+handshakeSize*2),
		s0s1s2: make([]byte, 1+handshakeSize*2),
	}
}

func (v *Handshake) C0() []byte {
	return v.c0c1c2[:1]
}

func (v *Handshake) C1() []byte {
	return v.c0c1c2[1 : 1+handshakeSize]
}

func (v *Handshake) C0C1() []byte {
	return v.c0c1c2[:1+handshakeSize]
}

func (v *Handshake) C2() []byte {
	return v.c0c1c2[1+handshakeSize:]
}

func (v *Handshake) S0() []byte {
	return v.s0s1s2[:1]
}

func (v *Handshake) S1() []byte {
	return v.s0s1s2[1 : 1+handshakeSize]
}

func (v *Handshake) S2() []byte {
	return v.s0s1s2[1+handshakeSize:]
}

func (v *Handshake) S0S1S2() []byte {
	return v.s0s1s2
}

func (v *Handshake) ClientPlaintext() bool {
	return v.C0()[0] == handshakeVersion
}

func (v *Handshake) ServerPlaintext() bool {
	return v.S0()[0] == handshakeVersion
}

// Write the C0C1, the C1 time is now and the random bytes follow the zero bytes.
func (v *Handshake) WriteC0C1(w io.Writer) (err error) {
	core.RandomFill(v.C1())

	v.C0()[0] = handshakeVersion
	binary.BigEndian.PutUint32(v.C1()[0:4], uint32(time.Now().Unix()))
	binary.BigEndian.PutUint32(v.C1()[4:8], 0)

	return writeFlush(w, v.C0C1(), "c0c1")
}

// Read the S0S1S2, only the version is checked. The S2 of complex handshake
// server is a digest, which never echoes the C1.
func (v *Handshake) ReadS0S1S2(r io.Reader) (err error) {
	if _, err = io.ReadFull(r, v.S0S1S2()); err != nil {
		return oe.Wrap(err, "read s0s1s2")
	}

	if !v.ServerPlaintext() {
		return oe.Wrapf(ErrHandshake, "s0 version %#x", v.S0()[0])
	}
	return
}

// Write the C2, which echoes the S1.
func (v *Handshake) WriteC2(w io.Writer) (err error) {
	copy(v.C2(), v.S1())
	return writeFlush(w, v.C2(), "c2")
}

func (v *Handshake) ReadC0C1(r io.Reader) (err error) {
	if _, err = io.ReadFull(r, v.C0C1()); err != nil {
		return oe.Wrap(err, "read c0c1")
	}

	if !v.ClientPlaintext() {
		return oe.Wrapf(ErrHandshake, "c0 version %#x, only support rtmp plain text", v.C0()[0])
	}
	return
}

// Write the S0S1S2, where the S1 time2 is the C1 time, and the S2 echoes the C1.
// @see: https://github.com/ossrs/srs/issues/46
func (v *Handshake) WriteS0S1S2(w io.Writer) (err error) {
	core.RandomFill(v.S0S1S2())

	v.S0()[0] = handshakeVersion
	binary.BigEndian.PutUint32(v.S1()[0:4], uint32(time.Now().Unix()))
	copy(v.S1()[4:8], v.C1()[0:4])
	copy(v.S2(), v.C1())

	return writeFlush(w, v.S0S1S2(), "s0s1s2")
}

// Read the C2, which is not required to echo the S1, like the S2.
func (v *Handshake) ReadC2(r io.Reader) (err error) {
	if _, err = io.ReadFull(r, v.C2()); err != nil {
		return oe.Wrap(err, "read c2")
	}
	return
}

// Do the client handshake.
func (v *Handshake) Client(r io.Reader, w io.Writer) (err error) {
	if err = v.WriteC0C1(w); err != nil {
		return
	}
	if err = v.ReadS0S1S2(r); err != nil {
		return
	}
	return v.WriteC2(w)
}

// Do the server handshake.
func (v *Handshake) Server(r io.Reader, w io.Writer) (err error) {
	if err = v.ReadC0C1(r); err != nil {
		return
	}
	if err = v.WriteS0S1S2(w); err != nil {
		return
	}
	return v.ReadC2(r)
}

func writeFlush(w io.Writer, b []byte, name string) (err error) {
	if _, err = w.Write(b); err != nil {
		return oe.Wrapf(err, "write %v", name)
	}

	if f, ok := w.(interface{ Flush() error }); ok {
		if err = f.Flush(); err != nil {
			return oe.Wrapf(err, "flush %v", name)
		}
	}
	return
}
