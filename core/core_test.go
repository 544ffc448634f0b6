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

package core

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"os"
	"testing"

	oe "github.com/ossrs/go-oryx-lib/errors"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	DiscardLogger()
	os.Exit(m.Run())
}

func TestIsNormalQuit(t *testing.T) {
	pvs := []struct {
		err    interface{}
		normal bool
	}{
		{nil, true},
		{io.EOF, true},
		{oe.Wrap(io.EOF, "read"), true},
		{ErrQuit, true},
		{oe.WithMessage(ErrTimeout, "wait"), true},
		{context.Canceled, true},
		{net.ErrClosed, true},
		{io.ErrClosedPipe, true},
		{oe.New("fatal"), false},
		{"panic text", false},
	}

	for _, pv := range pvs {
		if v := IsNormalQuit(pv.err); v != pv.normal {
			t.Errorf("err %v expect %v actual %v", pv.err, pv.normal, v)
		}
	}
}

func TestRandomFill(t *testing.T) {
	b := make([]byte, 1536)
	RandomFill(b)

	for i, c := range b {
		if c < 0x0f || c > 0xf0 {
			t.Errorf("invalid %v at %v", c, i)
		}
	}
}

func TestRecover(t *testing.T) {
	var executed bool
	Recover(nil, "utest", func() error {
		executed = true
		panic("abort")
	})

	if !executed {
		t.Error("should execute")
	}
}

type testUint32 uint32

func (v *testUint32) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(*v))
	return b, nil
}

func (v *testUint32) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return io.ErrUnexpectedEOF
	}
	*v = testUint32(binary.BigEndian.Uint32(data))
	return nil
}

func (v *testUint32) Size() int {
	return 4
}

func TestMarshals(t *testing.T) {
	x, y := testUint32(0x01020304), testUint32(5)

	b, err := Marshals(&x, &y)
	if err != nil {
		t.Errorf("marshal err %+v", err)
	} else if !bytes.Equal(b, []byte{1, 2, 3, 4, 0, 0, 0, 5}) {
		t.Errorf("invalid %v", b)
	}

	var a, c testUint32
	if err := Unmarshals(bytes.NewBuffer(b), &a, &c); err != nil {
		t.Errorf("unmarshal err %+v", err)
	} else if a != x || c != y {
		t.Errorf("invalid %v %v", a, c)
	}

	if err := Unmarshals(bytes.NewBuffer(b[:6]), &a, &c); err == nil {
		t.Error("should error")
	}
}

func TestVersion(t *testing.T) {
	require.Regexp(t, `^\d+\.\d+\.\d+$`, Version())
	require.Equal(t, "rtmpx/"+Version(), RtmpxSigServer())
}
