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
	"encoding"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	oe "github.com/ossrs/go-oryx-lib/errors"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// the random object to fill bytes.
var random *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))

// the rand.Rand is not safe for concurrent use.
var randomLock sync.Mutex

// randome fill the bytes.
func RandomFill(b []byte) {
	randomLock.Lock()
	defer randomLock.Unlock()

	for i := 0; i < len(b); i++ {
		// the common value in [0x0f, 0xf0]
		b[i] = byte(0x0f + (random.Int() % (256 - 0x0f - 0x0f)))
	}
}

// invoke the f with recover.
// the name of goroutine, use empty to ignore.
func Recover(ctx Context, name string, f func() error) {
	defer func() {
		if r := recover(); r != nil {
			if name != "" {
				ol.W(ctx, name, "abort with", r)
			} else {
				ol.W(ctx, "goroutine abort with", r)
			}

			ol.E(ctx, string(debug.Stack()))
		}
	}()

	if err := f(); err != nil && !IsNormalQuit(err) {
		if name != "" {
			ol.W(ctx, name, "terminated with", err)
		} else {
			ol.W(ctx, "terminated abort with", err)
		}
	}
}

// UnmarshalSizer is the unmarshaler which knows the size it consumed.
type UnmarshalSizer interface {
	encoding.BinaryUnmarshaler

	// the total size of bytes for this instance.
	Size() int
}

// Marshals marshal the objects in order.
func Marshals(o ...encoding.BinaryMarshaler) (data []byte, err error) {
	var b bytes.Buffer

	for _, e := range o {
		if e == nil {
			continue
		}

		var vb []byte
		if vb, err = e.MarshalBinary(); err != nil {
			return nil, oe.WithMessage(err, "marshal")
		}
		b.Write(vb)
	}

	return b.Bytes(), nil
}

// Unmarshals unmarshal the objects in order from b, which consumes the bytes.
func Unmarshals(b *bytes.Buffer, o ...UnmarshalSizer) (err error) {
	for _, e := range o {
		if err = e.UnmarshalBinary(b.Bytes()); err != nil {
			return oe.WithMessage(err, "unmarshal")
		}
		b.Next(e.Size())
	}
	return
}
