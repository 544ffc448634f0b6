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
	"context"
	"errors"
	"io"
	"net"
	"strings"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// ErrQuit used for goroutine to return.
var ErrQuit = oe.New("system quit")

// ErrTimeout when io timeout to wait.
var ErrTimeout = oe.New("io timeout")

// IsNormalQuit whether the object in recover or returned error can ignore,
// for instance, the error is a Quit error.
func IsNormalQuit(err interface{}) bool {
	if err == nil {
		return true
	}

	if err, ok := err.(error); ok {
		cause := oe.Cause(err)

		// client EOF.
		if cause == io.EOF || cause == io.ErrUnexpectedEOF {
			return true
		}

		// manual quit or read timeout.
		if cause == ErrQuit || cause == ErrTimeout {
			return true
		}

		// cancelled by context.
		if cause == context.Canceled || errors.Is(err, context.Canceled) {
			return true
		}

		// closed by ourself, or the pipe for utest.
		if errors.Is(cause, net.ErrClosed) || cause == io.ErrClosedPipe {
			return true
		}

		// network timeout.
		if err, ok := cause.(net.Error); ok && err.Timeout() {
			return true
		}

		// peer reset.
		if strings.Contains(cause.Error(), "connection reset by peer") {
			return true
		}
	}

	return false
}
