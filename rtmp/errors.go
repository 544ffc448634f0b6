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
	"fmt"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The connection is closed, all operations fail with the disconnect cause.
var ErrClosed = oe.New("rtmp connection closed")

// The url scheme is not rtmp or rtmps.
var ErrScheme = oe.New("rtmp invalid scheme")

// The rtmps requires the certificate and validation callback.
var ErrCertificate = oe.New("rtmp certificate required")

// The peer response _error for invoke.
var ErrInvoke = oe.New("rtmp invoke failed")

// The cause of disconnect, which is set at most once for a connection.
type DisconnectError struct {
	// The human readable reason, for example, "read" or "closed by local".
	Reason string
	// The underlying error, nil when closed normally.
	Err error
}

func (v *DisconnectError) Error() string {
	if v.Err == nil {
		return fmt.Sprintf("disconnect by %v", v.Reason)
	}
	return fmt.Sprintf("disconnect by %v, %v", v.Reason, v.Err)
}

func (v *DisconnectError) Unwrap() error {
	if v.Err == nil {
		return ErrClosed
	}
	return v.Err
}

// The _error response of invoke, the cause is ErrInvoke.
type InvokeError struct {
	Method      string
	Code        string
	Description string
	// The value of the _error response, generally the information object.
	Value interface{}
}

func (v *InvokeError) Error() string {
	return fmt.Sprintf("invoke %v failed, code=%v, description=%v", v.Method, v.Code, v.Description)
}

func (v *InvokeError) Cause() error {
	return ErrInvoke
}

func (v *InvokeError) Unwrap() error {
	return ErrInvoke
}
