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

import "fmt"

const (
	major     = 0
	minor     = 1
	reversion = 3
)

// Version returns the rtmpx major.minor.revision version
func Version() string {
	return fmt.Sprintf("%v.%v.%v", major, minor, reversion)
}

// project info.

// RtmpxSigKey specifies the project key
const RtmpxSigKey = "rtmpx"

// RtmpxSigURL specifies the full project URL
const RtmpxSigURL = "https://github.com/winlinvip/rtmpx"

// RtmpxSigServer returns the full, formatted server version information
func RtmpxSigServer() string {
	return fmt.Sprintf("%v/%v", RtmpxSigKey, Version())
}
