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

import oe "github.com/ossrs/go-oryx-lib/errors"

// The chunk header is invalid, for example, the chunk stream id.
var ErrChunkStream = oe.New("rtmp chunk stream error")

// The message is larger than the max message size.
var ErrMessageTooLarge = oe.New("rtmp message too large")

// The chunk size is invalid.
var ErrChunkSize = oe.New("rtmp chunk size error")

// The handshake failed, for example, the version is not 3.
var ErrHandshake = oe.New("rtmp handshake error")

// The message payload is invalid.
var ErrPayload = oe.New("rtmp msg payload error")

// The message type is not supported.
var ErrUnknownMessage = oe.New("rtmp unknown message")
