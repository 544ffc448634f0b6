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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The reader which counts the bytes read from the wire.
type countingReader struct {
	r      io.Reader
	nbRead uint64
}

func (v *countingReader) Read(p []byte) (n int, err error) {
	n, err = v.r.Read(p)
	atomic.AddUint64(&v.nbRead, uint64(n))
	return
}

// The writer which counts the bytes written to the wire.
type countingWriter struct {
	w         io.Writer
	nbWritten uint64
}

func (v *countingWriter) Write(p []byte) (n int, err error) {
	n, err = v.w.Write(p)
	atomic.AddUint64(&v.nbWritten, uint64(n))
	return
}

// incoming chunk stream maybe interlaced,
// use the chunk stream to cache the input RTMP chunk streams.
type chunkStream struct {
	// the cid of chunk stream.
	cid uint32
	// the count of chunk header read, a fresh chunk stream must start with fmt0.
	count uint64

	// the last message header.
	timestamp      uint32
	timestampDelta uint32
	length         uint32
	messageType    MessageType
	streamID       uint32

	// whether the last header carries the extended timestamp, and its value.
	extended      bool
	extendedValue uint32

	// the partial message, nil when no message pending.
	payload []byte
	partial bool
}

// The ChunkReader reads the chunks and reassembles them to messages,
// which is used by the read loop only.
type ChunkReader struct {
	counter *countingReader
	r       *bufio.Reader

	// the chunk size for the next chunk.
	chunkSize uint32
	// the payload larger than it is a framing error.
	maxMessageSize uint32

	// the chunk stream cache, created lazily.
	chunks map[uint32]*chunkStream
}

func NewChunkReader(r io.Reader) *ChunkReader {
	counter := &countingReader{r: r}
	return &ChunkReader{
		counter:        counter,
		r:              bufio.NewReaderSize(counter, 4096),
		chunkSize:      DefaultChunkSize,
		maxMessageSize: DefaultMaxMessageSize,
		chunks:         make(map[uint32]*chunkStream),
	}
}

// Read the raw bytes, for example, the handshake.
func (v *ChunkReader) Read(p []byte) (n int, err error) {
	return v.r.Read(p)
}

// The total bytes read from the wire.
func (v *ChunkReader) Bytes() uint64 {
	return atomic.LoadUint64(&v.counter.nbRead)
}

func (v *ChunkReader) ChunkSize() uint32 {
	return v.chunkSize
}

// Set the chunk size, which takes effect at the next chunk.
func (v *ChunkReader) SetChunkSize(n uint32) error {
	if n == 0 {
		return oe.Wrapf(ErrChunkSize, "read chunk size %v", n)
	}
	if n > MaxChunkSize {
		n = MaxChunkSize
	}
	v.chunkSize = n
	return nil
}

func (v *ChunkReader) SetMaxMessageSize(n uint32) {
	if n > 0 {
		v.maxMessageSize = n
	}
}

// Discard the partial message of chunk stream cid, it's ok if the cid is not found.
func (v *ChunkReader) Abort(cid uint32) {
	if chunk, ok := v.chunks[cid]; ok {
		chunk.payload, chunk.partial = nil, false
	}
}

// Read chunks util got an entire message, the chunks of other chunk streams
// are cached to tolerate interleave.
func (v *ChunkReader) ReadMessage() (m *Message, err error) {
	for m == nil {
		var format uint8
		var cid uint32
		if format, cid, err = v.readBasicHeader(); err != nil {
			return nil, oe.WithMessage(err, "basic header")
		}

		chunk, ok := v.chunks[cid]
		if !ok {
			chunk = &chunkStream{cid: cid}
			v.chunks[cid] = chunk
		}

		if err = v.readMessageHeader(chunk, format); err != nil {
			return nil, oe.WithMessage(err, fmt.Sprintf("message header cid=%v", cid))
		}

		if m, err = v.readMessagePayload(chunk); err != nil {
			return nil, oe.WithMessage(err, fmt.Sprintf("payload cid=%v", cid))
		}
	}

	return
}

// 6.1.1. Chunk Basic Header
// Chunk stream IDs 2-63 can be encoded in the 1-byte version,
// 64-319 in the 2-byte version, ID is computed as (the second byte + 64),
// 64-65599 in the 3-byte version, ID is computed as ((the third byte)*256 + the second byte + 64).
func (v *ChunkReader) readBasicHeader() (format uint8, cid uint32, err error) {
	var t byte
	if t, err = v.r.ReadByte(); err != nil {
		return
	}
	format = (t >> 6) & 0x03
	cid = uint32(t & 0x3f)

	// 2-63, 1B chunk header
	if cid > 1 {
		return
	}

	// 64-319, 2B chunk header
	isThreeBytes := cid == 1
	if t, err = v.r.ReadByte(); err != nil {
		return
	}
	cid = 64 + uint32(t)

	// 64-65599, 3B chunk header
	if isThreeBytes {
		if t, err = v.r.ReadByte(); err != nil {
			return
		}
		cid += uint32(t) * 256
	}

	return
}

// Parse the chunk message header.
//
//	3bytes: timestamp delta,    fmt=0,1,2
//	3bytes: payload length,     fmt=0,1
//	1bytes: message type,       fmt=0,1
//	4bytes: stream id,          fmt=0
func (v *ChunkReader) readMessageHeader(chunk *chunkStream, format uint8) (err error) {
	// A fresh chunk stream must start with fmt0, except librtmp which sends
	// the ping over cid=2 with fmt=1.
	if chunk.count == 0 && format != FmtType0 {
		if chunk.cid != CidProtocolControl || format != FmtType1 {
			return oe.Wrapf(ErrChunkStream, "fresh chunk fmt=%v", format)
		}
	}

	// The fmt0 means a new message, which is not allowed when some message is partial.
	if chunk.partial && format == FmtType0 {
		return oe.Wrapf(ErrChunkStream, "fmt0 for partial message %v/%vB", len(chunk.payload), chunk.length)
	}

	isFirstChunkOfMsg := !chunk.partial

	var p []byte
	if size := fmtHeaderSize[format]; size > 0 {
		p = make([]byte, size)
		if _, err = io.ReadFull(v.r, p); err != nil {
			return
		}
	}

	if format <= FmtType2 {
		delta := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		p = p[3:]

		length, messageType := chunk.length, chunk.messageType
		if format <= FmtType1 {
			length = uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
			messageType = MessageType(p[3])
			p = p[4:]
		}

		streamID := chunk.streamID
		if format == FmtType0 {
			streamID = binary.LittleEndian.Uint32(p)
		}

		extended := delta >= ExtendedTimestamp
		if extended {
			if delta, err = v.readUint32(); err != nil {
				return oe.WithMessage(err, "extended timestamp")
			}
		}

		// The header of continuation chunk must repeat the message header.
		if !isFirstChunkOfMsg {
			if length != chunk.length || messageType != chunk.messageType || delta != chunk.timestampDelta {
				return oe.Wrapf(ErrChunkStream, "partial message changed, fmt=%v, length %v/%v, type %v/%v, delta %v/%v",
					format, length, chunk.length, messageType, chunk.messageType, delta, chunk.timestampDelta)
			}
			chunk.count++
			return
		}

		chunk.extended, chunk.extendedValue = extended, delta
		chunk.timestampDelta = delta
		chunk.length, chunk.messageType, chunk.streamID = length, messageType, streamID

		// 6.1.2.1. Type 0, For a type-0 chunk, the absolute timestamp of the message is sent.
		// 6.1.2.2. Type 1, 6.1.2.3. Type 2, the delta of timestamp is sent.
		if format == FmtType0 {
			chunk.timestamp = delta
		} else {
			chunk.timestamp += delta
		}
	} else if chunk.extended {
		// The continuation chunk may repeat the extended timestamp or not,
		// so peek to check it, while the first chunk of message always carries it.
		if isFirstChunkOfMsg {
			if chunk.timestampDelta, err = v.readUint32(); err != nil {
				return oe.WithMessage(err, "extended timestamp")
			}
			chunk.extendedValue = chunk.timestampDelta
		} else {
			var b []byte
			if b, err = v.r.Peek(4); err != nil {
				return oe.WithMessage(err, "peek extended timestamp")
			}
			if binary.BigEndian.Uint32(b) == chunk.extendedValue {
				if _, err = v.r.Discard(4); err != nil {
					return
				}
			}
		}
	}

	// 6.1.2.4. Type 3, If Type 3 chunk follows a Type 0 chunk, then timestamp
	// delta for this Type 3 chunk is the same as the timestamp of Type 0 chunk.
	if format == FmtType3 && isFirstChunkOfMsg {
		chunk.timestamp += chunk.timestampDelta
	}

	if isFirstChunkOfMsg && chunk.length > v.maxMessageSize {
		return oe.Wrapf(ErrMessageTooLarge, "message %vB exceed %vB", chunk.length, v.maxMessageSize)
	}

	chunk.count++
	return
}

func (v *ChunkReader) readMessagePayload(chunk *chunkStream) (m *Message, err error) {
	if !chunk.partial {
		chunk.partial = true
		chunk.payload = make([]byte, 0, chunk.length)
	}

	// Calculate the chunk payload size.
	size := chunk.length - uint32(len(chunk.payload))
	if size > v.chunkSize {
		size = v.chunkSize
	}

	if size > 0 {
		offset := len(chunk.payload)
		chunk.payload = chunk.payload[:offset+int(size)]
		if _, err = io.ReadFull(v.r, chunk.payload[offset:]); err != nil {
			return
		}
	}

	// Got entire RTMP message?
	if uint32(len(chunk.payload)) < chunk.length {
		return nil, nil
	}

	m = &Message{
		Timestamp:     chunk.timestamp,
		MessageType:   chunk.messageType,
		StreamID:      chunk.streamID,
		ChunkStreamID: chunk.cid,
		Payload:       chunk.payload,
	}
	chunk.payload, chunk.partial = nil, false
	return
}

func (v *ChunkReader) readUint32() (n uint32, err error) {
	var b [4]byte
	if _, err = io.ReadFull(v.r, b[:]); err != nil {
		return
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// The last header written to the chunk stream, to choose the fmt.
type chunkStreamHeader struct {
	// whether nothing written yet.
	fresh bool

	timestamp      uint32
	timestampDelta uint32
	length         uint32
	messageType    MessageType
	streamID       uint32
}

// The ChunkWriter splits the messages to chunks, which is not safe for concurrent use.
type ChunkWriter struct {
	counter *countingWriter
	w       *bufio.Writer

	chunkSize uint32
	chunks    map[uint32]*chunkStreamHeader

	// the buffer for chunk header, at most 3+11+4 bytes.
	header []byte
}

func NewChunkWriter(w io.Writer) *ChunkWriter {
	counter := &countingWriter{w: w}
	return &ChunkWriter{
		counter:   counter,
		w:         bufio.NewWriterSize(counter, 4096),
		chunkSize: DefaultChunkSize,
		chunks:    make(map[uint32]*chunkStreamHeader),
		header:    make([]byte, 0, 18),
	}
}

// Write the raw bytes, for example, the handshake.
func (v *ChunkWriter) Write(p []byte) (n int, err error) {
	return v.w.Write(p)
}

func (v *ChunkWriter) Flush() error {
	return v.w.Flush()
}

// The total bytes written to the wire.
func (v *ChunkWriter) Bytes() uint64 {
	return atomic.LoadUint64(&v.counter.nbWritten)
}

func (v *ChunkWriter) ChunkSize() uint32 {
	return v.chunkSize
}

// Set the chunk size, which takes effect at the next chunk.
func (v *ChunkWriter) SetChunkSize(n uint32) error {
	if n == 0 {
		return oe.Wrapf(ErrChunkSize, "write chunk size %v", n)
	}
	if n > MaxChunkSize {
		n = MaxChunkSize
	}
	v.chunkSize = n
	return nil
}

// Write the message over its chunk stream, use the smallest header and flush it.
func (v *ChunkWriter) WriteMessage(m *Message) (err error) {
	cid := m.ChunkStreamID
	if cid < MinChunkStreamID || cid > MaxChunkStreamID {
		return oe.Wrapf(ErrChunkStream, "write cid=%v", cid)
	}
	if len(m.Payload) > MaxMessageLength {
		return oe.Wrapf(ErrMessageTooLarge, "write %vB", len(m.Payload))
	}

	last, ok := v.chunks[cid]
	if !ok {
		last = &chunkStreamHeader{fresh: true}
		v.chunks[cid] = last
	}

	length := uint32(len(m.Payload))
	delta := m.Timestamp - last.timestamp

	var format uint8
	switch {
	case last.fresh || m.StreamID != last.streamID || m.Timestamp < last.timestamp:
		format, delta = FmtType0, m.Timestamp
	case length != last.length || m.MessageType != last.messageType:
		format = FmtType1
	case delta != last.timestampDelta:
		format = FmtType2
	default:
		format = FmtType3
	}

	// The value in header, which is the timestamp for fmt0, or delta.
	extended := delta >= ExtendedTimestamp

	*last = chunkStreamHeader{
		timestamp:      m.Timestamp,
		timestampDelta: delta,
		length:         length,
		messageType:    m.MessageType,
		streamID:       m.StreamID,
	}

	p := m.Payload
	for first := true; first || len(p) > 0; first = false {
		h := v.header[:0]
		if first {
			h = appendMessageHeader(h, format, cid, delta, length, m.MessageType, m.StreamID)
		} else {
			h = appendBasicHeader(h, FmtType3, cid)
		}
		// The continuation chunks repeat the extended timestamp.
		if extended && (!first || format == FmtType3) {
			h = binary.BigEndian.AppendUint32(h, delta)
		}

		if _, err = v.w.Write(h); err != nil {
			return oe.Wrap(err, "write header")
		}

		size := uint32(len(p))
		if size > v.chunkSize {
			size = v.chunkSize
		}
		if _, err = v.w.Write(p[:size]); err != nil {
			return oe.Wrap(err, "write payload")
		}
		p = p[size:]
	}

	if err = v.w.Flush(); err != nil {
		return oe.Wrap(err, "flush")
	}
	return
}

// Append the basic header, the cid must be in [2, 65599].
func appendBasicHeader(h []byte, format uint8, cid uint32) []byte {
	if cid < 64 {
		return append(h, format<<6|byte(cid))
	}
	if cid < 320 {
		return append(h, format<<6, byte(cid-64))
	}
	return append(h, format<<6|1, byte((cid-64)&0xff), byte((cid-64)>>8))
}

// Append the basic header and message header of fmt, with the extended timestamp if required.
func appendMessageHeader(h []byte, format uint8, cid, delta, length uint32, messageType MessageType, streamID uint32) []byte {
	h = appendBasicHeader(h, format, cid)
	if format == FmtType3 {
		return h
	}

	ts := delta
	if ts >= ExtendedTimestamp {
		ts = ExtendedTimestamp
	}
	h = append(h, byte(ts>>16), byte(ts>>8), byte(ts))

	if format <= FmtType1 {
		h = append(h, byte(length>>16), byte(length>>8), byte(length), byte(messageType))
	}
	if format == FmtType0 {
		h = binary.LittleEndian.AppendUint32(h, streamID)
	}
	if ts == ExtendedTimestamp {
		h = binary.BigEndian.AppendUint32(h, delta)
	}
	return h
}
