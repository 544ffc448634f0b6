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
	"bytes"
	"testing"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

func payloadOf(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestChunk_RoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, DefaultChunkSize, DefaultChunkSize * 5 / 2, DefaultChunkSize * 3} {
		var b bytes.Buffer
		w := NewChunkWriter(&b)

		m := &Message{
			Timestamp:     1000,
			MessageType:   MsgVideoMessage,
			StreamID:      1,
			ChunkStreamID: CidVideo,
			Payload:       payloadOf(size),
		}
		if err := w.WriteMessage(m); err != nil {
			t.Errorf("write %vB failed, err is %+v", size, err)
			continue
		}

		r := NewChunkReader(&b)
		got, err := r.ReadMessage()
		if err != nil {
			t.Errorf("read %vB failed, err is %+v", size, err)
			continue
		}
		if got.MessageType != m.MessageType || got.StreamID != m.StreamID || got.Timestamp != m.Timestamp {
			t.Errorf("header %v != %v", got, m)
		}
		if got.ChunkStreamID != CidVideo {
			t.Errorf("cid %v != %v", got.ChunkStreamID, CidVideo)
		}
		if !bytes.Equal(got.Payload, m.Payload) {
			t.Errorf("payload %vB not match", size)
		}
		if b.Len() != 0 {
			t.Errorf("%vB left", b.Len())
		}
		if r.Bytes() != w.Bytes() {
			t.Errorf("read %vB, write %vB", r.Bytes(), w.Bytes())
		}
	}
}

func TestChunk_ChunkSize(t *testing.T) {
	var b bytes.Buffer
	w := NewChunkWriter(&b)
	r := NewChunkReader(&b)

	if err := w.SetChunkSize(0); oe.Cause(err) != ErrChunkSize {
		t.Errorf("writer chunk size 0 should fail, err is %v", err)
	}
	if err := r.SetChunkSize(0); oe.Cause(err) != ErrChunkSize {
		t.Errorf("reader chunk size 0 should fail, err is %v", err)
	}
	if err := w.SetChunkSize(MaxChunkSize + 1); err != nil || w.ChunkSize() != MaxChunkSize {
		t.Errorf("chunk size %v, err is %v", w.ChunkSize(), err)
	}

	for _, size := range []uint32{1, 60000, 4096} {
		if err := w.SetChunkSize(size); err != nil {
			t.Errorf("err is %+v", err)
		}
		if err := r.SetChunkSize(size); err != nil {
			t.Errorf("err is %+v", err)
		}

		p := payloadOf(10000)
		if err := w.WriteMessage(&Message{MessageType: MsgAudioMessage, ChunkStreamID: CidAudio, Payload: p}); err != nil {
			t.Errorf("write failed, err is %+v", err)
		}
		if m, err := r.ReadMessage(); err != nil || !bytes.Equal(m.Payload, p) {
			t.Errorf("chunk size %v read failed, err is %+v", size, err)
		}
	}
}

func TestChunkWriter_Fmt(t *testing.T) {
	var b bytes.Buffer
	w := NewChunkWriter(&b)

	messages := []struct {
		ts     uint32
		size   int
		mt     MessageType
		sid    uint32
		format uint8
	}{
		{0, 10, MsgAMF0DataMessage, 1, FmtType0},
		// all the same.
		{0, 10, MsgAMF0DataMessage, 1, FmtType3},
		// timestamp only.
		{40, 10, MsgAMF0DataMessage, 1, FmtType2},
		// same delta.
		{80, 10, MsgAMF0DataMessage, 1, FmtType3},
		// length changed.
		{120, 11, MsgAMF0DataMessage, 1, FmtType1},
		// type changed.
		{160, 11, MsgAudioMessage, 1, FmtType1},
		// timestamp backward.
		{100, 11, MsgAudioMessage, 1, FmtType0},
		// stream changed.
		{140, 11, MsgAudioMessage, 2, FmtType0},
	}

	var wire bytes.Buffer
	for i, e := range messages {
		b.Reset()
		m := &Message{Timestamp: e.ts, MessageType: e.mt, StreamID: e.sid, ChunkStreamID: CidOverStream, Payload: payloadOf(e.size)}
		if err := w.WriteMessage(m); err != nil {
			t.Errorf("#%v write failed, err is %+v", i, err)
			continue
		}

		if format := b.Bytes()[0] >> 6; format != e.format {
			t.Errorf("#%v fmt %v != %v", i, format, e.format)
		}
		if size := 1 + fmtHeaderSize[e.format] + e.size; b.Len() != size {
			t.Errorf("#%v size %v != %v", i, b.Len(), size)
		}
		wire.Write(b.Bytes())
	}

	// The reader restores the full header.
	r := NewChunkReader(&wire)
	for i, e := range messages {
		m, err := r.ReadMessage()
		if err != nil {
			t.Errorf("#%v read failed, err is %+v", i, err)
			return
		}
		if m.Timestamp != e.ts || m.MessageType != e.mt || m.StreamID != e.sid || len(m.Payload) != e.size {
			t.Errorf("#%v got %v", i, m)
		}
	}
}

func TestChunk_Interleave(t *testing.T) {
	var a, b bytes.Buffer
	pa, pb := payloadOf(200), bytes.Repeat([]byte{0xab}, 200)

	if err := NewChunkWriter(&a).WriteMessage(&Message{Timestamp: 10, MessageType: MsgAudioMessage, StreamID: 1, ChunkStreamID: CidAudio, Payload: pa}); err != nil {
		t.Errorf("err is %+v", err)
	}
	if err := NewChunkWriter(&b).WriteMessage(&Message{Timestamp: 20, MessageType: MsgVideoMessage, StreamID: 1, ChunkStreamID: CidVideo, Payload: pb}); err != nil {
		t.Errorf("err is %+v", err)
	}

	// The first chunk is 1+11+128 bytes, the second is 1+72 bytes.
	if a.Len() != 213 || b.Len() != 213 {
		t.Errorf("size %v and %v", a.Len(), b.Len())
		return
	}

	var wire bytes.Buffer
	wire.Write(a.Bytes()[:140])
	wire.Write(b.Bytes()[:140])
	wire.Write(b.Bytes()[140:])
	wire.Write(a.Bytes()[140:])

	r := NewChunkReader(&wire)
	if m, err := r.ReadMessage(); err != nil || m.MessageType != MsgVideoMessage || m.Timestamp != 20 || !bytes.Equal(m.Payload, pb) {
		t.Errorf("video message %v, err is %+v", m, err)
	}
	if m, err := r.ReadMessage(); err != nil || m.MessageType != MsgAudioMessage || m.Timestamp != 10 || !bytes.Equal(m.Payload, pa) {
		t.Errorf("audio message %v, err is %+v", m, err)
	}
}

func TestChunk_ExtendedTimestamp(t *testing.T) {
	var b bytes.Buffer
	w := NewChunkWriter(&b)

	p := payloadOf(300)
	if err := w.WriteMessage(&Message{Timestamp: 0x1000000, MessageType: MsgVideoMessage, StreamID: 1, ChunkStreamID: CidVideo, Payload: p}); err != nil {
		t.Errorf("err is %+v", err)
	}

	// 1+11+4+128, 1+4+128, 1+4+44
	if b.Len() != 144+133+49 {
		t.Errorf("size %v", b.Len())
	}
	if h := b.Bytes()[:16]; !bytes.Equal(h[1:4], []byte{0xff, 0xff, 0xff}) || !bytes.Equal(h[12:16], []byte{0x01, 0, 0, 0}) {
		t.Errorf("header %x", h)
	}
	if h := b.Bytes()[144:149]; !bytes.Equal(h, []byte{0xc6, 0x01, 0, 0, 0}) {
		t.Errorf("continuation %x", h)
	}

	// The same delta, fmt3 with extended timestamp.
	if err := w.WriteMessage(&Message{Timestamp: 0x2000000, MessageType: MsgVideoMessage, StreamID: 1, ChunkStreamID: CidVideo, Payload: p}); err != nil {
		t.Errorf("err is %+v", err)
	}

	r := NewChunkReader(&b)
	for _, ts := range []uint32{0x1000000, 0x2000000} {
		if m, err := r.ReadMessage(); err != nil || m.Timestamp != ts || !bytes.Equal(m.Payload, p) {
			t.Errorf("message %v, expect ts %v, err is %+v", m, ts, err)
		}
	}
}

func TestChunkReader_ExtendedTimestampNotRepeated(t *testing.T) {
	var wire bytes.Buffer
	// fmt=0, cid=3, timestamp=0xffffff, length=132, type=20, sid=0, extended=0x01020304
	wire.Write([]byte{0x03, 0xff, 0xff, 0xff, 0x00, 0x00, 0x84, 0x14, 0, 0, 0, 0, 0x01, 0x02, 0x03, 0x04})
	wire.Write(make([]byte, 128))
	// The continuation without extended timestamp.
	wire.Write([]byte{0xc3, 0x00, 0x00, 0x00, 0x00})

	r := NewChunkReader(&wire)
	m, err := r.ReadMessage()
	if err != nil {
		t.Errorf("err is %+v", err)
		return
	}
	if m.Timestamp != 0x01020304 || len(m.Payload) != 132 {
		t.Errorf("message %v", m)
	}
}

func TestChunkReader_Errors(t *testing.T) {
	var b bytes.Buffer
	if err := NewChunkWriter(&b).WriteMessage(&Message{MessageType: MsgAudioMessage, ChunkStreamID: CidOverConnection, Payload: payloadOf(200)}); err != nil {
		t.Errorf("err is %+v", err)
	}
	full := b.Bytes()

	// A fresh chunk stream must start with fmt0.
	r := NewChunkReader(bytes.NewReader([]byte{0x43, 0, 0, 0, 0, 0, 1, 8, 0}))
	if _, err := r.ReadMessage(); oe.Cause(err) != ErrChunkStream {
		t.Errorf("fresh fmt1 should fail, err is %v", err)
	}

	// The fmt0 while the message is partial.
	wire := append(append([]byte{}, full[:140]...), full[:12]...)
	r = NewChunkReader(bytes.NewReader(wire))
	if _, err := r.ReadMessage(); oe.Cause(err) != ErrChunkStream {
		t.Errorf("fmt0 for partial should fail, err is %v", err)
	}

	// The length changed while the message is partial.
	wire = append(append([]byte{}, full[:140]...), 0x43, 0, 0, 0, 0, 0, 201, 8)
	r = NewChunkReader(bytes.NewReader(wire))
	if _, err := r.ReadMessage(); oe.Cause(err) != ErrChunkStream {
		t.Errorf("length changed should fail, err is %v", err)
	}

	// The message too large.
	r = NewChunkReader(bytes.NewReader(full))
	r.SetMaxMessageSize(100)
	if _, err := r.ReadMessage(); oe.Cause(err) != ErrMessageTooLarge {
		t.Errorf("large message should fail, err is %v", err)
	}

	// The writer rejects invalid cid.
	for _, cid := range []uint32{0, 1, MaxChunkStreamID + 1} {
		if err := NewChunkWriter(&b).WriteMessage(&Message{ChunkStreamID: cid}); oe.Cause(err) != ErrChunkStream {
			t.Errorf("cid %v should fail, err is %v", cid, err)
		}
	}
}

func TestChunkReader_LibrtmpPing(t *testing.T) {
	// fmt=1, cid=2, the user control message ping request.
	r := NewChunkReader(bytes.NewReader([]byte{0x42, 0, 0, 0, 0, 0, 6, 4, 0x00, 0x06, 0x00, 0x00, 0x0d, 0x0f}))
	m, err := r.ReadMessage()
	if err != nil {
		t.Errorf("err is %+v", err)
		return
	}

	p, err := DecodePacket(m, nil)
	if err != nil {
		t.Errorf("err is %+v", err)
		return
	}
	if p, ok := p.(*UserControl); !ok || p.Event() != EventPingRequest || len(p.Values) != 1 || p.Values[0] != 0x0d0f {
		t.Errorf("packet %+v", p)
	}
}

func TestChunkReader_Abort(t *testing.T) {
	var b bytes.Buffer
	w := NewChunkWriter(&b)
	if err := w.WriteMessage(&Message{MessageType: MsgAudioMessage, ChunkStreamID: CidAudio, Payload: payloadOf(200)}); err != nil {
		t.Errorf("err is %+v", err)
	}

	// Only the first chunk of message.
	r := NewChunkReader(bytes.NewReader(b.Bytes()[:140]))
	if _, err := r.ReadMessage(); err == nil {
		t.Error("should be partial")
	}
	if !r.chunks[CidAudio].partial {
		t.Error("should be partial")
	}

	r.Abort(CidAudio)
	r.Abort(100)
	if c := r.chunks[CidAudio]; c.partial || c.payload != nil {
		t.Error("should be aborted")
	}
}

func TestChunk_StreamID(t *testing.T) {
	for _, e := range []struct {
		cid  uint32
		size int
	}{
		{2, 1}, {63, 1}, {64, 2}, {319, 2}, {320, 3}, {65599, 3},
	} {
		var b bytes.Buffer
		if err := NewChunkWriter(&b).WriteMessage(&Message{MessageType: MsgAudioMessage, ChunkStreamID: e.cid}); err != nil {
			t.Errorf("cid %v write failed, err is %+v", e.cid, err)
			continue
		}
		if b.Len() != e.size+11 {
			t.Errorf("cid %v header %vB, expect %vB", e.cid, b.Len(), e.size+11)
		}

		m, err := NewChunkReader(&b).ReadMessage()
		if err != nil || m.ChunkStreamID != e.cid || len(m.Payload) != 0 {
			t.Errorf("cid %v read %v, err is %+v", e.cid, m, err)
		}
	}
}
