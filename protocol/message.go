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
	"encoding"
	"fmt"

	"github.com/winlinvip/rtmpx/amf"
	"github.com/winlinvip/rtmpx/core"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The complete message, reassembled from chunks.
type Message struct {
	// The timestamp in ms, the 31bits timestamp.
	Timestamp uint32
	// The type of message, for example, audio, video or command.
	MessageType MessageType
	// The message stream id, little-endian on the wire.
	StreamID uint32
	// The chunk stream to send the message over, or the one message read from.
	ChunkStreamID uint32
	// The message payload.
	Payload []byte
}

func (v *Message) String() string {
	return fmt.Sprintf("%v cid=%v, sid=%v, ts=%v, size=%v",
		v.MessageType, v.ChunkStreamID, v.StreamID, v.Timestamp, len(v.Payload))
}

// The packet, which can be decode from and encode to message payload.
type Packet interface {
	// all packet can marshaler and unmarshaler.
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler

	// the cid(chunk id) specifies the chunk to send data over.
	// generally, each message perfer some cid, for example,
	// all protocol control messages perfer CidProtocolControl.
	PreferCid() uint32
	// the message type set the RTMP message type in header.
	MessageType() MessageType
}

// the uint8 which suppport marshal and unmarshal.
type Uint8 uint8

func (v *Uint8) MarshalBinary() (data []byte, err error) {
	return []byte{byte(*v)}, nil
}

func (v *Uint8) Size() int {
	return 1
}

func (v *Uint8) UnmarshalBinary(data []byte) (err error) {
	if len(data) < 1 {
		return oe.Wrap(ErrPayload, "uint8")
	}
	*v = Uint8(data[0])
	return
}

// the uint16 which suppport marshal and unmarshal.
type Uint16 uint16

func (v *Uint16) MarshalBinary() (data []byte, err error) {
	return []byte{byte(*v >> 8), byte(*v)}, nil
}

func (v *Uint16) Size() int {
	return 2
}

func (v *Uint16) UnmarshalBinary(data []byte) (err error) {
	if len(data) < 2 {
		return oe.Wrap(ErrPayload, "uint16")
	}
	*v = Uint16(uint16(data[0])<<8 | uint16(data[1]))
	return
}

// the uint32 which suppport marshal and unmarshal.
type Uint32 uint32

func (v *Uint32) MarshalBinary() (data []byte, err error) {
	return []byte{byte(*v >> 24), byte(*v >> 16), byte(*v >> 8), byte(*v)}, nil
}

func (v *Uint32) Size() int {
	return 4
}

func (v *Uint32) UnmarshalBinary(data []byte) (err error) {
	if len(data) < 4 {
		return oe.Wrap(ErrPayload, "uint32")
	}
	*v = Uint32(uint32(data[3]) | uint32(data[2])<<8 | uint32(data[1])<<16 | uint32(data[0])<<24)
	return
}

// 5.2. Abort Message (2)
// Protocol control message 2, Abort Message, is used to notify the peer
// if it is waiting for chunks to complete a message, then to discard
// the partially received message over a chunk stream.
type Abort struct {
	ChunkStreamID Uint32
}

func (v *Abort) MarshalBinary() (data []byte, err error) {
	return core.Marshals(&v.ChunkStreamID)
}

func (v *Abort) UnmarshalBinary(data []byte) (err error) {
	return core.Unmarshals(bytes.NewBuffer(data), &v.ChunkStreamID)
}

func (v *Abort) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *Abort) MessageType() MessageType {
	return MsgAbortMessage
}

// 5.3. Acknowledgement (3)
// The client or the server sends the acknowledgment to the peer after
// receiving bytes equal to the window size.
type Acknowledgement struct {
	// the total bytes received so far.
	SequenceNumber Uint32
}

func (v *Acknowledgement) MarshalBinary() (data []byte, err error) {
	return core.Marshals(&v.SequenceNumber)
}

func (v *Acknowledgement) UnmarshalBinary(data []byte) (err error) {
	return core.Unmarshals(bytes.NewBuffer(data), &v.SequenceNumber)
}

func (v *Acknowledgement) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *Acknowledgement) MessageType() MessageType {
	return MsgAcknowledgement
}

// 5.1. Set Chunk Size
// Protocol control message 1, Set Chunk Size, is used to notify the
// peer about the new maximum chunk size.
type SetChunkSize struct {
	ChunkSize Uint32
}

// Create the set chunk size packet, the size is clamped to [0, MaxChunkSize].
func NewSetChunkSize(size int64) *SetChunkSize {
	if size < 0 {
		size = 0
	} else if size > MaxChunkSize {
		size = MaxChunkSize
	}
	return &SetChunkSize{ChunkSize: Uint32(size)}
}

func (v *SetChunkSize) MarshalBinary() (data []byte, err error) {
	return core.Marshals(&v.ChunkSize)
}

func (v *SetChunkSize) UnmarshalBinary(data []byte) (err error) {
	if err = core.Unmarshals(bytes.NewBuffer(data), &v.ChunkSize); err != nil {
		return
	}
	if v.ChunkSize > MaxChunkSize {
		v.ChunkSize = MaxChunkSize
	}
	return
}

func (v *SetChunkSize) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *SetChunkSize) MessageType() MessageType {
	return MsgSetChunkSize
}

// 5.5. Window Acknowledgement Size (5)
// The client or the server sends this message to inform the peer which
// window size to use when sending acknowledgment.
type WindowAcknowledgementSize struct {
	Ack Uint32
}

func (v *WindowAcknowledgementSize) MarshalBinary() (data []byte, err error) {
	return core.Marshals(&v.Ack)
}

func (v *WindowAcknowledgementSize) UnmarshalBinary(data []byte) (err error) {
	return core.Unmarshals(bytes.NewBuffer(data), &v.Ack)
}

func (v *WindowAcknowledgementSize) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *WindowAcknowledgementSize) MessageType() MessageType {
	return MsgWindowAcknowledgementSize
}

// 5.6. Set Peer Bandwidth (6)
type LimitType uint8

const (
	// The sender can mark this message hard (0), soft (1), or dynamic (2)
	// using the Limit type field.
	Hard LimitType = iota
	Soft
	Dynamic
)

func (v LimitType) String() string {
	switch v {
	case Hard:
		return "hard"
	case Soft:
		return "soft"
	case Dynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// 5.6. Set Peer Bandwidth (6)
// The client or the server sends this message to update the output
// bandwidth of the peer.
type SetPeerBandwidth struct {
	Bandwidth Uint32
	// @see LimitType
	LimitType Uint8
}

func NewSetPeerBandwidth(bandwidth uint32, limit LimitType) *SetPeerBandwidth {
	return &SetPeerBandwidth{Bandwidth: Uint32(bandwidth), LimitType: Uint8(limit)}
}

func (v *SetPeerBandwidth) MarshalBinary() (data []byte, err error) {
	return core.Marshals(&v.Bandwidth, &v.LimitType)
}

func (v *SetPeerBandwidth) UnmarshalBinary(data []byte) (err error) {
	return core.Unmarshals(bytes.NewBuffer(data), &v.Bandwidth, &v.LimitType)
}

func (v *SetPeerBandwidth) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *SetPeerBandwidth) MessageType() MessageType {
	return MsgSetPeerBandwidth
}

// 3.7. User Control message
type EventType uint16

const (
	// The stream has become functional, the data is the stream id.
	EventStreamBegin EventType = 0x00
	// The playback of data is over, the data is the stream id.
	EventStreamEOF EventType = 0x01
	// There is no more data on the stream, the data is the stream id.
	EventStreamDry EventType = 0x02
	// The stream id and the buffer length in ms.
	EventSetBufferLength EventType = 0x03
	// The stream is a recorded stream, the data is the stream id.
	EventStreamIsRecorded EventType = 0x04
	// The data is the local server time.
	EventPingRequest EventType = 0x06
	// The data is the timestamp received with the ping request.
	EventPingResponse EventType = 0x07
	// for size=3, the payload is "00 1A 01", the fms defined event,
	// which has only 1bytes event data.
	EventFmsEvent0 EventType = 0x1a
)

func (v EventType) String() string {
	switch v {
	case EventStreamBegin:
		return "StreamBegin"
	case EventStreamEOF:
		return "StreamEOF"
	case EventStreamDry:
		return "StreamDry"
	case EventSetBufferLength:
		return "SetBufferLength"
	case EventStreamIsRecorded:
		return "StreamIsRecorded"
	case EventPingRequest:
		return "PingRequest"
	case EventPingResponse:
		return "PingResponse"
	case EventFmsEvent0:
		return "FmsEvent0"
	default:
		return fmt.Sprintf("Event(%#x)", uint16(v))
	}
}

// 5.4. User Control Message (4)
// The 2bytes event type, followed by 4bytes values, for example,
// SetBufferLength has two values, the stream id and buffer length.
type UserControl struct {
	EventType Uint16
	Values    []uint32
}

func NewUserControl(event EventType, values ...uint32) *UserControl {
	return &UserControl{EventType: Uint16(event), Values: values}
}

func (v *UserControl) Event() EventType {
	return EventType(v.EventType)
}

func (v *UserControl) MarshalBinary() (data []byte, err error) {
	o := []encoding.BinaryMarshaler{&v.EventType}
	for _, value := range v.Values {
		e := Uint32(value)
		o = append(o, &e)
	}
	return core.Marshals(o...)
}

// The bytes left which are less than 4bytes are ignored, for the fms event.
func (v *UserControl) UnmarshalBinary(data []byte) (err error) {
	b := bytes.NewBuffer(data)
	if err = core.Unmarshals(b, &v.EventType); err != nil {
		return
	}

	v.Values = nil
	for b.Len() >= 4 {
		var value Uint32
		if err = core.Unmarshals(b, &value); err != nil {
			return
		}
		v.Values = append(v.Values, uint32(value))
	}
	return
}

func (v *UserControl) PreferCid() uint32 {
	return CidProtocolControl
}

func (v *UserControl) MessageType() MessageType {
	return MsgUserControlMessage
}

// The opaque media payload, audio or video.
type MediaData struct {
	Type MessageType
	Data []byte
}

func NewAudioData(data []byte) *MediaData {
	return &MediaData{Type: MsgAudioMessage, Data: data}
}

func NewVideoData(data []byte) *MediaData {
	return &MediaData{Type: MsgVideoMessage, Data: data}
}

func (v *MediaData) MarshalBinary() (data []byte, err error) {
	return v.Data, nil
}

func (v *MediaData) UnmarshalBinary(data []byte) (err error) {
	v.Data = data
	return
}

func (v *MediaData) PreferCid() uint32 {
	if v.Type == MsgVideoMessage {
		return CidVideo
	}
	return CidAudio
}

func (v *MediaData) MessageType() MessageType {
	return v.Type
}

// The data message, the method name followed by the args, for example, @setDataFrame.
type Notify struct {
	Encoding amf.ObjectEncoding
	Method   string
	Args     []interface{}
	// Optional, to encode and decode the typed objects.
	Context *amf.SerializationContext
}

func NewNotify(encoding amf.ObjectEncoding, method string, args ...interface{}) *Notify {
	return &Notify{Encoding: encoding, Method: method, Args: args}
}

func (v *Notify) MarshalBinary() (data []byte, err error) {
	var b bytes.Buffer
	enc := newCommandEncoder(&b, v.Encoding, v.Context)

	if err = enc.Encode(v.Method); err != nil {
		return nil, oe.WithMessage(err, "method")
	}
	if err = encodeValues(enc, v.Encoding, v.Args...); err != nil {
		return nil, oe.WithMessage(err, v.Method)
	}

	return b.Bytes(), nil
}

func (v *Notify) UnmarshalBinary(data []byte) (err error) {
	dec := newCommandDecoder(data, v.Encoding)

	if v.Method, err = decodeString(dec); err != nil {
		return oe.WithMessage(err, "method")
	}
	if v.Args, err = decodeValues(dec, v.Context); err != nil {
		return oe.WithMessage(err, v.Method)
	}
	return
}

func (v *Notify) PreferCid() uint32 {
	return CidOverStream
}

func (v *Notify) MessageType() MessageType {
	if v.Encoding == amf.Amf3 {
		return MsgAMF3DataMessage
	}
	return MsgAMF0DataMessage
}

// The command message, which is a request when the method is not _result or _error,
// and the response must use the invoke id of request.
type Invoke struct {
	Encoding amf.ObjectEncoding
	Method   string
	// The transaction id, 0 for the request without response.
	InvokeID float64
	// The command object, null when there is none.
	Header interface{}
	Args   []interface{}
	// Optional, to encode and decode the typed objects.
	Context *amf.SerializationContext
}

func NewInvoke(encoding amf.ObjectEncoding, method string, id float64, header interface{}, args ...interface{}) *Invoke {
	return &Invoke{Encoding: encoding, Method: method, InvokeID: id, Header: header, Args: args}
}

// Whether the invoke is the response of some request.
func (v *Invoke) IsResponse() bool {
	return v.Method == CommandResult || v.Method == CommandError
}

func (v *Invoke) MarshalBinary() (data []byte, err error) {
	var b bytes.Buffer
	enc := newCommandEncoder(&b, v.Encoding, v.Context)

	if err = enc.Encode(v.Method); err != nil {
		return nil, oe.WithMessage(err, "method")
	}
	if err = enc.Encode(v.InvokeID); err != nil {
		return nil, oe.WithMessage(err, "invoke id")
	}
	if err = encodeValues(enc, v.Encoding, v.Header); err != nil {
		return nil, oe.WithMessage(err, "header")
	}
	if err = encodeValues(enc, v.Encoding, v.Args...); err != nil {
		return nil, oe.WithMessage(err, v.Method)
	}

	return b.Bytes(), nil
}

func (v *Invoke) UnmarshalBinary(data []byte) (err error) {
	dec := newCommandDecoder(data, v.Encoding)

	if v.Method, err = decodeString(dec); err != nil {
		return oe.WithMessage(err, "method")
	}

	var id interface{}
	if id, err = dec.Decode(); err != nil {
		return oe.WithMessage(err, "invoke id")
	}
	switch id := id.(type) {
	case float64:
		v.InvokeID = id
	case int32:
		v.InvokeID = float64(id)
	default:
		return oe.Wrapf(ErrPayload, "invoke id %T", id)
	}

	// Some peers omit the command object.
	v.Header, v.Args = nil, nil
	if !dec.More() {
		return
	}
	if v.Header, err = decodeValue(dec, v.Context); err != nil {
		return oe.WithMessage(err, "header")
	}
	if v.Args, err = decodeValues(dec, v.Context); err != nil {
		return oe.WithMessage(err, v.Method)
	}
	return
}

func (v *Invoke) PreferCid() uint32 {
	return CidOverConnection
}

func (v *Invoke) MessageType() MessageType {
	if v.Encoding == amf.Amf3 {
		return MsgAMF3CommandMessage
	}
	return MsgAMF0CommandMessage
}

// The AMF3 command or data message starts with a 0x00 byte, then the AMF0 values,
// and the AMF3 values are switched by the avmplus marker.
func newCommandEncoder(b *bytes.Buffer, encoding amf.ObjectEncoding, ctx *amf.SerializationContext) *amf.Encoder {
	if encoding == amf.Amf3 {
		b.WriteByte(0x00)
	}
	return amf.NewEncoder(b, amf.Amf0).WithContext(ctx)
}

func newCommandDecoder(data []byte, encoding amf.ObjectEncoding) *amf.Decoder {
	if encoding == amf.Amf3 && len(data) > 0 && data[0] == 0x00 {
		data = data[1:]
	}
	return amf.NewDecoder(data, amf.Amf0)
}

// Encode the values, switch to AMF3 for the object values of AMF3 message.
func encodeValues(enc *amf.Encoder, encoding amf.ObjectEncoding, values ...interface{}) (err error) {
	for i, value := range values {
		if encoding == amf.Amf3 && value != nil {
			err = enc.EncodeAvmPlus(value)
		} else {
			err = enc.Encode(value)
		}
		if err != nil {
			return oe.WithMessage(err, fmt.Sprintf("value %v", i))
		}
	}
	return
}

func decodeString(dec *amf.Decoder) (s string, err error) {
	var value interface{}
	if value, err = dec.Decode(); err != nil {
		return
	}

	var ok bool
	if s, ok = value.(string); !ok {
		return "", oe.Wrapf(ErrPayload, "string %T", value)
	}
	return
}

// Decode a value, and project it to the registered struct when it's a typed object.
func decodeValue(dec *amf.Decoder, ctx *amf.SerializationContext) (value interface{}, err error) {
	if value, err = dec.Decode(); err != nil {
		return
	}

	if o, ok := value.(*amf.AsObject); ok && ctx != nil {
		return ctx.Project(o)
	}
	return
}

func decodeValues(dec *amf.Decoder, ctx *amf.SerializationContext) (values []interface{}, err error) {
	for dec.More() {
		var value interface{}
		if value, err = decodeValue(dec, ctx); err != nil {
			return nil, oe.WithMessage(err, fmt.Sprintf("value %v", len(values)))
		}
		values = append(values, value)
	}
	return
}

// Decode the message to packet, the ctx is optional for typed objects.
func DecodePacket(m *Message, ctx *amf.SerializationContext) (p Packet, err error) {
	switch m.MessageType {
	case MsgSetChunkSize:
		p = &SetChunkSize{}
	case MsgAbortMessage:
		p = &Abort{}
	case MsgAcknowledgement:
		p = &Acknowledgement{}
	case MsgUserControlMessage:
		p = &UserControl{}
	case MsgWindowAcknowledgementSize:
		p = &WindowAcknowledgementSize{}
	case MsgSetPeerBandwidth:
		p = &SetPeerBandwidth{}
	case MsgAudioMessage, MsgVideoMessage:
		p = &MediaData{Type: m.MessageType}
	case MsgAMF0CommandMessage:
		p = &Invoke{Encoding: amf.Amf0, Context: ctx}
	case MsgAMF3CommandMessage:
		p = &Invoke{Encoding: amf.Amf3, Context: ctx}
	case MsgAMF0DataMessage:
		p = &Notify{Encoding: amf.Amf0, Context: ctx}
	case MsgAMF3DataMessage:
		p = &Notify{Encoding: amf.Amf3, Context: ctx}
	default:
		return nil, oe.Wrapf(ErrUnknownMessage, "type=%v(%v)", uint8(m.MessageType), m.MessageType)
	}

	if err = p.UnmarshalBinary(m.Payload); err != nil {
		return nil, oe.WithMessage(err, fmt.Sprintf("decode %v", m.MessageType))
	}
	return
}

// Encode the packet to message over its prefer chunk stream,
// the ctx is used when the packet has none.
func EncodePacket(p Packet, streamID, timestamp uint32, ctx *amf.SerializationContext) (m *Message, err error) {
	switch p := p.(type) {
	case *Invoke:
		if p.Context == nil {
			p.Context = ctx
		}
	case *Notify:
		if p.Context == nil {
			p.Context = ctx
		}
	}

	m = &Message{
		Timestamp:     timestamp,
		MessageType:   p.MessageType(),
		StreamID:      streamID,
		ChunkStreamID: p.PreferCid(),
	}

	if m.Payload, err = p.MarshalBinary(); err != nil {
		return nil, oe.WithMessage(err, fmt.Sprintf("encode %v", m.MessageType))
	}
	return
}
