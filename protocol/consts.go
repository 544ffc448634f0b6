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

import "time"

const (
	// timeout for rtmp handshake.
	HandshakeTimeout = 2100 * time.Millisecond
)

// 6.1.2. Chunk Message Header, the fmt of basic header selects the header size.
const (
	// 11 bytes, must be used at the start of a chunk stream,
	// and whenever the stream timestamp goes backward.
	FmtType0 = iota
	// 7 bytes, the message stream ID is not included.
	FmtType1
	// 3 bytes, only the timestamp delta.
	FmtType2
	// No header, take values from the preceding chunk.
	FmtType3
)

// the size of message header of fmt.
var fmtHeaderSize = [4]int{11, 7, 3, 0}

// the message type.
type MessageType uint8

func (v MessageType) String() string {
	switch v {
	case MsgSetChunkSize:
		return "SetChunkSize"
	case MsgAbortMessage:
		return "Abort"
	case MsgAcknowledgement:
		return "Acknowledgement"
	case MsgUserControlMessage:
		return "UserControl"
	case MsgWindowAcknowledgementSize:
		return "AcknowledgementSize"
	case MsgSetPeerBandwidth:
		return "SetPeerBandwidth"
	case MsgEdgeAndOriginServerCommand:
		return "EdgeOrigin"
	case MsgAMF3CommandMessage:
		return "Amf3Command"
	case MsgAMF0CommandMessage:
		return "Amf0Command"
	case MsgAMF0DataMessage:
		return "Amf0Data"
	case MsgAMF3DataMessage:
		return "Amf3Data"
	case MsgAMF3SharedObject:
		return "Amf3SharedObject"
	case MsgAMF0SharedObject:
		return "Amf0SharedObject"
	case MsgAudioMessage:
		return "Audio"
	case MsgVideoMessage:
		return "Video"
	case MsgAggregateMessage:
		return "Aggregate"
	default:
		return "unknown"
	}
}

func (v MessageType) IsAudio() bool {
	return v == MsgAudioMessage
}

func (v MessageType) IsVideo() bool {
	return v == MsgVideoMessage
}

func (v MessageType) IsAmf0() bool {
	return v == MsgAMF0CommandMessage || v == MsgAMF0DataMessage
}

func (v MessageType) IsAmf3() bool {
	return v == MsgAMF3CommandMessage || v == MsgAMF3DataMessage
}

func (v MessageType) IsData() bool {
	return v == MsgAMF0DataMessage || v == MsgAMF3DataMessage
}

func (v MessageType) IsCommand() bool {
	return v == MsgAMF0CommandMessage || v == MsgAMF3CommandMessage
}

// Whether the message is protocol control message, type 1-6.
func (v MessageType) IsControl() bool {
	return v >= MsgSetChunkSize && v <= MsgSetPeerBandwidth
}

const (
	// 5. Protocol Control Messages
	// RTMP reserves message type IDs 1-7 for protocol control messages.
	MsgSetChunkSize               MessageType = 0x01
	MsgAbortMessage               MessageType = 0x02
	MsgAcknowledgement            MessageType = 0x03
	MsgUserControlMessage         MessageType = 0x04
	MsgWindowAcknowledgementSize  MessageType = 0x05
	MsgSetPeerBandwidth           MessageType = 0x06
	MsgEdgeAndOriginServerCommand MessageType = 0x07
	// 3.1. Command message, 20 for AMF0 and 17 for AMF3.
	MsgAMF3CommandMessage MessageType = 17 // 0x11
	MsgAMF0CommandMessage MessageType = 20 // 0x14
	// 3.2. Data message, 18 for AMF0 and 15 for AMF3.
	MsgAMF0DataMessage MessageType = 18 // 0x12
	MsgAMF3DataMessage MessageType = 15 // 0x0F
	// 3.3. Shared object message, 19 for AMF0 and 16 for AMF3.
	MsgAMF3SharedObject MessageType = 16 // 0x10
	MsgAMF0SharedObject MessageType = 19 // 0x13
	// 3.4. Audio message
	MsgAudioMessage MessageType = 8 // 0x08
	// 3.5. Video message, which is the lowest priority.
	MsgVideoMessage MessageType = 9 // 0x09
	// 3.6. Aggregate message, a list of submessages.
	MsgAggregateMessage MessageType = 22 // 0x16
)

const (
	// the chunk stream id used for the protocol control message.
	CidProtocolControl = 0x02 + iota
	// the AMF0/AMF3 command message over NetConnection.
	CidOverConnection
	// the AMF0/AMF3 command message over NetConnection, rarely used.
	CidOverConnection2
	// the AMF0/AMF3 message over NetStream.
	CidOverStream
	// the video message over NetStream.
	CidVideo
	// the audio message over NetStream.
	CidAudio
)

// The range of chunk stream id, 1 byte basic header for [2, 63],
// 2 bytes for [64, 319] and 3 bytes for [64, 65599].
const (
	MinChunkStreamID = 2
	MaxChunkStreamID = 65599
)

// 6.1. Chunk Format
// The timestamp field is set to 0xffffff when the extended timestamp is sent.
const ExtendedTimestamp = 0xFFFFFF

// 6. Chunking, RTMP protocol default chunk size.
const DefaultChunkSize = 128

// The max chunk size and the max value of SetChunkSize, 0xFFFFFF.
const MaxChunkSize = 0xFFFFFF

// The default safety ceiling of message payload, larger message is a framing error.
const DefaultMaxMessageSize = 8 * 1024 * 1024

// The max length of message, the message length field is 3 bytes.
const MaxMessageLength = 0xFFFFFF

const (
	// amf0 command message, command name macros
	CommandConnect       = "connect"
	CommandCreateStream  = "createStream"
	CommandCloseStream   = "closeStream"
	CommandDeleteStream  = "deleteStream"
	CommandPlay          = "play"
	CommandPause         = "pause"
	CommandOnBwDone      = "onBWDone"
	CommandOnStatus      = "onStatus"
	CommandResult        = "_result"
	CommandError         = "_error"
	CommandReleaseStream = "releaseStream"
	CommandFcPublish     = "FCPublish"
	CommandUnpublish     = "FCUnpublish"
	CommandPublish       = "publish"
	CommandClose         = "close"

	// the signature for packets to client.
	SigFmsVer       = "FMS/3,5,3,888"
	SigCapabilities = 127
	SigMode         = 1
	SigClientId     = "ASAICiss"

	// onStatus consts.
	StatusLevel          = "level"
	StatusCode           = "code"
	StatusDescription    = "description"
	StatusDetails        = "details"
	StatusClientId       = "clientid"
	StatusObjectEncoding = "objectEncoding"
	// status value
	StatusLevelStatus = "status"
	// status error
	StatusLevelError = "error"
	// code value
	StatusCodeConnectSuccess  = "NetConnection.Connect.Success"
	StatusCodeConnectRejected = "NetConnection.Connect.Rejected"
	StatusCodeConnectClosed   = "NetConnection.Connect.Closed"
	StatusCodeCallFailed      = "NetConnection.Call.Failed"
)
