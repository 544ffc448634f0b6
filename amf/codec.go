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

package amf

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The encoder writes values of one object encoding to w,
// all values written by an encoder share the reference tables.
type Encoder struct {
	w        io.Writer
	encoding ObjectEncoding
	ctx      *SerializationContext

	amf0 struct {
		// The AMF0 reference index of object, typed object, ecma and strict array.
		nbObjects int
		objects   map[*AsObject]int
	}
	amf3 struct {
		strings   map[string]int
		nbObjects int
		objects   map[*AsObject]int
		traits    map[string]int
	}
}

func NewEncoder(w io.Writer, encoding ObjectEncoding) *Encoder {
	v := &Encoder{w: w, encoding: encoding}
	v.amf0.objects = make(map[*AsObject]int)
	v.amf3.strings = make(map[string]int)
	v.amf3.objects = make(map[*AsObject]int)
	v.amf3.traits = make(map[string]int)
	return v
}

// Use ctx to encode the registered Go structs as typed objects.
func (v *Encoder) WithContext(ctx *SerializationContext) *Encoder {
	v.ctx = ctx
	return v
}

func (v *Encoder) Encoding() ObjectEncoding {
	return v.encoding
}

// Encode the value in the object encoding of encoder.
func (v *Encoder) Encode(value interface{}) (err error) {
	var b bytes.Buffer

	switch v.encoding {
	case Amf0:
		err = v.writeAmf0(&b, value)
	case Amf3:
		err = v.writeAmf3(&b, value)
	default:
		err = oe.Wrapf(ErrUnsupported, "encoding %v", v.encoding)
	}
	if err != nil {
		return
	}

	if _, err = v.w.Write(b.Bytes()); err != nil {
		return oe.Wrap(err, "write")
	}
	return
}

// Encode the value as AMF3 in an AMF0 stream, that is the avmplus-object-marker
// followed by the AMF3 value.
func (v *Encoder) EncodeAvmPlus(value interface{}) (err error) {
	var b bytes.Buffer

	b.WriteByte(markerAmf0AvmPlusObject)
	if err = v.writeAmf3(&b, value); err != nil {
		return
	}

	if _, err = v.w.Write(b.Bytes()); err != nil {
		return oe.Wrap(err, "write")
	}
	return
}

// Resolve a registered Go struct to the typed object.
func (v *Encoder) resolve(value interface{}) (o *AsObject, err error) {
	if v.ctx == nil {
		return nil, oe.Wrapf(ErrUnsupported, "type %T", value)
	}

	var ok bool
	if o, ok, err = v.ctx.Object(value); err != nil {
		return nil, oe.WithMessage(err, "resolve")
	}
	if !ok {
		return nil, oe.Wrapf(ErrUnsupported, "unregistered %T", value)
	}
	return
}

// The decoder reads values of one object encoding from the bytes,
// all values read by a decoder share the reference tables.
type Decoder struct {
	r        *bytes.Reader
	encoding ObjectEncoding

	amf0 struct {
		objects []interface{}
	}
	amf3 struct {
		strings []string
		objects []interface{}
		traits  []*amf3Traits
	}
}

func NewDecoder(data []byte, encoding ObjectEncoding) *Decoder {
	return &Decoder{
		r:        bytes.NewReader(data),
		encoding: encoding,
	}
}

func (v *Decoder) Encoding() ObjectEncoding {
	return v.encoding
}

// Whether there are more bytes to decode.
func (v *Decoder) More() bool {
	return v.r.Len() > 0
}

// The bytes not decoded yet.
func (v *Decoder) Len() int {
	return v.r.Len()
}

// Decode a value in the object encoding of decoder.
// @remark The AMF0 avmplus-object-marker switches to AMF3 for the next value.
func (v *Decoder) Decode() (value interface{}, err error) {
	switch v.encoding {
	case Amf0:
		return v.readAmf0()
	case Amf3:
		return v.readAmf3()
	}
	return nil, oe.Wrapf(ErrUnsupported, "encoding %v", v.encoding)
}

// Decode all values util no bytes left.
func (v *Decoder) DecodeAll() (values []interface{}, err error) {
	for v.More() {
		var value interface{}
		if value, err = v.Decode(); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return
}

func (v *Decoder) readByte() (c byte, err error) {
	if c, err = v.r.ReadByte(); err != nil {
		return 0, oe.Wrap(ErrTruncated, "read byte")
	}
	return
}

func (v *Decoder) readBytes(n int) (b []byte, err error) {
	if n < 0 || n > v.r.Len() {
		return nil, oe.Wrapf(ErrTruncated, "require %v, left %v", n, v.r.Len())
	}

	b = make([]byte, n)
	if _, err = io.ReadFull(v.r, b); err != nil {
		return nil, oe.Wrapf(ErrTruncated, "read %vB", n)
	}
	return
}

func (v *Decoder) readUint16() (n uint16, err error) {
	var b []byte
	if b, err = v.readBytes(2); err != nil {
		return
	}
	return binary.BigEndian.Uint16(b), nil
}

func (v *Decoder) readUint32() (n uint32, err error) {
	var b []byte
	if b, err = v.readBytes(4); err != nil {
		return
	}
	return binary.BigEndian.Uint32(b), nil
}

func (v *Decoder) readFloat64() (f float64, err error) {
	var b []byte
	if b, err = v.readBytes(8); err != nil {
		return
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func writeUint16(b *bytes.Buffer, n uint16) {
	b.WriteByte(byte(n >> 8))
	b.WriteByte(byte(n))
}

func writeUint32(b *bytes.Buffer, n uint32) {
	var p [4]byte
	binary.BigEndian.PutUint32(p[:], n)
	b.Write(p[:])
}

func writeFloat64(b *bytes.Buffer, f float64) {
	var p [8]byte
	binary.BigEndian.PutUint64(p[:], math.Float64bits(f))
	b.Write(p[:])
}
