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
	"fmt"
	"math"
	"sort"
	"time"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// AMF0 marker
const (
	markerAmf0Number        = 0x00
	markerAmf0Boolean       = 0x01
	markerAmf0String        = 0x02
	markerAmf0Object        = 0x03
	markerAmf0MovieClip     = 0x04 // reserved, not supported
	markerAmf0Null          = 0x05
	markerAmf0Undefined     = 0x06
	markerAmf0Reference     = 0x07
	markerAmf0EcmaArray     = 0x08
	markerAmf0ObjectEnd     = 0x09
	markerAmf0StrictArray   = 0x0A
	markerAmf0Date          = 0x0B
	markerAmf0LongString    = 0x0C
	markerAmf0Unsupported   = 0x0D
	markerAmf0RecordSet     = 0x0E // reserved, not supported
	markerAmf0XmlDocument   = 0x0F
	markerAmf0TypedObject   = 0x10
	markerAmf0AvmPlusObject = 0x11
)

func (v *Encoder) writeAmf0(b *bytes.Buffer, value interface{}) (err error) {
	switch value := value.(type) {
	case nil:
		b.WriteByte(markerAmf0Null)
	case UndefinedType:
		b.WriteByte(markerAmf0Undefined)
	case bool:
		b.WriteByte(markerAmf0Boolean)
		if value {
			b.WriteByte(1)
		} else {
			b.WriteByte(0)
		}
	case string:
		// 2.4 String Type, 2.14 Long String Type
		if len(value) > math.MaxUint16 {
			b.WriteByte(markerAmf0LongString)
			writeUint32(b, uint32(len(value)))
			b.WriteString(value)
		} else {
			b.WriteByte(markerAmf0String)
			writeUint16(b, uint16(len(value)))
			b.WriteString(value)
		}
	case XMLDocument:
		b.WriteByte(markerAmf0XmlDocument)
		writeUint32(b, uint32(len(value)))
		b.WriteString(string(value))
	case time.Time:
		// 2.13 Date Type
		// time-zone = S16, reserved and should be 0x0000.
		b.WriteByte(markerAmf0Date)
		writeFloat64(b, float64(value.UnixMilli()))
		writeUint16(b, 0)
	case []interface{}:
		return v.writeAmf0StrictArray(b, value)
	case map[string]interface{}:
		return v.writeAmf0EcmaArray(b, value)
	case *AsObject:
		if value == nil {
			b.WriteByte(markerAmf0Null)
			return
		}
		return v.writeAmf0Object(b, value)
	default:
		if f, ok := toFloat64(value); ok {
			b.WriteByte(markerAmf0Number)
			writeFloat64(b, f)
			return
		}
		if generic, ok := normalize(value); ok {
			return v.writeAmf0(b, generic)
		}

		var o *AsObject
		if o, err = v.resolve(value); err != nil {
			return oe.WithMessage(err, "amf0")
		}
		return v.writeAmf0Object(b, o)
	}

	return
}

// 2.5 Object Type, 2.18 Typed Object Type
// The same object is written as 2.9 Reference Type for the second time.
func (v *Encoder) writeAmf0Object(b *bytes.Buffer, o *AsObject) (err error) {
	if index, ok := v.amf0.objects[o]; ok && index <= math.MaxUint16 {
		b.WriteByte(markerAmf0Reference)
		writeUint16(b, uint16(index))
		return
	}
	v.amf0.objects[o] = v.amf0.nbObjects
	v.amf0.nbObjects++

	if o.IsTyped() {
		b.WriteByte(markerAmf0TypedObject)
		if err = writeAmf0UTF8(b, o.TypeName); err != nil {
			return
		}
	} else {
		b.WriteByte(markerAmf0Object)
	}

	for _, key := range o.keys {
		// The empty name is the object end.
		if key == "" {
			return oe.Wrap(ErrUnsupported, "empty property name")
		}
		if err = writeAmf0UTF8(b, key); err != nil {
			return
		}
		if err = v.writeAmf0(b, o.values[key]); err != nil {
			return oe.WithMessage(err, key)
		}
	}

	writeAmf0ObjectEnd(b)
	return
}

// 2.10 ECMA Array Type, the keys are sorted for the map has no order.
func (v *Encoder) writeAmf0EcmaArray(b *bytes.Buffer, m map[string]interface{}) (err error) {
	v.amf0.nbObjects++

	b.WriteByte(markerAmf0EcmaArray)
	writeUint32(b, uint32(len(m)))

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "" {
			return oe.Wrap(ErrUnsupported, "empty property name")
		}
		if err = writeAmf0UTF8(b, key); err != nil {
			return
		}
		if err = v.writeAmf0(b, m[key]); err != nil {
			return oe.WithMessage(err, key)
		}
	}

	writeAmf0ObjectEnd(b)
	return
}

// 2.12 Strict Array Type
func (v *Encoder) writeAmf0StrictArray(b *bytes.Buffer, arr []interface{}) (err error) {
	v.amf0.nbObjects++

	b.WriteByte(markerAmf0StrictArray)
	writeUint32(b, uint32(len(arr)))

	for i, e := range arr {
		if err = v.writeAmf0(b, e); err != nil {
			return oe.WithMessage(err, fmt.Sprintf("strict array %v", i))
		}
	}
	return
}

// The UTF-8 without marker, for object property name and class name.
func writeAmf0UTF8(b *bytes.Buffer, s string) (err error) {
	if len(s) > math.MaxUint16 {
		return oe.Wrapf(ErrUnsupported, "utf8 %vB", len(s))
	}

	writeUint16(b, uint16(len(s)))
	b.WriteString(s)
	return
}

func writeAmf0ObjectEnd(b *bytes.Buffer) {
	b.Write([]byte{0x00, 0x00, markerAmf0ObjectEnd})
}

func (v *Decoder) readAmf0() (value interface{}, err error) {
	var m byte
	if m, err = v.readByte(); err != nil {
		return nil, oe.WithMessage(err, "amf0 marker")
	}

	switch m {
	case markerAmf0Number:
		return v.readFloat64()
	case markerAmf0Boolean:
		var c byte
		if c, err = v.readByte(); err != nil {
			return
		}
		return c != 0, nil
	case markerAmf0String:
		return v.readAmf0UTF8()
	case markerAmf0LongString:
		var s []byte
		if s, err = v.readAmf0LongBytes(); err != nil {
			return
		}
		return string(s), nil
	case markerAmf0XmlDocument:
		var s []byte
		if s, err = v.readAmf0LongBytes(); err != nil {
			return
		}
		return XMLDocument(s), nil
	case markerAmf0Null:
		return nil, nil
	case markerAmf0Undefined, markerAmf0Unsupported:
		return Undefined, nil
	case markerAmf0Date:
		var ms float64
		if ms, err = v.readFloat64(); err != nil {
			return
		}
		if _, err = v.readUint16(); err != nil {
			return
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	case markerAmf0Reference:
		var index uint16
		if index, err = v.readUint16(); err != nil {
			return
		}
		if int(index) >= len(v.amf0.objects) || v.amf0.objects[index] == nil {
			return nil, oe.Wrapf(ErrReference, "amf0 %v of %v", index, len(v.amf0.objects))
		}
		return v.amf0.objects[index], nil
	case markerAmf0Object:
		o := NewAsObject()
		v.amf0.objects = append(v.amf0.objects, o)
		if err = v.readAmf0Properties(o); err != nil {
			return nil, oe.WithMessage(err, "object")
		}
		return o, nil
	case markerAmf0TypedObject:
		var name string
		if name, err = v.readAmf0UTF8(); err != nil {
			return nil, oe.WithMessage(err, "class name")
		}
		o := NewTypedObject(name)
		v.amf0.objects = append(v.amf0.objects, o)
		if err = v.readAmf0Properties(o); err != nil {
			return nil, oe.WithMessage(err, name)
		}
		return o, nil
	case markerAmf0EcmaArray:
		// The associative-count is a hint only, the object-end marker ends the array.
		if _, err = v.readUint32(); err != nil {
			return
		}
		o := NewAsObject()
		v.amf0.objects = append(v.amf0.objects, o)
		if err = v.readAmf0Properties(o); err != nil {
			return nil, oe.WithMessage(err, "ecma array")
		}
		return o, nil
	case markerAmf0StrictArray:
		var count uint32
		if count, err = v.readUint32(); err != nil {
			return
		}
		// Each value takes one byte at least.
		if int64(count) > int64(v.r.Len()) {
			return nil, oe.Wrapf(ErrTruncated, "strict array %v, left %vB", count, v.r.Len())
		}

		index := len(v.amf0.objects)
		v.amf0.objects = append(v.amf0.objects, nil)

		arr := make([]interface{}, 0, int(count))
		for i := 0; i < int(count); i++ {
			var e interface{}
			if e, err = v.readAmf0(); err != nil {
				return nil, oe.WithMessage(err, "strict array")
			}
			arr = append(arr, e)
		}

		v.amf0.objects[index] = arr
		return arr, nil
	case markerAmf0AvmPlusObject:
		return v.readAmf3()
	}

	return nil, oe.Wrapf(ErrMarker, "amf0 marker %#x", m)
}

// Read the object properties util the object-end marker.
func (v *Decoder) readAmf0Properties(o *AsObject) (err error) {
	for {
		var key string
		if key, err = v.readAmf0UTF8(); err != nil {
			return oe.WithMessage(err, "property name")
		}

		if key == "" {
			var m byte
			if m, err = v.readByte(); err != nil {
				return
			}
			if m != markerAmf0ObjectEnd {
				return oe.Wrapf(ErrMarker, "object end %#x", m)
			}
			return
		}

		var value interface{}
		if value, err = v.readAmf0(); err != nil {
			return oe.WithMessage(err, key)
		}
		o.Set(key, value)
	}
}

func (v *Decoder) readAmf0UTF8() (s string, err error) {
	var n uint16
	if n, err = v.readUint16(); err != nil {
		return
	}

	var b []byte
	if b, err = v.readBytes(int(n)); err != nil {
		return
	}
	return string(b), nil
}

func (v *Decoder) readAmf0LongBytes() (b []byte, err error) {
	var n uint32
	if n, err = v.readUint32(); err != nil {
		return
	}
	if int64(n) > int64(v.r.Len()) {
		return nil, oe.Wrapf(ErrTruncated, "long string %vB, left %vB", n, v.r.Len())
	}
	return v.readBytes(int(n))
}
