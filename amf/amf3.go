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
	"sort"
	"strconv"
	"strings"
	"time"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// AMF3 marker
const (
	markerAmf3Undefined    = 0x00
	markerAmf3Null         = 0x01
	markerAmf3False        = 0x02
	markerAmf3True         = 0x03
	markerAmf3Integer      = 0x04
	markerAmf3Double       = 0x05
	markerAmf3String       = 0x06
	markerAmf3XmlDocument  = 0x07
	markerAmf3Date         = 0x08
	markerAmf3Array        = 0x09
	markerAmf3Object       = 0x0A
	markerAmf3Xml          = 0x0B
	markerAmf3ByteArray    = 0x0C
	markerAmf3VectorInt    = 0x0D
	markerAmf3VectorUint   = 0x0E
	markerAmf3VectorDouble = 0x0F
	markerAmf3VectorObject = 0x10
	markerAmf3Dictionary   = 0x11
)

// The range of AMF3 integer, a signed 29 bits integer.
const (
	amf3IntegerMin = -(1 << 28)
	amf3IntegerMax = 1<<28 - 1
	amf3U29Max     = 1<<29 - 1
)

// The traits of AMF3 object, the class name and sealed members.
type amf3Traits struct {
	className string
	dynamic   bool
	members   []string
}

// The key to reference the same traits.
func (v *amf3Traits) key() string {
	if v.dynamic {
		return "d\x00" + v.className + "\x00" + strings.Join(v.members, "\x00")
	}
	return "s\x00" + v.className + "\x00" + strings.Join(v.members, "\x00")
}

// The traits of object, anonymous object is dynamic and typed object is sealed.
func traitsOf(o *AsObject) *amf3Traits {
	if o.IsTyped() {
		return &amf3Traits{className: o.TypeName, members: o.keys}
	}
	return &amf3Traits{dynamic: true}
}

// 1.3.1 Variable Length Unsigned 29-bit Integer Encoding
func writeU29(b *bytes.Buffer, n uint32) (err error) {
	switch {
	case n < 0x80:
		b.WriteByte(byte(n))
	case n < 0x4000:
		b.WriteByte(byte(n>>7) | 0x80)
		b.WriteByte(byte(n & 0x7f))
	case n < 0x200000:
		b.WriteByte(byte(n>>14) | 0x80)
		b.WriteByte(byte(n>>7)&0x7f | 0x80)
		b.WriteByte(byte(n & 0x7f))
	case n <= amf3U29Max:
		b.WriteByte(byte(n>>22) | 0x80)
		b.WriteByte(byte(n>>15)&0x7f | 0x80)
		b.WriteByte(byte(n>>8)&0x7f | 0x80)
		b.WriteByte(byte(n))
	default:
		return oe.Wrapf(ErrUnsupported, "u29 %v overflow", n)
	}
	return
}

func (v *Decoder) readU29() (n uint32, err error) {
	for i := 0; i < 4; i++ {
		var c byte
		if c, err = v.readByte(); err != nil {
			return 0, oe.WithMessage(err, "u29")
		}

		if i == 3 {
			return n<<8 | uint32(c), nil
		}

		n = n<<7 | uint32(c&0x7f)
		if c&0x80 == 0 {
			return
		}
	}
	return
}

func (v *Encoder) writeAmf3(b *bytes.Buffer, value interface{}) (err error) {
	switch value := value.(type) {
	case nil:
		b.WriteByte(markerAmf3Null)
	case UndefinedType:
		b.WriteByte(markerAmf3Undefined)
	case bool:
		if value {
			b.WriteByte(markerAmf3True)
		} else {
			b.WriteByte(markerAmf3False)
		}
	case float64:
		b.WriteByte(markerAmf3Double)
		writeFloat64(b, value)
	case float32:
		b.WriteByte(markerAmf3Double)
		writeFloat64(b, float64(value))
	case string:
		b.WriteByte(markerAmf3String)
		return v.writeAmf3UTF8(b, value)
	case XMLDocument:
		v.amf3.nbObjects++
		b.WriteByte(markerAmf3XmlDocument)
		if err = writeU29(b, uint32(len(value))<<1|0x01); err != nil {
			return
		}
		b.WriteString(string(value))
	case time.Time:
		v.amf3.nbObjects++
		b.WriteByte(markerAmf3Date)
		b.WriteByte(0x01)
		writeFloat64(b, float64(value.UnixMilli()))
	case []byte:
		v.amf3.nbObjects++
		b.WriteByte(markerAmf3ByteArray)
		if err = writeU29(b, uint32(len(value))<<1|0x01); err != nil {
			return
		}
		b.Write(value)
	case []interface{}:
		return v.writeAmf3Array(b, value, nil)
	case map[string]interface{}:
		return v.writeAmf3Array(b, nil, value)
	case *AsObject:
		if value == nil {
			b.WriteByte(markerAmf3Null)
			return
		}
		return v.writeAmf3Object(b, value)
	default:
		if n, ok := toInt64(value); ok && n >= amf3IntegerMin && n <= amf3IntegerMax {
			b.WriteByte(markerAmf3Integer)
			return writeU29(b, uint32(n)&amf3U29Max)
		}
		if f, ok := toFloat64(value); ok {
			b.WriteByte(markerAmf3Double)
			writeFloat64(b, f)
			return
		}
		if generic, ok := normalize(value); ok {
			return v.writeAmf3(b, generic)
		}

		var o *AsObject
		if o, err = v.resolve(value); err != nil {
			return oe.WithMessage(err, "amf3")
		}
		return v.writeAmf3Object(b, o)
	}

	return
}

// The UTF-8-vr, the empty string is never sent by reference.
func (v *Encoder) writeAmf3UTF8(b *bytes.Buffer, s string) (err error) {
	if s == "" {
		b.WriteByte(0x01)
		return
	}

	if index, ok := v.amf3.strings[s]; ok {
		return writeU29(b, uint32(index)<<1)
	}
	v.amf3.strings[s] = len(v.amf3.strings)

	if err = writeU29(b, uint32(len(s))<<1|0x01); err != nil {
		return
	}
	b.WriteString(s)
	return
}

// 3.11 Array Type, the dense part from arr and the associative part from m.
func (v *Encoder) writeAmf3Array(b *bytes.Buffer, arr []interface{}, m map[string]interface{}) (err error) {
	v.amf3.nbObjects++

	b.WriteByte(markerAmf3Array)
	if err = writeU29(b, uint32(len(arr))<<1|0x01); err != nil {
		return
	}

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "" {
			return oe.Wrap(ErrUnsupported, "empty associative key")
		}
		if err = v.writeAmf3UTF8(b, key); err != nil {
			return
		}
		if err = v.writeAmf3(b, m[key]); err != nil {
			return oe.WithMessage(err, key)
		}
	}
	b.WriteByte(0x01)

	for i, e := range arr {
		if err = v.writeAmf3(b, e); err != nil {
			return oe.WithMessage(err, fmt.Sprintf("array %v", i))
		}
	}
	return
}

// 3.12 Object Type
func (v *Encoder) writeAmf3Object(b *bytes.Buffer, o *AsObject) (err error) {
	b.WriteByte(markerAmf3Object)

	if index, ok := v.amf3.objects[o]; ok {
		return writeU29(b, uint32(index)<<1)
	}
	v.amf3.objects[o] = v.amf3.nbObjects
	v.amf3.nbObjects++

	traits := traitsOf(o)
	if index, ok := v.amf3.traits[traits.key()]; ok {
		if err = writeU29(b, uint32(index)<<2|0x01); err != nil {
			return
		}
	} else {
		v.amf3.traits[traits.key()] = len(v.amf3.traits)

		flags := uint32(len(traits.members))<<4 | 0x03
		if traits.dynamic {
			flags |= 0x08
		}
		if err = writeU29(b, flags); err != nil {
			return
		}
		if err = v.writeAmf3UTF8(b, traits.className); err != nil {
			return
		}
		for _, member := range traits.members {
			if err = v.writeAmf3UTF8(b, member); err != nil {
				return
			}
		}
	}

	for _, member := range traits.members {
		if err = v.writeAmf3(b, o.values[member]); err != nil {
			return oe.WithMessage(err, member)
		}
	}

	if traits.dynamic {
		for _, key := range o.keys {
			if key == "" {
				return oe.Wrap(ErrUnsupported, "empty dynamic key")
			}
			if err = v.writeAmf3UTF8(b, key); err != nil {
				return
			}
			if err = v.writeAmf3(b, o.values[key]); err != nil {
				return oe.WithMessage(err, key)
			}
		}
		b.WriteByte(0x01)
	}
	return
}

func (v *Decoder) readAmf3() (value interface{}, err error) {
	var m byte
	if m, err = v.readByte(); err != nil {
		return nil, oe.WithMessage(err, "amf3 marker")
	}

	switch m {
	case markerAmf3Undefined:
		return Undefined, nil
	case markerAmf3Null:
		return nil, nil
	case markerAmf3False:
		return false, nil
	case markerAmf3True:
		return true, nil
	case markerAmf3Integer:
		var n uint32
		if n, err = v.readU29(); err != nil {
			return
		}
		// Sign extend from 29 bits.
		if n&0x10000000 != 0 {
			return int32(n) - 1<<29, nil
		}
		return int32(n), nil
	case markerAmf3Double:
		return v.readFloat64()
	case markerAmf3String:
		return v.readAmf3UTF8()
	case markerAmf3XmlDocument, markerAmf3Xml:
		var index uint32
		var ref bool
		if index, ref, err = v.readAmf3Flags(); err != nil {
			return
		}
		if ref {
			return v.amf3Reference(index)
		}

		var s []byte
		if s, err = v.readBytes(int(index)); err != nil {
			return
		}
		v.amf3.objects = append(v.amf3.objects, XMLDocument(s))
		return XMLDocument(s), nil
	case markerAmf3ByteArray:
		var index uint32
		var ref bool
		if index, ref, err = v.readAmf3Flags(); err != nil {
			return
		}
		if ref {
			return v.amf3Reference(index)
		}

		var s []byte
		if s, err = v.readBytes(int(index)); err != nil {
			return
		}
		v.amf3.objects = append(v.amf3.objects, s)
		return s, nil
	case markerAmf3Date:
		var index uint32
		var ref bool
		if index, ref, err = v.readAmf3Flags(); err != nil {
			return
		}
		if ref {
			return v.amf3Reference(index)
		}

		var ms float64
		if ms, err = v.readFloat64(); err != nil {
			return
		}
		t := time.UnixMilli(int64(ms)).UTC()
		v.amf3.objects = append(v.amf3.objects, t)
		return t, nil
	case markerAmf3Array:
		return v.readAmf3Array()
	case markerAmf3Object:
		return v.readAmf3Object()
	case markerAmf3VectorInt, markerAmf3VectorUint, markerAmf3VectorDouble, markerAmf3VectorObject, markerAmf3Dictionary:
		return nil, oe.Wrapf(ErrUnsupported, "amf3 marker %#x", m)
	}

	return nil, oe.Wrapf(ErrMarker, "amf3 marker %#x", m)
}

// Read the U29 of reference or inline value, the index of reference or the length of value.
func (v *Decoder) readAmf3Flags() (n uint32, ref bool, err error) {
	if n, err = v.readU29(); err != nil {
		return
	}
	return n >> 1, n&0x01 == 0, nil
}

func (v *Decoder) amf3Reference(index uint32) (value interface{}, err error) {
	if int(index) >= len(v.amf3.objects) || v.amf3.objects[index] == nil {
		return nil, oe.Wrapf(ErrReference, "amf3 object %v of %v", index, len(v.amf3.objects))
	}
	return v.amf3.objects[index], nil
}

func (v *Decoder) readAmf3UTF8() (s string, err error) {
	var n uint32
	var ref bool
	if n, ref, err = v.readAmf3Flags(); err != nil {
		return
	}

	if ref {
		if int(n) >= len(v.amf3.strings) {
			return "", oe.Wrapf(ErrReference, "amf3 string %v of %v", n, len(v.amf3.strings))
		}
		return v.amf3.strings[n], nil
	}

	var b []byte
	if b, err = v.readBytes(int(n)); err != nil {
		return
	}

	if s = string(b); s != "" {
		v.amf3.strings = append(v.amf3.strings, s)
	}
	return
}

// Decode the array, an array with associative part is decoded as an object,
// whose dense elements are keyed by the index.
func (v *Decoder) readAmf3Array() (value interface{}, err error) {
	var count uint32
	var ref bool
	if count, ref, err = v.readAmf3Flags(); err != nil {
		return
	}
	if ref {
		return v.amf3Reference(count)
	}

	index := len(v.amf3.objects)
	v.amf3.objects = append(v.amf3.objects, nil)

	var o *AsObject
	for {
		var key string
		if key, err = v.readAmf3UTF8(); err != nil {
			return nil, oe.WithMessage(err, "associative key")
		}
		if key == "" {
			break
		}

		if o == nil {
			o = NewAsObject()
			v.amf3.objects[index] = o
		}

		var e interface{}
		if e, err = v.readAmf3(); err != nil {
			return nil, oe.WithMessage(err, key)
		}
		o.Set(key, e)
	}

	// Each value takes one byte at least.
	if int64(count) > int64(v.r.Len()) {
		return nil, oe.Wrapf(ErrTruncated, "array %v, left %vB", count, v.r.Len())
	}

	arr := make([]interface{}, 0, int(count))
	for i := 0; i < int(count); i++ {
		var e interface{}
		if e, err = v.readAmf3(); err != nil {
			return nil, oe.WithMessage(err, fmt.Sprintf("array %v", i))
		}
		arr = append(arr, e)
	}

	if o != nil {
		for i, e := range arr {
			o.Set(strconv.Itoa(i), e)
		}
		return o, nil
	}

	v.amf3.objects[index] = arr
	return arr, nil
}

func (v *Decoder) readAmf3Object() (value interface{}, err error) {
	var flags uint32
	if flags, err = v.readU29(); err != nil {
		return
	}

	if flags&0x01 == 0 {
		return v.amf3Reference(flags >> 1)
	}

	var traits *amf3Traits
	if flags&0x02 == 0 {
		index := flags >> 2
		if int(index) >= len(v.amf3.traits) {
			return nil, oe.Wrapf(ErrReference, "amf3 traits %v of %v", index, len(v.amf3.traits))
		}
		traits = v.amf3.traits[index]
	} else {
		if flags&0x04 != 0 {
			return nil, oe.Wrap(ErrUnsupported, "amf3 externalizable traits")
		}

		traits = &amf3Traits{dynamic: flags&0x08 != 0}
		if traits.className, err = v.readAmf3UTF8(); err != nil {
			return nil, oe.WithMessage(err, "class name")
		}

		count := flags >> 4
		if int64(count) > int64(v.r.Len()) {
			return nil, oe.Wrapf(ErrTruncated, "traits %v, left %vB", count, v.r.Len())
		}
		for i := 0; i < int(count); i++ {
			var member string
			if member, err = v.readAmf3UTF8(); err != nil {
				return nil, oe.WithMessage(err, "sealed member")
			}
			traits.members = append(traits.members, member)
		}

		v.amf3.traits = append(v.amf3.traits, traits)
	}

	o := NewTypedObject(traits.className)
	v.amf3.objects = append(v.amf3.objects, o)

	for _, member := range traits.members {
		var e interface{}
		if e, err = v.readAmf3(); err != nil {
			return nil, oe.WithMessage(err, member)
		}
		o.Set(member, e)
	}

	if traits.dynamic {
		for {
			var key string
			if key, err = v.readAmf3UTF8(); err != nil {
				return nil, oe.WithMessage(err, "dynamic key")
			}
			if key == "" {
				break
			}

			var e interface{}
			if e, err = v.readAmf3(); err != nil {
				return nil, oe.WithMessage(err, key)
			}
			o.Set(key, e)
		}
	}

	return o, nil
}
