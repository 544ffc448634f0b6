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

// Package amf implements the Action Message Format, AMF0 and AMF3,
// which RTMP uses to serialize command and data messages.
//
// Decoded values use these Go types:
//
//	null                 nil
//	undefined            amf.Undefined
//	boolean              bool
//	number               float64, or int32 for the AMF3 integer
//	string               string
//	date                 time.Time
//	strict/dense array   []interface{}
//	object, typed object *amf.AsObject
//	ecma array           *amf.AsObject
//	xml                  amf.XMLDocument
//	byte array (AMF3)    []byte
//
// The encoder accepts the same types, all Go integer and float kinds,
// and map[string]interface{} which is written as an ecma array.
//
// The reference tables of both versions are owned by a single Encoder
// or Decoder, so each one is the scope of the references it writes or reads.
package amf

import (
	"bytes"
	"fmt"
	"math"
	"reflect"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The object encoding of a value, which is the AMF version.
type ObjectEncoding uint8

const (
	Amf0 ObjectEncoding = 0
	Amf3 ObjectEncoding = 3
)

func (v ObjectEncoding) String() string {
	switch v {
	case Amf0:
		return "AMF0"
	case Amf3:
		return "AMF3"
	default:
		return fmt.Sprintf("AMF(%v)", uint8(v))
	}
}

var (
	// The marker is unknown, or known but never used on the wire.
	ErrMarker = oe.New("amf invalid marker")
	// There are not enough bytes for the value.
	ErrTruncated = oe.New("amf truncated")
	// The reference index is not in the reference table.
	ErrReference = oe.New("amf invalid reference")
	// The value is legal but not supported by this codec.
	ErrUnsupported = oe.New("amf unsupported")
)

// The undefined value, which is different to null.
type UndefinedType struct{}

var Undefined = UndefinedType{}

func (v UndefinedType) String() string {
	return "undefined"
}

// The XML document, as the raw text.
type XMLDocument string

// Marshal encodes the value with fresh reference tables.
func Marshal(value interface{}, encoding ObjectEncoding) (data []byte, err error) {
	var b bytes.Buffer
	if err = NewEncoder(&b, encoding).Encode(value); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Unmarshal decodes the first value of data with fresh reference tables.
func Unmarshal(data []byte, encoding ObjectEncoding) (value interface{}, err error) {
	return NewDecoder(data, encoding).Decode()
}

// Convert the integer kinds to int64, false when not an integer or overflow.
func toInt64(value interface{}) (n int64, ok bool) {
	switch value := value.(type) {
	case int:
		return int64(value), true
	case int8:
		return int64(value), true
	case int16:
		return int64(value), true
	case int32:
		return int64(value), true
	case int64:
		return value, true
	case uint:
		return int64(value), uint64(value) <= math.MaxInt64
	case uint8:
		return int64(value), true
	case uint16:
		return int64(value), true
	case uint32:
		return int64(value), true
	case uint64:
		return int64(value), value <= math.MaxInt64
	}
	return
}

// Convert all number kinds to float64.
func toFloat64(value interface{}) (f float64, ok bool) {
	switch value := value.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case uint:
		return float64(value), true
	case uint64:
		return float64(value), true
	}

	var n int64
	if n, ok = toInt64(value); ok {
		return float64(n), true
	}
	return
}

// Convert the typed slices and string keyed maps, for example []string, to the
// generic []interface{} and map[string]interface{}.
func normalize(value interface{}) (generic interface{}, ok bool) {
	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, true
		}

		arr := make([]interface{}, rv.Len())
		for i := range arr {
			arr[i] = rv.Index(i).Interface()
		}
		return arr, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}

		m := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, true
	}

	return nil, false
}
