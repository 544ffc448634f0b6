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
	"math"
	"testing"
	"time"

	"github.com/ossrs/go-oryx-lib/amf0"
	oe "github.com/ossrs/go-oryx-lib/errors"
	"github.com/stretchr/testify/require"
)

func TestAmf_RoundTrip(t *testing.T) {
	nested := NewAsObject().Set("level", "status").Set("code", "NetConnection.Connect.Success")
	typed := NewTypedObject("com.ossrs.Server").Set("name", "oryx").Set("pid", float64(1024))

	pvs := []interface{}{
		nil,
		Undefined,
		true,
		false,
		float64(0),
		float64(3.14),
		float64(-1e10),
		"",
		"oryx",
		XMLDocument("<xml/>"),
		time.Unix(1500000000, 123000000).UTC(),
		[]interface{}{},
		[]interface{}{"oryx", float64(1), nil, true},
		NewAsObject(),
		nested,
		typed,
		NewAsObject().Set("server", typed).Set("info", nested).Set("list", []interface{}{"a", "b"}),
	}

	for _, encoding := range []ObjectEncoding{Amf0, Amf3} {
		for _, pv := range pvs {
			b, err := Marshal(pv, encoding)
			if err != nil {
				t.Errorf("%v marshal %v err %+v", encoding, pv, err)
				continue
			}

			v, err := Unmarshal(b, encoding)
			if err != nil {
				t.Errorf("%v unmarshal %v err %+v", encoding, pv, err)
				continue
			}

			if !Equal(pv, v) {
				t.Errorf("%v expect %v actual %v", encoding, pv, v)
			}
		}
	}
}

func TestAmf0_Bytes(t *testing.T) {
	pvs := []struct {
		v interface{}
		b []byte
	}{
		{nil, []byte{0x05}},
		{Undefined, []byte{0x06}},
		{true, []byte{0x01, 0x01}},
		{"oryx", []byte{0x02, 0x00, 0x04, 'o', 'r', 'y', 'x'}},
		{float64(1), []byte{0x00, 0x3f, 0xf0, 0, 0, 0, 0, 0, 0}},
		{1, []byte{0x00, 0x3f, 0xf0, 0, 0, 0, 0, 0, 0}},
		{NewAsObject(), []byte{0x03, 0x00, 0x00, 0x09}},
		{NewAsObject().Set("a", true), []byte{0x03, 0x00, 0x01, 'a', 0x01, 0x01, 0x00, 0x00, 0x09}},
		{NewTypedObject("T"), []byte{0x10, 0x00, 0x01, 'T', 0x00, 0x00, 0x09}},
		{[]interface{}{nil}, []byte{0x0a, 0x00, 0x00, 0x00, 0x01, 0x05}},
		{map[string]interface{}{"a": nil}, []byte{0x08, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 'a', 0x05, 0x00, 0x00, 0x09}},
	}

	for _, pv := range pvs {
		if b, err := Marshal(pv.v, Amf0); err != nil {
			t.Errorf("marshal %v err %+v", pv.v, err)
		} else if !bytes.Equal(b, pv.b) {
			t.Errorf("marshal %v expect %v actual %v", pv.v, pv.b, b)
		}
	}
}

func TestAmf0_LongString(t *testing.T) {
	s := string(bytes.Repeat([]byte{'x'}, math.MaxUint16+1))

	b, err := Marshal(s, Amf0)
	require.NoError(t, err)
	require.Equal(t, byte(0x0c), b[0])
	require.Equal(t, 1+4+len(s), len(b))

	v, err := Unmarshal(b, Amf0)
	require.NoError(t, err)
	require.Equal(t, s, v)
}

func TestAmf0_Reference(t *testing.T) {
	o := NewAsObject().Set("name", "oryx")

	var b bytes.Buffer
	e := NewEncoder(&b, Amf0)
	require.NoError(t, e.Encode([]interface{}{o, o}))

	// The strict array is index 0, the object is index 1.
	require.Equal(t, []byte{0x07, 0x00, 0x01}, b.Bytes()[b.Len()-3:])

	v, err := Unmarshal(b.Bytes(), Amf0)
	require.NoError(t, err)

	arr, ok := v.([]interface{})
	require.True(t, ok)
	require.Len(t, arr, 2)
	require.True(t, Equal(o, arr[0]))
	require.True(t, arr[0] == arr[1])
}

func TestAmf0_ReferenceAcrossEncode(t *testing.T) {
	o := NewAsObject()

	var b bytes.Buffer
	e := NewEncoder(&b, Amf0)
	require.NoError(t, e.Encode(o))
	require.NoError(t, e.Encode(o))

	d := NewDecoder(b.Bytes(), Amf0)
	values, err := d.DecodeAll()
	require.NoError(t, err)
	require.Len(t, values, 2)
	require.True(t, values[0] == values[1])
}

func TestAmf0_InvalidMarker(t *testing.T) {
	pvs := [][]byte{
		{0x04}, {0x0e}, {0x12}, {0xff},
	}
	for _, pv := range pvs {
		if _, err := Unmarshal(pv, Amf0); err == nil {
			t.Errorf("should error for %v", pv)
		} else if oe.Cause(err) != ErrMarker {
			t.Errorf("invalid err %+v for %v", err, pv)
		}
	}
}

func TestAmf0_Truncated(t *testing.T) {
	pvs := [][]byte{
		nil,
		{0x00, 0x3f},
		{0x02, 0x00, 0x04, 'o'},
		{0x03, 0x00, 0x01, 'a'},
		{0x03, 0x00, 0x00},
		{0x0a, 0xff, 0xff, 0xff, 0xff},
		{0x0c, 0x00, 0x01, 0x00, 0x00},
	}
	for _, pv := range pvs {
		if _, err := Unmarshal(pv, Amf0); err == nil {
			t.Errorf("should error for %v", pv)
		} else if oe.Cause(err) != ErrTruncated {
			t.Errorf("invalid err %+v for %v", err, pv)
		}
	}
}

func TestAmf0_InvalidReference(t *testing.T) {
	if _, err := Unmarshal([]byte{0x07, 0x00, 0x00}, Amf0); oe.Cause(err) != ErrReference {
		t.Errorf("invalid err %+v", err)
	}
}

func TestAmf0_AvmPlus(t *testing.T) {
	var b bytes.Buffer
	e := NewEncoder(&b, Amf0)
	require.NoError(t, e.Encode("connect"))
	require.NoError(t, e.EncodeAvmPlus(NewAsObject().Set("app", "live")))

	d := NewDecoder(b.Bytes(), Amf0)
	values, err := d.DecodeAll()
	require.NoError(t, err)
	require.Len(t, values, 2)
	require.Equal(t, "connect", values[0])

	o, ok := values[1].(*AsObject)
	require.True(t, ok)
	require.Equal(t, "live", o.GetString("app"))
}

func TestAmf0_OryxInterop(t *testing.T) {
	// Encode by this codec, decode by go-oryx-lib.
	b, err := Marshal(NewAsObject().Set("name", "oryx").Set("age", 4), Amf0)
	require.NoError(t, err)

	o := amf0.NewObject()
	require.NoError(t, o.UnmarshalBinary(b))

	if v, ok := o.Get("name").(*amf0.String); !ok || string(*v) != "oryx" {
		t.Errorf("invalid name %v", o.Get("name"))
	}
	if v, ok := o.Get("age").(*amf0.Number); !ok || float64(*v) != 4 {
		t.Errorf("invalid age %v", o.Get("age"))
	}

	// Encode by go-oryx-lib, decode by this codec.
	oo := amf0.NewObject()
	oo.Set("name", amf0.NewString("srs"))
	oo.Set("version", amf0.NewNumber(3))

	b, err = oo.MarshalBinary()
	require.NoError(t, err)

	v, err := Unmarshal(b, Amf0)
	require.NoError(t, err)

	to, ok := v.(*AsObject)
	require.True(t, ok)
	require.Equal(t, "srs", to.GetString("name"))
	if n, ok := to.GetNumber("version"); !ok || n != 3 {
		t.Errorf("invalid version %v", to.Get("version"))
	}

	// The same bytes for the scalar.
	s := amf0.NewString("oryx")
	sb, err := s.MarshalBinary()
	require.NoError(t, err)
	if b, err := Marshal("oryx", Amf0); err != nil || !bytes.Equal(b, sb) {
		t.Errorf("expect %v actual %v, err %+v", sb, b, err)
	}
}

func TestAmf3_U29(t *testing.T) {
	pvs := []struct {
		v uint32
		b []byte
	}{
		{0, []byte{0x00}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x81, 0x00}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x1fffff, []byte{0xff, 0xff, 0x7f}},
		{0x200000, []byte{0x80, 0xc0, 0x80, 0x00}},
		{0x1fffffff, []byte{0xff, 0xff, 0xff, 0xff}},
	}

	for _, pv := range pvs {
		var b bytes.Buffer
		if err := writeU29(&b, pv.v); err != nil {
			t.Errorf("write %v err %+v", pv.v, err)
			continue
		}
		if !bytes.Equal(b.Bytes(), pv.b) {
			t.Errorf("write %v expect %v actual %v", pv.v, pv.b, b.Bytes())
		}

		d := NewDecoder(pv.b, Amf3)
		if v, err := d.readU29(); err != nil || v != pv.v {
			t.Errorf("read %v expect %v actual %v, err %+v", pv.b, pv.v, v, err)
		}
	}

	var b bytes.Buffer
	if err := writeU29(&b, 0x20000000); err == nil {
		t.Error("should error")
	}
}

func TestAmf3_Integer(t *testing.T) {
	pvs := []struct {
		v      interface{}
		expect interface{}
	}{
		{0, int32(0)},
		{int32(-1), int32(-1)},
		{255, int32(255)},
		{1<<28 - 1, int32(1<<28 - 1)},
		{-(1 << 28), int32(-(1 << 28))},
		// Out of range of integer, use double.
		{1 << 28, float64(1 << 28)},
		{int64(-(1 << 28)) - 1, float64(-(1 << 28) - 1)},
		{uint32(math.MaxUint32), float64(math.MaxUint32)},
	}

	for _, pv := range pvs {
		b, err := Marshal(pv.v, Amf3)
		if err != nil {
			t.Errorf("marshal %v err %+v", pv.v, err)
			continue
		}

		if v, err := Unmarshal(b, Amf3); err != nil {
			t.Errorf("unmarshal %v err %+v", pv.v, err)
		} else if v != pv.expect {
			t.Errorf("expect %v(%T) actual %v(%T)", pv.expect, pv.expect, v, v)
		}
	}
}

func TestAmf3_Bytes(t *testing.T) {
	pvs := []struct {
		v interface{}
		b []byte
	}{
		{nil, []byte{0x01}},
		{Undefined, []byte{0x00}},
		{false, []byte{0x02}},
		{true, []byte{0x03}},
		{1, []byte{0x04, 0x01}},
		{-1, []byte{0x04, 0xff, 0xff, 0xff, 0xff}},
		{"", []byte{0x06, 0x01}},
		{"oryx", []byte{0x06, 0x09, 'o', 'r', 'y', 'x'}},
		{[]interface{}{"a", "a"}, []byte{0x09, 0x05, 0x01, 0x06, 0x03, 'a', 0x06, 0x00}},
		{NewAsObject(), []byte{0x0a, 0x0b, 0x01, 0x01}},
		{NewTypedObject("T").Set("a", 1), []byte{0x0a, 0x13, 0x03, 'T', 0x03, 'a', 0x04, 0x01}},
		{[]byte{1, 2}, []byte{0x0c, 0x05, 1, 2}},
	}

	for _, pv := range pvs {
		if b, err := Marshal(pv.v, Amf3); err != nil {
			t.Errorf("marshal %v err %+v", pv.v, err)
		} else if !bytes.Equal(b, pv.b) {
			t.Errorf("marshal %v expect %v actual %v", pv.v, pv.b, b)
		}
	}
}

func TestAmf3_ObjectReference(t *testing.T) {
	o := NewAsObject()

	b, err := Marshal([]interface{}{o, o}, Amf3)
	require.NoError(t, err)

	// The array is index 0, the object is index 1, the second one is a reference.
	require.Equal(t, []byte{0x0a, 0x02}, b[len(b)-2:])

	v, err := Unmarshal(b, Amf3)
	require.NoError(t, err)

	arr, ok := v.([]interface{})
	require.True(t, ok)
	require.Len(t, arr, 2)
	require.True(t, Equal(o, arr[1]))
	require.True(t, arr[0] == arr[1])
}

func TestAmf3_TraitsReference(t *testing.T) {
	a := NewTypedObject("com.ossrs.Stream").Set("name", "livestream").Set("id", int32(1))
	b := NewTypedObject("com.ossrs.Stream").Set("name", "show").Set("id", int32(2))

	data, err := Marshal([]interface{}{a, b}, Amf3)
	require.NoError(t, err)

	v, err := Unmarshal(data, Amf3)
	require.NoError(t, err)

	arr, ok := v.([]interface{})
	require.True(t, ok)
	require.Len(t, arr, 2)
	require.True(t, Equal(a, arr[0]))
	require.True(t, Equal(b, arr[1]))

	// The second object refers the traits at index 0.
	ab, err := Marshal(a, Amf3)
	require.NoError(t, err)
	require.Less(t, len(data), 3+2*len(ab))
}

func TestAmf3_AssociativeArray(t *testing.T) {
	b, err := Marshal(map[string]interface{}{"b": "y", "a": "x"}, Amf3)
	require.NoError(t, err)

	v, err := Unmarshal(b, Amf3)
	require.NoError(t, err)

	o, ok := v.(*AsObject)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, o.Keys())
	require.Equal(t, "x", o.GetString("a"))
}

func TestAmf3_InvalidMarker(t *testing.T) {
	for _, pv := range [][]byte{{0x12}, {0xff}} {
		if _, err := Unmarshal(pv, Amf3); oe.Cause(err) != ErrMarker {
			t.Errorf("invalid err %+v for %v", err, pv)
		}
	}

	for _, pv := range [][]byte{{0x0d}, {0x11}, {0x0a, 0x07, 0x01}} {
		if _, err := Unmarshal(pv, Amf3); oe.Cause(err) != ErrUnsupported {
			t.Errorf("invalid err %+v for %v", err, pv)
		}
	}
}

func TestAmf3_InvalidReference(t *testing.T) {
	pvs := [][]byte{
		{0x06, 0x00},
		{0x0a, 0x00},
		{0x0a, 0x01},
		{0x09, 0x02},
	}
	for _, pv := range pvs {
		if _, err := Unmarshal(pv, Amf3); oe.Cause(err) != ErrReference {
			t.Errorf("invalid err %+v for %v", err, pv)
		}
	}
}

func TestAmf_UnsupportedType(t *testing.T) {
	type unknown struct{}
	for _, encoding := range []ObjectEncoding{Amf0, Amf3} {
		if _, err := Marshal(unknown{}, encoding); oe.Cause(err) != ErrUnsupported {
			t.Errorf("%v invalid err %+v", encoding, err)
		}
	}
}

func TestAmf_EmptyPropertyName(t *testing.T) {
	for _, encoding := range []ObjectEncoding{Amf0, Amf3} {
		o := NewAsObject().Set("", 1.0).Set("a", "b")
		_, err := Marshal(o, encoding)
		require.Equal(t, ErrUnsupported, oe.Cause(err), "%v", encoding)

		_, err = Marshal(map[string]interface{}{"": 1.0, "a": "b"}, encoding)
		require.Equal(t, ErrUnsupported, oe.Cause(err), "%v", encoding)

		// Nested in the args of a command.
		_, err = Marshal([]interface{}{"call", NewAsObject().Set("x", o)}, encoding)
		require.Equal(t, ErrUnsupported, oe.Cause(err), "%v", encoding)
	}

	// The typed object with empty property name.
	_, err := Marshal(NewTypedObject("User").Set("", 1.0), Amf0)
	require.Equal(t, ErrUnsupported, oe.Cause(err))
}

func TestAsObject(t *testing.T) {
	o := NewAsObject().Set("a", 1).Set("b", 2).Set("a", 3)
	require.Equal(t, []string{"a", "b"}, o.Keys())
	require.Equal(t, 3, o.Get("a"))
	require.Equal(t, 2, o.Len())

	require.True(t, o.Delete("a"))
	require.False(t, o.Delete("a"))
	require.Equal(t, []string{"b"}, o.Keys())

	x := NewAsObject().Set("a", "x").Set("b", "y")
	y := NewAsObject().Set("b", "y").Set("a", "x")
	require.True(t, x.Equal(y))
	require.False(t, x.Equal(NewTypedObject("T").Set("a", "x").Set("b", "y")))
}
