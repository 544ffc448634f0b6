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
	"reflect"
	"time"
)

// The AsObject is an anonymous or typed object, a set of named values
// which keeps the insertion order for encoding.
// @remark The key order is not part of the object identity, see Equal.
type AsObject struct {
	// The class name of a typed object, empty for anonymous object.
	TypeName string

	keys   []string
	values map[string]interface{}
}

func NewAsObject() *AsObject {
	return &AsObject{
		values: make(map[string]interface{}),
	}
}

func NewTypedObject(typeName string) *AsObject {
	v := NewAsObject()
	v.TypeName = typeName
	return v
}

func (v *AsObject) String() string {
	if v.IsTyped() {
		return fmt.Sprintf("%v(%v)", v.TypeName, len(v.keys))
	}
	return fmt.Sprintf("object(%v)", len(v.keys))
}

func (v *AsObject) IsTyped() bool {
	return v.TypeName != ""
}

// Set the value of key, overwrite the value and keep the position when key exists.
func (v *AsObject) Set(key string, value interface{}) *AsObject {
	if v.values == nil {
		v.values = make(map[string]interface{})
	}

	if _, ok := v.values[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.values[key] = value

	return v
}

// Get the value of key, nil if not exists.
func (v *AsObject) Get(key string) interface{} {
	return v.values[key]
}

func (v *AsObject) Lookup(key string) (value interface{}, ok bool) {
	value, ok = v.values[key]
	return
}

func (v *AsObject) Has(key string) bool {
	_, ok := v.values[key]
	return ok
}

// Get the string value of key, empty when not exists or not a string.
func (v *AsObject) GetString(key string) string {
	switch s := v.values[key].(type) {
	case string:
		return s
	case XMLDocument:
		return string(s)
	}
	return ""
}

// Get the number value of key, which maybe float64 or integer.
func (v *AsObject) GetNumber(key string) (f float64, ok bool) {
	return toFloat64(v.values[key])
}

func (v *AsObject) Delete(key string) bool {
	if _, ok := v.values[key]; !ok {
		return false
	}
	delete(v.values, key)

	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
	return true
}

func (v *AsObject) Len() int {
	return len(v.keys)
}

// The keys in insertion order.
func (v *AsObject) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Visit all values in insertion order, stop when fn returns false.
func (v *AsObject) Range(fn func(key string, value interface{}) bool) {
	for _, key := range v.keys {
		if !fn(key, v.values[key]) {
			return
		}
	}
}

// A shallow copy of the values.
func (v *AsObject) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(v.keys))
	for k, e := range v.values {
		m[k] = e
	}
	return m
}

// Whether the two objects have the same type name and values, ignoring the key order.
func (v *AsObject) Equal(o *AsObject) bool {
	if v == nil || o == nil {
		return v == o
	}

	if v.TypeName != o.TypeName || len(v.keys) != len(o.keys) {
		return false
	}

	for _, key := range v.keys {
		ov, ok := o.values[key]
		if !ok || !Equal(v.values[key], ov) {
			return false
		}
	}
	return true
}

// Whether two decoded or encodable values are the same value.
// @remark Never use it for cyclic objects.
func Equal(a, b interface{}) bool {
	switch a := a.(type) {
	case *AsObject:
		b, ok := b.(*AsObject)
		return ok && a.Equal(b)
	case []interface{}:
		b, ok := b.([]interface{})
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		b, ok := b.(map[string]interface{})
		if !ok || len(a) != len(b) {
			return false
		}
		for k, e := range a {
			if be, ok := b[k]; !ok || !Equal(e, be) {
				return false
			}
		}
		return true
	case time.Time:
		b, ok := b.(time.Time)
		return ok && a.Equal(b)
	case []byte:
		b, ok := b.([]byte)
		return ok && bytes.Equal(a, b)
	}

	return reflect.DeepEqual(a, b)
}
