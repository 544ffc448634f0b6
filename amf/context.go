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
	"reflect"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The struct tag to name the field of typed object, for example:
//
//	type User struct {
//		Name string `amf:"name"`
//	}
const tagName = "amf"

var asObjectType = reflect.TypeOf(AsObject{})

// The SerializationContext maps the class name of typed object to Go struct,
// which is optional for application to use typed objects instead of AsObject.
// It's safe for concurrent use, and could be shared by connections.
type SerializationContext struct {
	lock  sync.RWMutex
	types map[string]reflect.Type
	names map[reflect.Type]string
}

func NewSerializationContext() *SerializationContext {
	return &SerializationContext{
		types: make(map[string]reflect.Type),
		names: make(map[reflect.Type]string),
	}
}

// Register the struct of prototype, which is a struct or pointer to struct, as typeName.
func (v *SerializationContext) Register(typeName string, prototype interface{}) error {
	if typeName == "" {
		return oe.New("empty type name")
	}

	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return oe.Errorf("type %v of %T is not struct", typeName, prototype)
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	if previous, ok := v.types[typeName]; ok && previous != t {
		return oe.Errorf("type %v registered by %v", typeName, previous)
	}
	if previous, ok := v.names[t]; ok && previous != typeName {
		return oe.Errorf("%v registered as %v", t, previous)
	}

	v.types[typeName] = t
	v.names[t] = typeName
	return nil
}

// The registered type of typeName.
func (v *SerializationContext) Lookup(typeName string) (t reflect.Type, ok bool) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	t, ok = v.types[typeName]
	return
}

// Project the typed object to a pointer to the registered struct,
// the object is returned as is when it's anonymous or not registered.
func (v *SerializationContext) Project(o *AsObject) (value interface{}, err error) {
	if o == nil || !o.IsTyped() {
		return o, nil
	}

	t, ok := v.Lookup(o.TypeName)
	if !ok {
		return o, nil
	}

	pv := reflect.New(t)

	var d *mapstructure.Decoder
	if d, err = mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          tagName,
		Result:           pv.Interface(),
		WeaklyTypedInput: true,
		DecodeHook:       decodeAsObjectHook,
	}); err != nil {
		return nil, oe.Wrap(err, "new decoder")
	}

	if err = d.Decode(o.Map()); err != nil {
		return nil, oe.Wrapf(err, "project %v to %v", o.TypeName, t)
	}

	return pv.Interface(), nil
}

// The nested objects are decoded as maps, except the field which is an AsObject.
func decodeAsObjectHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	o, ok := data.(*AsObject)
	if !ok || o == nil || to == asObjectType {
		return data, nil
	}

	if to.Kind() == reflect.Struct || to.Kind() == reflect.Map {
		return o.Map(), nil
	}
	return data, nil
}

// Convert the registered struct, or pointer to it, to the typed object.
// The ok is false when the type is not registered.
func (v *SerializationContext) Object(value interface{}) (o *AsObject, ok bool, err error) {
	rv := reflect.ValueOf(value)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil, false, nil
	}

	v.lock.RLock()
	typeName, ok := v.names[rv.Type()]
	v.lock.RUnlock()
	if !ok {
		return nil, false, nil
	}

	o = NewTypedObject(typeName)

	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name, omitEmpty := parseTag(field)
		if name == "-" {
			continue
		}

		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}

		o.Set(name, fv.Interface())
	}

	return o, true, nil
}

// Parse the amf tag of field, the name defaults to the field name.
func parseTag(field reflect.StructField) (name string, omitEmpty bool) {
	name = field.Name

	tag, ok := field.Tag.Lookup(tagName)
	if !ok {
		return
	}

	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return
}
