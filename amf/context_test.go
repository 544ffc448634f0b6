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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testUser struct {
	Name    string    `amf:"name"`
	Age     int       `amf:"age"`
	Tags    []string  `amf:"tags,omitempty"`
	Created time.Time `amf:"created"`
	Secret  string    `amf:"-"`
	private int
}

type testGroup struct {
	Owner *testUser   `amf:"owner"`
	Extra *AsObject   `amf:"extra"`
	Items interface{} `amf:"items"`
}

func TestSerializationContext_Register(t *testing.T) {
	ctx := NewSerializationContext()
	require.NoError(t, ctx.Register("com.ossrs.User", testUser{}))
	require.NoError(t, ctx.Register("com.ossrs.User", &testUser{}))

	require.Error(t, ctx.Register("", testUser{}))
	require.Error(t, ctx.Register("com.ossrs.Number", 1))
	require.Error(t, ctx.Register("com.ossrs.User", testGroup{}))
	require.Error(t, ctx.Register("com.ossrs.Other", testUser{}))

	if _, ok := ctx.Lookup("com.ossrs.Group"); ok {
		t.Error("should not registered")
	}
}

func TestSerializationContext_Object(t *testing.T) {
	ctx := NewSerializationContext()
	require.NoError(t, ctx.Register("com.ossrs.User", testUser{}))

	created := time.UnixMilli(1500000000123).UTC()
	o, ok, err := ctx.Object(&testUser{Name: "winlin", Age: 30, Created: created, Secret: "x"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "com.ossrs.User", o.TypeName)
	require.Equal(t, []string{"name", "age", "created"}, o.Keys())

	if _, ok, err := ctx.Object(testGroup{}); ok || err != nil {
		t.Errorf("should not registered, err %+v", err)
	}
	if _, ok, err := ctx.Object((*testUser)(nil)); ok || err != nil {
		t.Errorf("should ignore nil, err %+v", err)
	}
}

func TestSerializationContext_RoundTrip(t *testing.T) {
	ctx := NewSerializationContext()
	require.NoError(t, ctx.Register("com.ossrs.User", testUser{}))

	created := time.UnixMilli(1500000000123).UTC()
	in := &testUser{Name: "winlin", Age: 30, Tags: []string{"srs", "oryx"}, Created: created}

	for _, encoding := range []ObjectEncoding{Amf0, Amf3} {
		b, err := marshalWithContext(ctx, in, encoding)
		require.NoError(t, err)

		v, err := Unmarshal(b, encoding)
		require.NoError(t, err)

		o, ok := v.(*AsObject)
		require.True(t, ok)
		require.Equal(t, "com.ossrs.User", o.TypeName)

		out, err := ctx.Project(o)
		require.NoError(t, err)
		require.Equal(t, in, out)
	}
}

func TestSerializationContext_ProjectNested(t *testing.T) {
	ctx := NewSerializationContext()
	require.NoError(t, ctx.Register("com.ossrs.Group", testGroup{}))

	extra := NewAsObject().Set("k", "v")
	o := NewTypedObject("com.ossrs.Group").
		Set("owner", NewAsObject().Set("name", "winlin").Set("age", float64(30))).
		Set("extra", extra).
		Set("items", []interface{}{"a"})

	v, err := ctx.Project(o)
	require.NoError(t, err)

	g, ok := v.(*testGroup)
	require.True(t, ok)
	require.NotNil(t, g.Owner)
	require.Equal(t, "winlin", g.Owner.Name)
	require.Equal(t, 30, g.Owner.Age)
	require.NotNil(t, g.Extra)
	require.Equal(t, "v", g.Extra.GetString("k"))
	require.Equal(t, []interface{}{"a"}, g.Items)
}

func TestSerializationContext_ProjectUnknown(t *testing.T) {
	ctx := NewSerializationContext()

	o := NewTypedObject("com.ossrs.Unknown")
	if v, err := ctx.Project(o); err != nil || v != o {
		t.Errorf("should keep the object, err %+v", err)
	}

	a := NewAsObject()
	if v, err := ctx.Project(a); err != nil || v != a {
		t.Errorf("should keep the object, err %+v", err)
	}
}

func marshalWithContext(ctx *SerializationContext, v interface{}, encoding ObjectEncoding) ([]byte, error) {
	var b bytes.Buffer
	if err := NewEncoder(&b, encoding).WithContext(ctx).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
