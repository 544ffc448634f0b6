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

package rtmp

import (
	"context"
	"sync"
	"sync/atomic"

	oe "github.com/ossrs/go-oryx-lib/errors"
)

// The outstanding remote call, completed exactly once.
type Pending struct {
	id   uint32
	done chan struct{}

	value interface{}
	err   error
}

func (v *Pending) ID() uint32 {
	return v.id
}

// Closed when the call is completed.
func (v *Pending) Done() <-chan struct{} {
	return v.done
}

// The result, only available after done.
func (v *Pending) Result() (interface{}, error) {
	return v.value, v.err
}

// Wait for the result, or ctx done. The pending is still completable
// when ctx is done, util it's cancelled.
func (v *Pending) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-v.done:
		return v.value, v.err
	case <-ctx.Done():
		return nil, oe.Wrapf(ctx.Err(), "wait invoke %v", v.id)
	}
}

// The invocation correlation table, maps the invoke id to the pending call.
type Invocations struct {
	nextID uint32

	lock    sync.Mutex
	pending map[uint32]*Pending
	// Set by FailAll, then no pending can be created.
	cause error
}

func NewInvocations() *Invocations {
	return &Invocations{pending: make(map[uint32]*Pending)}
}

// Create a pending call, the id starts from 1 and is never reused.
func (v *Invocations) Create() (*Pending, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.cause != nil {
		return nil, v.cause
	}

	p := &Pending{
		id:   atomic.AddUint32(&v.nextID, 1),
		done: make(chan struct{}),
	}
	v.pending[p.id] = p
	return p, nil
}

// Complete the pending call, return false when the id is unknown or completed.
func (v *Invocations) Complete(id uint32, value interface{}, err error) bool {
	v.lock.Lock()
	p, ok := v.pending[id]
	delete(v.pending, id)
	v.lock.Unlock()

	if !ok {
		return false
	}

	p.value, p.err = value, err
	close(p.done)
	return true
}

// Remove the pending call which the caller gives up, the late response
// is then dropped as unknown. Return false when the id is unknown or completed.
func (v *Invocations) Cancel(id uint32, cause error) bool {
	if cause == nil {
		cause = context.Canceled
	}
	return v.Complete(id, nil, cause)
}

// Fail all pending calls with cause, and reject the new calls.
// The calls after the first one are ignored.
func (v *Invocations) FailAll(cause error) {
	if cause == nil {
		cause = ErrClosed
	}

	v.lock.Lock()
	if v.cause != nil {
		v.lock.Unlock()
		return
	}

	v.cause = cause
	pending := v.pending
	v.pending = make(map[uint32]*Pending)
	v.lock.Unlock()

	for _, p := range pending {
		p.err = cause
		close(p.done)
	}
}

// The number of pending calls.
func (v *Invocations) Len() int {
	v.lock.Lock()
	defer v.lock.Unlock()
	return len(v.pending)
}
