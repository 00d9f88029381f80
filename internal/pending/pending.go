// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package pending keeps track of the broadcast requests issued by this
// process that are still waiting for responses.
//
// Every request is removed from the table exactly once: when the expected
// number of responses arrived, when its deadline elapsed, or when it is
// cancelled. Responses delivered after that are dropped.
package pending

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	// First is the expected count of a request that completes on the first response
	First = 1
	// All is the expected count of a request that collects until its deadline
	All = math.MaxInt
)

// Result is the outcome of a request
type Result struct {
	// Responses holds the collected responses in arrival order
	Responses []json.RawMessage
	// Complete is false when the request resolved on deadline or cancellation
	Complete bool
}

// Request is a registered in-flight request
type Request struct {
	id        string
	expected  int
	collected []json.RawMessage
	deadline  time.Time
	timer     *time.Timer
	done      chan Result
}

// ID returns the correlation id of the request
func (r *Request) ID() string {
	return r.id
}

// Deadline returns the time at which the request resolves on its own
func (r *Request) Deadline() time.Time {
	return r.deadline
}

// Done returns a channel receiving the result once
func (r *Request) Done() <-chan Result {
	return r.done
}

// Table is the per-process registry of in-flight requests keyed by correlation id
type Table struct {
	mu       sync.Mutex
	requests map[string]*Request
}

// NewTable creates an empty Table
func NewTable() *Table {
	return &Table{requests: make(map[string]*Request)}
}

// Insert registers a request expecting the given number of responses.
// The request resolves with whatever was collected once timeout elapses.
func (t *Table) Insert(id string, expected int, timeout time.Duration) (*Request, error) {
	if expected <= 0 {
		return nil, fmt.Errorf("request %s: expected responses must be greater than zero", id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.requests[id]; ok {
		return nil, fmt.Errorf("request %s is already registered", id)
	}

	request := &Request{
		id:       id,
		expected: expected,
		deadline: time.Now().Add(timeout),
		done:     make(chan Result, 1),
	}
	request.timer = time.AfterFunc(timeout, func() {
		t.resolve(id, false)
	})
	t.requests[id] = request
	return request, nil
}

// Deliver appends a response to the request. It returns false when the
// request is unknown, which is the case for late or foreign responses.
func (t *Table) Deliver(id string, response json.RawMessage) bool {
	t.mu.Lock()
	request, ok := t.requests[id]
	if !ok {
		t.mu.Unlock()
		return false
	}

	request.collected = append(request.collected, response)
	if len(request.collected) < request.expected {
		t.mu.Unlock()
		return true
	}
	t.removeLocked(request)
	t.mu.Unlock()

	request.done <- Result{Responses: request.collected, Complete: true}
	return true
}

// Cancel resolves the request with the responses collected so far
func (t *Table) Cancel(id string) {
	t.resolve(id, false)
}

// Len returns the number of in-flight requests
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// Close resolves every in-flight request with its partial result
func (t *Table) Close() {
	t.mu.Lock()
	ids := make([]string, 0, len(t.requests))
	for id := range t.requests {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		t.resolve(id, false)
	}
}

func (t *Table) resolve(id string, complete bool) {
	t.mu.Lock()
	request, ok := t.requests[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	t.removeLocked(request)
	t.mu.Unlock()

	request.done <- Result{Responses: request.collected, Complete: complete}
}

// removeLocked must be called with the mutex held
func (t *Table) removeLocked(request *Request) {
	request.timer.Stop()
	delete(t.requests, request.id)
}
