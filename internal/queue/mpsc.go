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

package queue

import (
	"sync/atomic"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// MpscQueue is an unbounded Multi-Producer-Single-Consumer queue.
// Push may be called from any goroutine, Pop from a single consumer only.
// reference: https://concurrencyfreaks.blogspot.com/2014/04/multi-producer-single-consumer-queue.html
type MpscQueue[T any] struct {
	head   atomic.Pointer[node[T]]
	tail   *node[T]
	length atomic.Int64
}

// NewMpscQueue create an instance of MpscQueue
func NewMpscQueue[T any]() *MpscQueue[T] {
	stub := new(node[T])
	q := &MpscQueue[T]{tail: stub}
	q.head.Store(stub)
	return q
}

// Push places the given value at the end of the queue (FIFO)
func (q *MpscQueue[T]) Push(value T) {
	item := &node[T]{value: value}
	previous := q.head.Swap(item)
	previous.next.Store(item)
	q.length.Add(1)
}

// Pop removes the oldest value of the queue.
// Returns false if the queue is empty.
func (q *MpscQueue[T]) Pop() (T, bool) {
	var zero T
	next := q.tail.next.Load()
	if next == nil {
		return zero, false
	}
	q.tail = next
	value := next.value
	next.value = zero
	q.length.Add(-1)
	return value, true
}

// Len returns the queue length
func (q *MpscQueue[T]) Len() int64 {
	return q.length.Load()
}

// IsEmpty returns true when the queue is empty.
// It must be called from the consumer goroutine.
func (q *MpscQueue[T]) IsEmpty() bool {
	return q.tail.next.Load() == nil
}
