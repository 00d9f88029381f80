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

// Package ticker drives the periodic lock heartbeat of the sequencer.
package ticker

import (
	"sync"
	"time"
)

// Ticker delivers ticks at a fixed interval while started.
// A tick is dropped when the receiver is not ready for it.
type Ticker struct {
	mu       sync.Mutex
	ticks    chan time.Time
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a stopped Ticker. It panics when interval is not positive.
func New(interval time.Duration) *Ticker {
	if interval <= 0 {
		panic("interval must be greater than zero")
	}
	return &Ticker{
		ticks:    make(chan time.Time, 1),
		interval: interval,
	}
}

// Ticks returns the channel the ticks are delivered on
func (t *Ticker) Ticks() <-chan time.Time {
	return t.ticks
}

// Start starts ticking. It is a no-op when already ticking.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh != nil {
		return
	}
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	go t.loop(t.interval, t.stopCh, t.doneCh)
}

// Stop stops ticking and returns once no tick can be delivered anymore.
// A tick already buffered is discarded.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh == nil {
		return
	}
	close(t.stopCh)
	<-t.doneCh
	t.stopCh, t.doneCh = nil, nil

	select {
	case <-t.ticks:
	default:
	}
}

// Ticking reports whether the ticker is started
func (t *Ticker) Ticking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCh != nil
}

func (t *Ticker) loop(interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case tick := <-ticker.C:
			select {
			case t.ticks <- tick:
			default:
			}
		case <-stopCh:
			return
		}
	}
}
