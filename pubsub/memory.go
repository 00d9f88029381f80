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

package pubsub

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/tochemey/sharder/errors"
	"github.com/tochemey/sharder/internal/queue"
)

// Hub is an in-process broadcast medium shared by Memory transports
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Memory]struct{}
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*Memory]struct{})}
}

func (h *Hub) publish(channel string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for transport := range h.subscribers[channel] {
		// every receiver gets its own copy
		data := make([]byte, len(payload))
		copy(data, payload)
		transport.enqueue(&Message{Channel: channel, Payload: data})
	}
}

func (h *Hub) subscribe(transport *Memory, channels ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, channel := range channels {
		transports, ok := h.subscribers[channel]
		if !ok {
			transports = make(map[*Memory]struct{})
			h.subscribers[channel] = transports
		}
		transports[transport] = struct{}{}
	}
}

func (h *Hub) unsubscribe(transport *Memory, channels ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, channel := range channels {
		delete(h.subscribers[channel], transport)
		if len(h.subscribers[channel]) == 0 {
			delete(h.subscribers, channel)
		}
	}
}

func (h *Hub) detach(transport *Memory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel, transports := range h.subscribers {
		delete(transports, transport)
		if len(transports) == 0 {
			delete(h.subscribers, channel)
		}
	}
}

// Memory is a Transport attached to a Hub. Publishing never blocks: inbound
// messages are queued without bound and pumped into the Messages channel.
type Memory struct {
	hub      *Hub
	inbox    *queue.MpscQueue[*Message]
	signal   chan struct{}
	messages chan *Message
	closed   *atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// enforce compilation error
var _ Transport = (*Memory)(nil)

// NewMemory creates a Memory transport attached to hub
func NewMemory(hub *Hub) *Memory {
	x := &Memory{
		hub:      hub,
		inbox:    queue.NewMpscQueue[*Message](),
		signal:   make(chan struct{}, 1),
		messages: make(chan *Message, DefaultBufferSize),
		closed:   atomic.NewBool(false),
		stopCh:   make(chan struct{}),
	}
	x.wg.Add(1)
	go x.pump()
	return x
}

// Publish sends the payload to every subscriber of channel
func (x *Memory) Publish(_ context.Context, channel string, payload []byte) error {
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}
	x.hub.publish(channel, payload)
	return nil
}

// Subscribe starts the delivery of the given channels
func (x *Memory) Subscribe(_ context.Context, channels ...string) error {
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}
	x.hub.subscribe(x, channels...)
	return nil
}

// Unsubscribe stops the delivery of the given channels
func (x *Memory) Unsubscribe(_ context.Context, channels ...string) error {
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}
	x.hub.unsubscribe(x, channels...)
	return nil
}

// Messages returns the inbound messages
func (x *Memory) Messages() <-chan *Message {
	return x.messages
}

// Close detaches the transport from its hub
func (x *Memory) Close() error {
	if !x.closed.CompareAndSwap(false, true) {
		return nil
	}
	x.hub.detach(x)
	close(x.stopCh)
	x.wg.Wait()
	close(x.messages)
	return nil
}

func (x *Memory) enqueue(message *Message) {
	if x.closed.Load() {
		return
	}
	x.inbox.Push(message)
	select {
	case x.signal <- struct{}{}:
	default:
	}
}

func (x *Memory) pump() {
	defer x.wg.Done()
	for {
		for {
			message, ok := x.inbox.Pop()
			if !ok {
				break
			}
			select {
			case x.messages <- message:
			case <-x.stopCh:
				return
			}
		}

		select {
		case <-x.signal:
		case <-x.stopCh:
			return
		}
	}
}
