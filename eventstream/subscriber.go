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

package eventstream

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/tochemey/sharder/internal/queue"
)

// Subscriber receives the messages of the topics it subscribed to.
// Messages are buffered without bound until drained with Iterator.
type Subscriber interface {
	// ID returns the subscriber id
	ID() string
	// Active reports whether the subscriber still receives messages
	Active() bool
	// Topics lists the subscribed topics
	Topics() []string
	// Iterator drains the buffered messages in publication order.
	// It must not be called concurrently.
	Iterator() chan *Message
	// Shutdown stops the delivery of messages
	Shutdown()
	signal(message *Message)
	subscribe(topic string)
	unsubscribe(topic string)
}

type subscriber struct {
	id       string
	messages *queue.MpscQueue[*Message]
	topics   mapset.Set[string]
	active   *atomic.Bool
}

var _ Subscriber = (*subscriber)(nil)

func newSubscriber() *subscriber {
	return &subscriber{
		id:       uuid.NewString(),
		messages: queue.NewMpscQueue[*Message](),
		topics:   mapset.NewSet[string](),
		active:   atomic.NewBool(true),
	}
}

// ID returns the subscriber id
func (x *subscriber) ID() string {
	return x.id
}

// Active reports whether the subscriber still receives messages
func (x *subscriber) Active() bool {
	return x.active.Load()
}

// Topics lists the subscribed topics
func (x *subscriber) Topics() []string {
	return x.topics.ToSlice()
}

// Shutdown stops the delivery of messages
func (x *subscriber) Shutdown() {
	x.active.Store(false)
}

// Iterator drains the buffered messages in publication order
func (x *subscriber) Iterator() chan *Message {
	size := max(int(x.messages.Len()), 0)
	out := make(chan *Message, size)
	for range size {
		if !x.active.Load() {
			break
		}
		message, ok := x.messages.Pop()
		if !ok {
			break
		}
		out <- message
	}
	close(out)
	return out
}

func (x *subscriber) signal(message *Message) {
	if x.active.Load() {
		x.messages.Push(message)
	}
}

func (x *subscriber) subscribe(topic string) {
	x.topics.Add(topic)
}

func (x *subscriber) unsubscribe(topic string) {
	x.topics.Remove(topic)
}
