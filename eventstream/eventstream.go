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

// Package eventstream fans the lifecycle events of a coordinator out to
// in-process subscribers. Publishing never blocks and every subscriber sees
// the events of a topic in publication order.
package eventstream

import (
	"github.com/tochemey/sharder/internal/xsync"
)

// Stream is a topic based in-process broker
type Stream interface {
	// AddSubscriber adds a subscriber
	AddSubscriber() Subscriber
	// RemoveSubscriber removes a subscriber
	RemoveSubscriber(sub Subscriber)
	// SubscribersCount returns the number of subscribers for a given topic
	SubscribersCount(topic string) int
	// Subscribe subscribes a subscriber to a topic
	Subscribe(sub Subscriber, topic string)
	// Unsubscribe removes a subscriber from a topic
	Unsubscribe(sub Subscriber, topic string)
	// Publish publishes a message to a topic
	Publish(topic string, msg any)
	// Close shuts every subscriber down
	Close()
}

// EventsStream defines the stream broker
type EventsStream struct {
	subscribers *xsync.Map[string, Subscriber]
	topics      *xsync.Map[string, *xsync.Map[string, Subscriber]]
}

// enforce a compilation error
var _ Stream = (*EventsStream)(nil)

// New creates an instance of EventsStream
func New() *EventsStream {
	return &EventsStream{
		subscribers: xsync.NewMap[string, Subscriber](),
		topics:      xsync.NewMap[string, *xsync.Map[string, Subscriber]](),
	}
}

// AddSubscriber adds a subscriber
func (b *EventsStream) AddSubscriber() Subscriber {
	subscriber := newSubscriber()
	b.subscribers.Set(subscriber.ID(), subscriber)
	return subscriber
}

// RemoveSubscriber unsubscribes the subscriber from all its topics and shuts it down
func (b *EventsStream) RemoveSubscriber(sub Subscriber) {
	for _, topic := range sub.Topics() {
		b.Unsubscribe(sub, topic)
	}
	b.subscribers.Delete(sub.ID())
	sub.Shutdown()
}

// SubscribersCount returns the number of subscribers for a given topic
func (b *EventsStream) SubscribersCount(topic string) int {
	if subscribers, ok := b.topics.Get(topic); ok {
		return subscribers.Len()
	}
	return 0
}

// Subscribe subscribes an active subscriber to a topic
func (b *EventsStream) Subscribe(sub Subscriber, topic string) {
	if !sub.Active() {
		return
	}

	sub.subscribe(topic)
	fresh := xsync.NewMap[string, Subscriber]()
	if !b.topics.SetIfAbsent(topic, fresh) {
		fresh, _ = b.topics.Get(topic)
	}
	fresh.Set(sub.ID(), sub)
}

// Unsubscribe removes a subscriber from a topic
func (b *EventsStream) Unsubscribe(sub Subscriber, topic string) {
	sub.unsubscribe(topic)
	if subscribers, ok := b.topics.Get(topic); ok {
		subscribers.Delete(sub.ID())
	}
}

// Publish delivers the message to the active subscribers of the topic
func (b *EventsStream) Publish(topic string, msg any) {
	subscribers, ok := b.topics.Get(topic)
	if !ok || subscribers.Len() == 0 {
		return
	}

	message := NewMessage(topic, msg)
	subscribers.Range(func(_ string, sub Subscriber) {
		sub.signal(message)
	})
}

// Close shuts every subscriber down
func (b *EventsStream) Close() {
	for _, subscriber := range b.subscribers.Values() {
		subscriber.Shutdown()
	}
	b.subscribers.Reset()
	b.topics.Reset()
}
