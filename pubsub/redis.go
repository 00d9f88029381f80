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

	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"

	"github.com/tochemey/sharder/errors"
)

// Redis is a Transport over redis PUBLISH/SUBSCRIBE. It needs a dedicated
// subscriber connection, which go-redis allocates from the client pool.
type Redis struct {
	client     redis.UniversalClient
	subscriber *redis.PubSub
	messages   chan *Message
	closed     *atomic.Bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// enforce compilation error
var _ Transport = (*Redis)(nil)

// NewRedis creates a Redis transport and starts consuming its subscriber connection
func NewRedis(ctx context.Context, client redis.UniversalClient) *Redis {
	x := &Redis{
		client:     client,
		subscriber: client.Subscribe(ctx),
		messages:   make(chan *Message, DefaultBufferSize),
		closed:     atomic.NewBool(false),
		stopCh:     make(chan struct{}),
	}

	x.wg.Add(1)
	go x.consume(x.subscriber.Channel())
	return x
}

// Publish sends the payload to every subscriber of channel
func (x *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}
	return x.client.Publish(ctx, channel, payload).Err()
}

// Subscribe starts the delivery of the given channels
func (x *Redis) Subscribe(ctx context.Context, channels ...string) error {
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}
	return x.subscriber.Subscribe(ctx, channels...)
}

// Unsubscribe stops the delivery of the given channels
func (x *Redis) Unsubscribe(ctx context.Context, channels ...string) error {
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}
	return x.subscriber.Unsubscribe(ctx, channels...)
}

// Messages returns the inbound messages
func (x *Redis) Messages() <-chan *Message {
	return x.messages
}

// Close closes the subscriber connection. The client is left open since
// it is owned by the caller.
func (x *Redis) Close() error {
	if !x.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(x.stopCh)
	err := x.subscriber.Close()
	x.wg.Wait()
	close(x.messages)
	return err
}

func (x *Redis) consume(in <-chan *redis.Message) {
	defer x.wg.Done()
	for {
		select {
		case <-x.stopCh:
			return
		case message, ok := <-in:
			if !ok {
				return
			}
			select {
			case x.messages <- &Message{Channel: message.Channel, Payload: []byte(message.Payload)}:
			case <-x.stopCh:
				return
			}
		}
	}
}
