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
	"fmt"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/sharder/errors"
)

// NATS is a Transport over core NATS subjects
type NATS struct {
	mu            sync.Mutex
	connection    *nats.Conn
	ownConnection bool
	subscriptions map[string]*nats.Subscription

	// deliveries hold the read side while pushing into messages
	deliveryMu sync.RWMutex
	messages   chan *Message
	closed     *atomic.Bool
	stopCh     chan struct{}
}

// enforce compilation error
var _ Transport = (*NATS)(nil)

// DialNATS connects to the nats server at url and returns a transport owning that connection
func DialNATS(url, name string) (*NATS, error) {
	opts := nats.GetDefaultOptions()
	opts.Url = url
	opts.Name = name
	opts.ReconnectWait = 2 * time.Second
	opts.MaxReconnect = -1

	var connection *nats.Conn
	// let us connect using an exponential backoff mechanism
	retrier := retry.NewRetrier(5, 100*time.Millisecond, opts.ReconnectWait)
	err := retrier.Run(func() error {
		var err error
		connection, err = opts.Connect()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats server %s: %w", url, err)
	}

	transport := NewNATS(connection)
	transport.ownConnection = true
	return transport, nil
}

// NewNATS creates a transport on an existing connection. The connection is
// not closed by Close.
func NewNATS(connection *nats.Conn) *NATS {
	return &NATS{
		connection:    connection,
		subscriptions: make(map[string]*nats.Subscription),
		messages:      make(chan *Message, DefaultBufferSize),
		closed:        atomic.NewBool(false),
		stopCh:        make(chan struct{}),
	}
}

// Publish sends the payload to every subscriber of channel
func (x *NATS) Publish(_ context.Context, channel string, payload []byte) error {
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}
	return x.connection.Publish(channel, payload)
}

// Subscribe starts the delivery of the given channels
func (x *NATS) Subscribe(_ context.Context, channels ...string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}

	for _, channel := range channels {
		if _, ok := x.subscriptions[channel]; ok {
			continue
		}
		subscription, err := x.connection.Subscribe(channel, x.deliver)
		if err != nil {
			return err
		}
		x.subscriptions[channel] = subscription
	}
	// make sure the server registered the interest before returning
	return x.connection.Flush()
}

// Unsubscribe stops the delivery of the given channels
func (x *NATS) Unsubscribe(_ context.Context, channels ...string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed.Load() {
		return errors.ErrTransportClosed
	}

	for _, channel := range channels {
		if subscription, ok := x.subscriptions[channel]; ok {
			if err := subscription.Unsubscribe(); err != nil {
				return err
			}
			delete(x.subscriptions, channel)
		}
	}
	return nil
}

// Messages returns the inbound messages
func (x *NATS) Messages() <-chan *Message {
	return x.messages
}

// Close unsubscribes from every subject and closes the connection when owned
func (x *NATS) Close() error {
	if !x.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(x.stopCh)

	x.mu.Lock()
	var err error
	for channel, subscription := range x.subscriptions {
		if subscription.IsValid() {
			err = multierr.Append(err, subscription.Unsubscribe())
		}
		delete(x.subscriptions, channel)
	}
	x.mu.Unlock()

	if x.ownConnection {
		x.connection.Close()
	}

	x.deliveryMu.Lock()
	close(x.messages)
	x.deliveryMu.Unlock()
	return err
}

// deliver runs on the nats dispatcher goroutine of the subscription
func (x *NATS) deliver(msg *nats.Msg) {
	x.deliveryMu.RLock()
	defer x.deliveryMu.RUnlock()
	if x.closed.Load() {
		return
	}
	select {
	case x.messages <- &Message{Channel: msg.Subject, Payload: msg.Data}:
	case <-x.stopCh:
	}
}
