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

// Package pubsub defines the broadcast medium shared by every cluster of
// the fleet and ships redis, nats and in-memory implementations of it.
package pubsub

import (
	"context"
)

// DefaultBufferSize is the size of the inbound messages channel
const DefaultBufferSize = 256

// Message is a payload received on a channel
type Message struct {
	Channel string
	Payload []byte
}

// Transport publishes payloads on named channels and delivers the payloads
// of the channels it subscribed to. A transport receives its own
// publications when it is subscribed to the channel.
type Transport interface {
	// Publish sends the payload to every subscriber of channel
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe starts the delivery of the given channels
	Subscribe(ctx context.Context, channels ...string) error
	// Unsubscribe stops the delivery of the given channels
	Unsubscribe(ctx context.Context, channels ...string) error
	// Messages returns the inbound messages. The channel is closed by Close.
	Messages() <-chan *Message
	// Close releases the transport resources
	Close() error
}
