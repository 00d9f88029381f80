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

package testkit

import (
	"time"
)

// Option is the interface that applies a fake gateway option.
type Option interface {
	// Apply sets the Option value of a gateway.
	Apply(gw *Gateway)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(gw *Gateway)

// Apply applies the option
func (f OptionFunc) Apply(gw *Gateway) {
	f(gw)
}

// WithAutoReady makes every connected shard ready after the given delay
func WithAutoReady(delay time.Duration) Option {
	return OptionFunc(func(gw *Gateway) {
		gw.readyAfter = delay
	})
}

// WithGuild registers a guild served by the given shard
func WithGuild(id string, shardID int) Option {
	return OptionFunc(func(gw *Gateway) {
		gw.guilds[id] = shardID
	})
}

// WithUser registers a user
func WithUser(id string, user any) Option {
	return OptionFunc(func(gw *Gateway) {
		gw.users[id] = user
	})
}

// WithVoiceConnections sets the number of voice connections
func WithVoiceConnections(count int) Option {
	return OptionFunc(func(gw *Gateway) {
		gw.voice = count
	})
}
