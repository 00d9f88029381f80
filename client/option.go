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

package client

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/sharder/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a client.
	Apply(client *Client)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(client *Client)

// Apply applies the Client's option
func (f OptionFunc) Apply(client *Client) {
	f(client)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(client *Client) {
		client.logger = logger
	})
}

// WithLockKey sets the lock key of the fleet. It namespaces the broadcast
// channels and scopes the stats requests.
func WithLockKey(key string) Option {
	return OptionFunc(func(client *Client) {
		client.lockKey = key
	})
}

// WithSharedSecret sets the secret signing the evaluation requests
func WithSharedSecret(secret string) Option {
	return OptionFunc(func(client *Client) {
		client.secret = secret
	})
}

// WithRequestTimeout sets the default deadline of the guild and user lookups
func WithRequestTimeout(timeout time.Duration) Option {
	return OptionFunc(func(client *Client) {
		client.requestTimeout = timeout
	})
}

// WithFanInTimeout sets the default deadline of the stats and evaluation requests
func WithFanInTimeout(timeout time.Duration) Option {
	return OptionFunc(func(client *Client) {
		client.fanInTimeout = timeout
	})
}

// WithIdentity sets the identity stamped on the requests.
// It only applies to clients created with New.
func WithIdentity(identity string) Option {
	return OptionFunc(func(client *Client) {
		client.identity = identity
	})
}

// WithMeterProvider sets the meter provider of the broadcast instruments.
// It only applies to clients created with New.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(client *Client) {
		client.meterProvider = provider
	})
}
