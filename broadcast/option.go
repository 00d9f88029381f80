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

package broadcast

import (
	"github.com/tochemey/sharder/internal/metric"
	"github.com/tochemey/sharder/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a bus.
	Apply(bus *Bus)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(bus *Bus)

// Apply applies the Bus's option
func (f OptionFunc) Apply(bus *Bus) {
	f(bus)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(bus *Bus) {
		bus.logger = logger
	})
}

// WithIdentity sets the identity stamped on the envelopes published by the bus
func WithIdentity(identity string) Option {
	return OptionFunc(func(bus *Bus) {
		bus.identity = identity
	})
}

// WithNamespace sets the prefix of every channel used by the bus.
// Fleets sharing a medium must use distinct namespaces.
func WithNamespace(namespace string) Option {
	return OptionFunc(func(bus *Bus) {
		bus.namespace = namespace
	})
}

// WithMetric sets the broadcast instrumentation
func WithMetric(broadcastMetric *metric.BroadcastMetric) Option {
	return OptionFunc(func(bus *Bus) {
		bus.metric = broadcastMetric
	})
}

// RequestOption customizes a single request
type RequestOption func(envelope *Envelope)

// WithKey scopes the request to the responders holding the given key
func WithKey(key string) RequestOption {
	return func(envelope *Envelope) {
		envelope.Key = key
	}
}

// ToNamespace publishes the request to the responders of another namespace,
// that is another fleet sharing the medium. Answers still come back to the
// issuing bus.
func ToNamespace(namespace string) RequestOption {
	return func(envelope *Envelope) {
		envelope.Channel = requestChannelName(namespace, envelope.kind)
	}
}

// WithSigner signs the request. The signer receives the correlation id and
// the encoded payload of the request.
func WithSigner(sign func(correlationID string, payload []byte) string) RequestOption {
	return func(envelope *Envelope) {
		envelope.Signature = sign(envelope.CorrelationID, envelope.Payload)
	}
}
