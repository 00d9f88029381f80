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

package sequencer

import (
	"github.com/tochemey/sharder/internal/metric"
	"github.com/tochemey/sharder/log"
	"github.com/tochemey/sharder/notify"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a sequencer.
	Apply(sequencer *Sequencer)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(sequencer *Sequencer)

// Apply applies the sequencer's option
func (f OptionFunc) Apply(sequencer *Sequencer) {
	f(sequencer)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(sequencer *Sequencer) {
		sequencer.logger = logger
	})
}

// WithNotifier sets the sink of the lock loss notices
func WithNotifier(notifier notify.Notifier) Option {
	return OptionFunc(func(sequencer *Sequencer) {
		sequencer.notifier = notifier
	})
}

// WithMetric sets the lock instrumentation
func WithMetric(lockMetric *metric.LockMetric) Option {
	return OptionFunc(func(sequencer *Sequencer) {
		sequencer.metric = lockMetric
	})
}

// WithEmitter sets the receiver of the lifecycle events
func WithEmitter(emitter Emitter) Option {
	return OptionFunc(func(sequencer *Sequencer) {
		sequencer.emit = emitter
	})
}
