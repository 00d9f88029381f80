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

// Package lock provides the fleet-wide admission lock used to serialize
// gateway handshakes across clusters.
//
// Contention is never an error: Acquire keeps retrying at a fixed delay
// until the key is free or the context is done. Only an unreachable medium
// fails the call, with errors.ErrLockServiceUnavailable.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"

	"github.com/tochemey/sharder/errors"
	"github.com/tochemey/sharder/log"
)

const (
	// DefaultTimeout is the lock TTL used when none is set
	DefaultTimeout = 5 * time.Second
	// DefaultRetryDelay is the delay between two acquire attempts on a contended key
	DefaultRetryDelay = time.Second
	// DefaultMaxAttempts bounds the attempts made to reach an unreachable medium
	DefaultMaxAttempts = 5
)

// Locker is the contract over an external mutual-exclusion medium
type Locker interface {
	// Acquire blocks until the key is owned by the caller
	Acquire(ctx context.Context, key string) (*Handle, error)
	// Extend refreshes the TTL of a held lock
	Extend(ctx context.Context, handle *Handle, ttl time.Duration) error
	// Release gives the lock up
	Release(ctx context.Context, handle *Handle) error
}

// Handle represents the current ownership of a lock key
type Handle struct {
	key   string
	token string
}

// Key returns the lock key
func (h *Handle) Key() string {
	return h.key
}

// Token returns the ownership token stored against the key
func (h *Handle) Token() string {
	return h.token
}

func newHandle(key string) *Handle {
	return &Handle{key: key, token: uuid.NewString()}
}

// Config holds the settings shared by every Locker implementation
type Config struct {
	// Timeout is the lock TTL
	Timeout time.Duration
	// RetryDelay is the fixed delay between two attempts on a contended key
	RetryDelay time.Duration
	// MaxAttempts bounds the attempts made when the medium is unreachable
	MaxAttempts int
	// Logger is the logger to use
	Logger log.Logger
}

func newConfig(opts ...Option) *Config {
	config := &Config{
		Timeout:     DefaultTimeout,
		RetryDelay:  DefaultRetryDelay,
		MaxAttempts: DefaultMaxAttempts,
		Logger:      log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(config)
	}
	return config
}

// attemptFunc makes a single acquire attempt. It reports false on contention
// and returns an error only when the medium could not be reached.
type attemptFunc func(ctx context.Context) (bool, error)

// acquire runs attempt until it succeeds. Medium failures are retried with
// backoff up to MaxAttempts before surfacing ErrLockServiceUnavailable.
func acquire(ctx context.Context, config *Config, key string, attempt attemptFunc) error {
	for {
		var acquired bool
		retrier := retry.NewRetrier(config.MaxAttempts, 100*time.Millisecond, 2*time.Second)
		err := retrier.RunContext(ctx, func(ctx context.Context) error {
			var err error
			acquired, err = attempt(ctx)
			return err
		})

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: acquire %s: %v", errors.ErrLockServiceUnavailable, key, err)
		}

		if acquired {
			return nil
		}

		config.Logger.Debugf("lock %s is contended, retrying in %s", key, config.RetryDelay)
		timer := time.NewTimer(config.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
