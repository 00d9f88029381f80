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

package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	sherrors "github.com/tochemey/sharder/errors"
)

var errMediumUnreachable = errors.New("lock medium is unreachable")

type lease struct {
	token     string
	expiresAt time.Time
}

// Medium simulates a lock service shared by every Memory locker created on
// it. It is meant for tests and single-host deployments.
type Medium struct {
	mu          sync.Mutex
	leases      map[string]lease
	unreachable *atomic.Bool
	now         func() time.Time
}

// NewMedium creates an empty Medium
func NewMedium() *Medium {
	return &Medium{
		leases:      make(map[string]lease),
		unreachable: atomic.NewBool(false),
		now:         time.Now,
	}
}

// SetUnreachable makes every subsequent call fail as if the medium was down
func (m *Medium) SetUnreachable(unreachable bool) {
	m.unreachable.Store(unreachable)
}

// Holder returns the token currently owning key, if any
func (m *Medium) Holder(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.live(key)
	return current.token, ok
}

// Expire drops the lease of key as if its TTL had elapsed
func (m *Medium) Expire(key string) {
	m.mu.Lock()
	delete(m.leases, key)
	m.mu.Unlock()
}

// live returns the unexpired lease of key. Must be called with the mutex held.
func (m *Medium) live(key string) (lease, bool) {
	current, ok := m.leases[key]
	if !ok {
		return lease{}, false
	}
	if !m.now().Before(current.expiresAt) {
		delete(m.leases, key)
		return lease{}, false
	}
	return current, true
}

func (m *Medium) setNX(key, token string, ttl time.Duration) (bool, error) {
	if m.unreachable.Load() {
		return false, errMediumUnreachable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.leases[key] = lease{token: token, expiresAt: m.now().Add(ttl)}
	return true, nil
}

func (m *Medium) compareAndExpire(key, token string, ttl time.Duration) (bool, error) {
	if m.unreachable.Load() {
		return false, errMediumUnreachable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.live(key)
	if !ok || current.token != token {
		return false, nil
	}
	current.expiresAt = m.now().Add(ttl)
	m.leases[key] = current
	return true, nil
}

func (m *Medium) compareAndDelete(key, token string) (bool, error) {
	if m.unreachable.Load() {
		return false, errMediumUnreachable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.live(key)
	if !ok || current.token != token {
		return false, nil
	}
	delete(m.leases, key)
	return true, nil
}

// Memory is a Locker backed by a Medium
type Memory struct {
	medium *Medium
	config *Config
}

// enforce compilation error
var _ Locker = (*Memory)(nil)

// NewMemory creates a Memory locker on the given medium
func NewMemory(medium *Medium, opts ...Option) *Memory {
	return &Memory{
		medium: medium,
		config: newConfig(opts...),
	}
}

// Acquire blocks until the key is owned by the caller
func (x *Memory) Acquire(ctx context.Context, key string) (*Handle, error) {
	handle := newHandle(key)
	err := acquire(ctx, x.config, key, func(context.Context) (bool, error) {
		return x.medium.setNX(key, handle.token, x.config.Timeout)
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Extend refreshes the TTL of a held lock
func (x *Memory) Extend(_ context.Context, handle *Handle, ttl time.Duration) error {
	updated, err := x.medium.compareAndExpire(handle.key, handle.token, ttl)
	if err != nil {
		return fmt.Errorf("%w: extend %s: %v", sherrors.ErrLockServiceUnavailable, handle.key, err)
	}
	if !updated {
		return fmt.Errorf("extend %s: %w", handle.key, sherrors.ErrLockLost)
	}
	return nil
}

// Release gives the lock up
func (x *Memory) Release(_ context.Context, handle *Handle) error {
	deleted, err := x.medium.compareAndDelete(handle.key, handle.token)
	if err != nil {
		return fmt.Errorf("%w: release %s: %v", sherrors.ErrLockServiceUnavailable, handle.key, err)
	}
	if !deleted {
		return fmt.Errorf("release %s: %w", handle.key, sherrors.ErrLockLost)
	}
	return nil
}
